package descriptors

// Envelope is the shape shared by every descriptor document, regardless of
// its schema version.
type Envelope struct {
	// APIVersion identifies the schema family and version, e.g. catalog.backstage.io/v1
	APIVersion string

	// Kind identifies the type of entity described, e.g. Component
	Kind string

	// Metadata is passed through untouched for version specific validators
	Metadata any

	// Spec is passed through untouched for version specific validators
	Spec any

	// Fields holds every top-level field of the decoded document, including
	// fields unknown to the envelope
	Fields map[string]any
}

// document returns the top-level object the envelope was parsed from
func (e *Envelope) document() map[string]any {
	if e.Fields != nil {
		return e.Fields
	}

	doc := map[string]any{
		"apiVersion": e.APIVersion,
		"kind":       e.Kind,
	}
	if e.Metadata != nil {
		doc["metadata"] = e.Metadata
	}
	if e.Spec != nil {
		doc["spec"] = e.Spec
	}
	return doc
}

// ComponentDescriptor is a validated component of any supported schema version.
//
// The set of implementations is closed: new schema versions are added as new
// variants in this package and existing variants never change shape.
type ComponentDescriptor interface {
	// GetAPIVersion returns the apiVersion the component was declared with
	GetAPIVersion() string

	// GetKind returns the kind the component was declared with
	GetKind() string

	// GetName returns the component name from its metadata
	GetName() string

	isComponentDescriptor()
}

// ParserOutput is the result of parsing one source unit. A document
// contributes either one component or one error.
type ParserOutput struct {
	Errors     []error
	Components []ComponentDescriptor
}

// OnlyContainsErrors reports whether no component could be extracted
func (o *ParserOutput) OnlyContainsErrors() bool {
	return o == nil || len(o.Components) == 0
}

// Append adds the errors and components of other, preserving order
func (o *ParserOutput) Append(other *ParserOutput) {
	if other == nil {
		return
	}
	o.Errors = append(o.Errors, other.Errors...)
	o.Components = append(o.Components, other.Components...)
}
