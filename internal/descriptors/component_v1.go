package descriptors

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	// ComponentV1APIVersion is the apiVersion of the first component schema
	ComponentV1APIVersion = "catalog.backstage.io/v1"

	// ComponentKind is the kind of component descriptors
	ComponentKind = "Component"

	componentV1SchemaURL = "https://catalog.backstage.io/schemas/component-v1.json"
)

//go:embed schemas/component-v1.json
var componentV1Schema string

// ComponentDescriptorV1 is a component declared with apiVersion catalog.backstage.io/v1
type ComponentDescriptorV1 struct {
	APIVersion string              `json:"apiVersion" yaml:"apiVersion"`
	Kind       string              `json:"kind" yaml:"kind"`
	Metadata   ComponentMetadataV1 `json:"metadata" yaml:"metadata"`
	Spec       ComponentSpecV1     `json:"spec" yaml:"spec"`
}

// ComponentMetadataV1 holds the identifying metadata of a v1 component
type ComponentMetadataV1 struct {
	Name string `json:"name" yaml:"name"`
}

// ComponentSpecV1 holds the specification of a v1 component
type ComponentSpecV1 struct {
	Type string `json:"type" yaml:"type"`
}

// GetAPIVersion returns the apiVersion of the component
func (c *ComponentDescriptorV1) GetAPIVersion() string { return c.APIVersion }

// GetKind returns the kind of the component
func (c *ComponentDescriptorV1) GetKind() string { return c.Kind }

// GetName returns metadata.name, or "" for a nil descriptor
func (c *ComponentDescriptorV1) GetName() string {
	if c == nil {
		return ""
	}
	return c.Metadata.Name
}

func (*ComponentDescriptorV1) isComponentDescriptor() {}

var compileComponentV1Schema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(componentV1Schema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse component v1 schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(componentV1SchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add component v1 schema: %w", err)
	}
	return compiler.Compile(componentV1SchemaURL)
})

// componentV1Validator validates catalog.backstage.io/v1 Component descriptors.
// Values are checked strictly: a numeric name is not coerced into a string.
type componentV1Validator struct {
	schema *jsonschema.Schema
}

// NewComponentV1Validator creates the validator for catalog.backstage.io/v1 components
func NewComponentV1Validator() Validator {
	schema, err := compileComponentV1Schema()
	if err != nil {
		// The schema is embedded at build time
		panic(err)
	}
	return &componentV1Validator{schema: schema}
}

// Validate checks the envelope against the v1 component schema
func (v *componentV1Validator) Validate(envelope *Envelope) (ComponentDescriptor, error) {
	instance, err := toJSONValue(envelope.document())
	if err != nil {
		return nil, newError(ErrMalformedDescriptor, "component is not representable as JSON", err)
	}

	if err := v.schema.Validate(instance); err != nil {
		return nil, newError(ErrMalformedDescriptor, "component", err)
	}

	data, err := json.Marshal(instance)
	if err != nil {
		return nil, newError(ErrMalformedDescriptor, "component", err)
	}
	var component ComponentDescriptorV1
	if err := json.Unmarshal(data, &component); err != nil {
		return nil, newError(ErrMalformedDescriptor, "component", err)
	}

	return &component, nil
}
