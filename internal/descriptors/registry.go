package descriptors

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stacklok/catalog-ingester/internal/versions"
)

// Validator validates an envelope of one (apiVersion, kind) pair and turns it
// into a component.
type Validator interface {
	Validate(envelope *Envelope) (ComponentDescriptor, error)
}

// ValidatorFunc adapts a function to the Validator interface
type ValidatorFunc func(envelope *Envelope) (ComponentDescriptor, error)

// Validate calls f(envelope)
func (f ValidatorFunc) Validate(envelope *Envelope) (ComponentDescriptor, error) {
	return f(envelope)
}

// Key identifies the validator responsible for a descriptor
type Key struct {
	APIVersion string
	Kind       string
}

// String returns the key in "apiVersion, kind" form
func (k Key) String() string {
	return k.APIVersion + ", " + k.Kind
}

// SchemaRegistry maps (apiVersion, kind) pairs to validators.
//
// A registry is populated at startup and only read afterwards; it is safe for
// concurrent lookups once registration is finished.
type SchemaRegistry struct {
	validators map[Key]Validator
}

// NewSchemaRegistry creates an empty schema registry
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		validators: make(map[Key]Validator),
	}
}

// DefaultSchemaRegistry creates a registry holding every built-in validator
func DefaultSchemaRegistry() *SchemaRegistry {
	r := NewSchemaRegistry()
	if err := r.Register(ComponentV1APIVersion, ComponentKind, NewComponentV1Validator()); err != nil {
		// Built-in keys are constants, a failure here is a programming error
		panic(err)
	}
	return r
}

// Register adds the validator for an (apiVersion, kind) pair
func (r *SchemaRegistry) Register(apiVersion, kind string, validator Validator) error {
	if apiVersion == "" || kind == "" {
		return fmt.Errorf("apiVersion and kind are required to register a validator")
	}
	if validator == nil {
		return fmt.Errorf("validator for %s, %s cannot be nil", apiVersion, kind)
	}

	key := Key{APIVersion: apiVersion, Kind: kind}
	if _, exists := r.validators[key]; exists {
		return fmt.Errorf("validator for %s is already registered", key)
	}

	r.validators[key] = validator
	return nil
}

// Find returns the validator registered for an (apiVersion, kind) pair
func (r *SchemaRegistry) Find(apiVersion, kind string) (Validator, bool) {
	validator, ok := r.validators[Key{APIVersion: apiVersion, Kind: kind}]
	return validator, ok
}

// Keys returns all registered keys ordered by kind, then newest apiVersion first
func (r *SchemaRegistry) Keys() []Key {
	keys := make([]Key, 0, len(r.validators))
	for key := range r.validators {
		keys = append(keys, key)
	}

	slices.SortFunc(keys, func(a, b Key) int {
		if c := strings.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		switch {
		case versions.IsNewerAPIVersion(a.APIVersion, b.APIVersion):
			return -1
		case versions.IsNewerAPIVersion(b.APIVersion, a.APIVersion):
			return 1
		default:
			return 0
		}
	})
	return keys
}

// Validate resolves the validator for the envelope and runs it.
// Validator failures are reported as ErrMalformedDescriptor.
func (r *SchemaRegistry) Validate(envelope *Envelope) (ComponentDescriptor, error) {
	if envelope == nil {
		return nil, newError(ErrInvalidEnvelope, "envelope cannot be nil", nil)
	}

	validator, ok := r.Find(envelope.APIVersion, envelope.Kind)
	if !ok {
		return nil, newError(ErrUnsupportedDescriptor, r.unsupportedDetail(envelope.APIVersion, envelope.Kind), nil)
	}

	component, err := validator.Validate(envelope)
	if err != nil {
		var descErr *Error
		if errors.As(err, &descErr) {
			return nil, err
		}
		return nil, newError(ErrMalformedDescriptor, envelope.Kind, err)
	}
	if component == nil {
		return nil, newError(ErrMalformedDescriptor, fmt.Sprintf("validator for %s returned no component",
			Key{APIVersion: envelope.APIVersion, Kind: envelope.Kind}), nil)
	}

	return component, nil
}

// unsupportedDetail names the rejected pair and, when the kind is known under
// other apiVersions, lists them to help with migrations
func (r *SchemaRegistry) unsupportedDetail(apiVersion, kind string) string {
	detail := Key{APIVersion: apiVersion, Kind: kind}.String()

	var supported []string
	for _, key := range r.Keys() {
		if key.Kind == kind {
			supported = append(supported, key.APIVersion)
		}
	}
	if len(supported) > 0 {
		detail += fmt.Sprintf(" (supported apiVersions for %s: %s)", kind, strings.Join(supported, ", "))
	}
	return detail
}
