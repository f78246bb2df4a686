package descriptors

import (
	"encoding/json"
	"fmt"
)

// ParseEnvelope extracts the common descriptor envelope from a decoded document.
// It requires apiVersion and kind to be non-empty strings and does not inspect
// metadata or spec.
func ParseEnvelope(doc any) (*Envelope, error) {
	fields, ok := doc.(map[string]any)
	if !ok {
		return nil, newError(ErrInvalidEnvelope, fmt.Sprintf("expected an object, got %s", describeValue(doc)), nil)
	}

	apiVersion, err := requiredString(fields, "apiVersion")
	if err != nil {
		return nil, err
	}
	kind, err := requiredString(fields, "kind")
	if err != nil {
		return nil, err
	}

	return &Envelope{
		APIVersion: apiVersion,
		Kind:       kind,
		Metadata:   fields["metadata"],
		Spec:       fields["spec"],
		Fields:     fields,
	}, nil
}

func requiredString(fields map[string]any, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", newError(ErrInvalidEnvelope, fmt.Sprintf("%s is required", key), nil)
	}

	value, ok := raw.(string)
	if !ok {
		return "", newError(ErrInvalidEnvelope, fmt.Sprintf("%s must be a string, got %s", key, describeValue(raw)), nil)
	}
	if value == "" {
		return "", newError(ErrInvalidEnvelope, fmt.Sprintf("%s must not be empty", key), nil)
	}

	return value, nil
}

func describeValue(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, int, int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
