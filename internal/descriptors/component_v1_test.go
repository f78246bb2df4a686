package descriptors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentV1Validator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		fields      map[string]any
		expectError bool
	}{
		{
			name: "valid component",
			fields: map[string]any{
				"apiVersion": ComponentV1APIVersion,
				"kind":       ComponentKind,
				"metadata":   map[string]any{"name": "svc-a"},
				"spec":       map[string]any{"type": "service"},
			},
		},
		{
			name: "unknown fields are allowed",
			fields: map[string]any{
				"apiVersion": ComponentV1APIVersion,
				"kind":       ComponentKind,
				"metadata":   map[string]any{"name": "svc-a", "labels": map[string]any{"team": "a"}},
				"spec":       map[string]any{"type": "service", "owner": "team-a"},
				"status":     "ignored",
			},
		},
		{
			name: "missing metadata",
			fields: map[string]any{
				"apiVersion": ComponentV1APIVersion,
				"kind":       ComponentKind,
				"spec":       map[string]any{"type": "service"},
			},
			expectError: true,
		},
		{
			name: "empty name",
			fields: map[string]any{
				"apiVersion": ComponentV1APIVersion,
				"kind":       ComponentKind,
				"metadata":   map[string]any{"name": ""},
				"spec":       map[string]any{"type": "service"},
			},
			expectError: true,
		},
		{
			name: "numeric name is not coerced",
			fields: map[string]any{
				"apiVersion": ComponentV1APIVersion,
				"kind":       ComponentKind,
				"metadata":   map[string]any{"name": json.Number("42")},
				"spec":       map[string]any{"type": "service"},
			},
			expectError: true,
		},
		{
			name: "missing spec type",
			fields: map[string]any{
				"apiVersion": ComponentV1APIVersion,
				"kind":       ComponentKind,
				"metadata":   map[string]any{"name": "svc-a"},
				"spec":       map[string]any{},
			},
			expectError: true,
		},
		{
			name: "spec is not an object",
			fields: map[string]any{
				"apiVersion": ComponentV1APIVersion,
				"kind":       ComponentKind,
				"metadata":   map[string]any{"name": "svc-a"},
				"spec":       "service",
			},
			expectError: true,
		},
	}

	validator := NewComponentV1Validator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			envelope, err := ParseEnvelope(tt.fields)
			require.NoError(t, err)

			component, err := validator.Validate(envelope)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedDescriptor))
				var validationErr *jsonschema.ValidationError
				assert.True(t, errors.As(err, &validationErr), "schema detail should be preserved")
				return
			}

			require.NoError(t, err)
			v1, ok := component.(*ComponentDescriptorV1)
			require.True(t, ok)
			assert.Equal(t, "svc-a", v1.Metadata.Name)
			assert.Equal(t, "service", v1.Spec.Type)
			assert.Equal(t, ComponentV1APIVersion, v1.GetAPIVersion())
			assert.Equal(t, ComponentKind, v1.GetKind())
		})
	}
}

func TestComponentV1Validator_EnvelopeWithoutFields(t *testing.T) {
	t.Parallel()

	envelope := &Envelope{
		APIVersion: ComponentV1APIVersion,
		Kind:       ComponentKind,
		Metadata:   map[string]string{"name": "svc-b"},
		Spec:       map[string]string{"type": "website"},
	}

	component, err := NewComponentV1Validator().Validate(envelope)
	require.NoError(t, err)
	assert.Equal(t, "svc-b", component.GetName())
}
