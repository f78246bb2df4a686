package descriptors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const validComponentYAML = `apiVersion: catalog.backstage.io/v1
kind: Component
metadata:
  name: svc-a
spec:
  type: service
`

func componentYAML(name, componentType string) string {
	return fmt.Sprintf(`apiVersion: catalog.backstage.io/v1
kind: Component
metadata:
  name: %q
spec:
  type: %q
`, name, componentType)
}

func TestParseDescriptors_SingleComponent(t *testing.T) {
	t.Parallel()

	output, err := ParseDescriptors([]byte(validComponentYAML))
	require.NoError(t, err)
	require.Empty(t, output.Errors)
	require.Len(t, output.Components, 1)

	component, ok := output.Components[0].(*ComponentDescriptorV1)
	require.True(t, ok)
	assert.Equal(t, "svc-a", component.Metadata.Name)
	assert.Equal(t, "service", component.Spec.Type)
}

func TestParseDescriptors_UnsupportedKind(t *testing.T) {
	t.Parallel()

	data := strings.Replace(validComponentYAML, "kind: Component", "kind: Widget", 1)
	output, err := ParseDescriptors([]byte(data))
	require.NoError(t, err)
	assert.Empty(t, output.Components)
	require.Len(t, output.Errors, 1)

	assert.True(t, errors.Is(output.Errors[0], ErrUnsupportedDescriptor))
	assert.Contains(t, output.Errors[0].Error(), "catalog.backstage.io/v1")
	assert.Contains(t, output.Errors[0].Error(), "Widget")
}

func TestParseDescriptors_MalformedMiddleDocument(t *testing.T) {
	t.Parallel()

	data := componentYAML("first", "service") +
		"---\nmetadata: [unclosed\n" +
		"---\n" + componentYAML("third", "website")

	output, err := ParseDescriptors([]byte(data))
	require.NoError(t, err)
	require.Len(t, output.Components, 2)
	require.Len(t, output.Errors, 1)

	assert.Equal(t, "first", output.Components[0].GetName())
	assert.Equal(t, "third", output.Components[1].GetName())

	var descErr *Error
	require.True(t, errors.As(output.Errors[0], &descErr))
	assert.True(t, errors.Is(descErr, ErrMalformedDocument))
	assert.Equal(t, 1, descErr.Document)
}

func TestParseDescriptors_DocumentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     string
		expected error
	}{
		{
			name:     "missing apiVersion",
			data:     "kind: Component\nmetadata:\n  name: a\n",
			expected: ErrInvalidEnvelope,
		},
		{
			name:     "scalar document",
			data:     "just a string\n",
			expected: ErrInvalidEnvelope,
		},
		{
			name:     "explicit null document",
			data:     "---\n~\n",
			expected: ErrInvalidEnvelope,
		},
		{
			name:     "missing spec type",
			data:     "apiVersion: catalog.backstage.io/v1\nkind: Component\nmetadata:\n  name: a\nspec: {}\n",
			expected: ErrMalformedDescriptor,
		},
		{
			name:     "duplicate keys",
			data:     "apiVersion: catalog.backstage.io/v1\napiVersion: catalog.backstage.io/v1\nkind: Component\n",
			expected: ErrMalformedDocument,
		},
		{
			name:     "unknown apiVersion",
			data:     "apiVersion: catalog.backstage.io/v9\nkind: Component\n",
			expected: ErrUnsupportedDescriptor,
		},
		{
			name:     "not a number value",
			data:     "apiVersion: catalog.backstage.io/v1\nkind: Component\nmetadata:\n  name: a\n  weight: .nan\nspec:\n  type: service\n",
			expected: ErrMalformedDescriptor,
		},
		{
			name:     "infinite value",
			data:     "apiVersion: catalog.backstage.io/v1\nkind: Component\nmetadata:\n  name: a\nspec:\n  type: service\n  replicas: .inf\n",
			expected: ErrMalformedDescriptor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			output, err := ParseDescriptors([]byte(tt.data))
			require.NoError(t, err)
			assert.Empty(t, output.Components)
			require.Len(t, output.Errors, 1)
			assert.True(t, errors.Is(output.Errors[0], tt.expected), "got %v", output.Errors[0])
			if tt.expected != ErrMalformedDocument {
				assert.False(t, errors.Is(output.Errors[0], ErrMalformedDocument), "got %v", output.Errors[0])
			}
		})
	}
}

func TestParseDescriptors_SkipsEmptyDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "empty input", data: ""},
		{name: "whitespace only", data: "\n\n  \n"},
		{name: "comments only", data: "# nothing here\n# still nothing\n"},
		{name: "bare separators", data: "---\n---\n---\n"},
		{name: "separator with comment", data: "---\n# comment\n...\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			output, err := ParseDescriptors([]byte(tt.data))
			require.NoError(t, err)
			assert.Empty(t, output.Components)
			assert.Empty(t, output.Errors)
		})
	}
}

func TestParseDescriptors_DocumentMarkers(t *testing.T) {
	t.Parallel()

	data := "# leading comment\n%YAML 1.1\n---\n" + componentYAML("a", "service") +
		"...\n" +
		"--- \n" + componentYAML("b", "library") +
		"---\r\n" + strings.ReplaceAll(componentYAML("c", "website"), "\n", "\r\n")

	output, err := ParseDescriptors([]byte(data))
	require.NoError(t, err)
	require.Empty(t, output.Errors)
	require.Len(t, output.Components, 3)
	assert.Equal(t, "a", output.Components[0].GetName())
	assert.Equal(t, "b", output.Components[1].GetName())
	assert.Equal(t, "c", output.Components[2].GetName())
}

func TestParseDescriptors_WholeUnitDecodeFailure(t *testing.T) {
	t.Parallel()

	output, err := ParseDescriptors([]byte{'a', ':', ' ', 0xff, 0xfe, '\n'})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, ErrDecodeFailure))

	output, err = ParseDescriptors(make([]byte, MaxDescriptorSize+1))
	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, ErrDecodeFailure))
}

func TestParseDescriptors_CustomRegistry(t *testing.T) {
	t.Parallel()

	registry := NewSchemaRegistry()
	require.NoError(t, registry.Register("example.com/v1", "Widget", ValidatorFunc(
		func(envelope *Envelope) (ComponentDescriptor, error) {
			return &ComponentDescriptorV1{APIVersion: envelope.APIVersion, Kind: envelope.Kind,
				Metadata: ComponentMetadataV1{Name: "widget"}}, nil
		})))
	parser := NewParser(registry)
	assert.Same(t, registry, parser.Schemas())

	output, err := parser.ParseDescriptors([]byte("apiVersion: example.com/v1\nkind: Widget\n---\n" + validComponentYAML))
	require.NoError(t, err)
	require.Len(t, output.Components, 1)
	assert.Equal(t, "widget", output.Components[0].GetName())
	require.Len(t, output.Errors, 1)
	assert.True(t, errors.Is(output.Errors[0], ErrUnsupportedDescriptor))
}

// documentKind enumerates the shapes of documents generated by the property test
type documentKind int

const (
	docValid documentKind = iota
	docUnsupported
	docMalformedYAML
	docInvalidEnvelope
	docEmpty
)

func TestParseDescriptors_EveryDocumentHasOneOutcome(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		kinds := rapid.SliceOfN(rapid.SampledFrom([]documentKind{
			docValid, docUnsupported, docMalformedYAML, docInvalidEnvelope, docEmpty,
		}), 0, 12).Draw(t, "kinds")

		var (
			stream        strings.Builder
			wantNames     []string
			wantErrorDocs []int
		)
		for i, kind := range kinds {
			stream.WriteString("---\n")
			switch kind {
			case docValid:
				name := rapid.StringMatching(`[a-z][a-z0-9-]{0,10}`).Draw(t, fmt.Sprintf("name-%d", i))
				stream.WriteString(componentYAML(name, "service"))
				wantNames = append(wantNames, name)
			case docUnsupported:
				stream.WriteString("apiVersion: catalog.backstage.io/v1\nkind: Widget\n")
				wantErrorDocs = append(wantErrorDocs, i)
			case docMalformedYAML:
				stream.WriteString("metadata: {name: [broken\n")
				wantErrorDocs = append(wantErrorDocs, i)
			case docInvalidEnvelope:
				stream.WriteString("metadata:\n  name: nameless\n")
				wantErrorDocs = append(wantErrorDocs, i)
			case docEmpty:
				stream.WriteString("# empty\n")
			}
		}

		output, err := ParseDescriptors([]byte(stream.String()))
		if err != nil {
			t.Fatalf("unexpected whole-unit failure: %v", err)
		}

		if len(output.Components) != len(wantNames) {
			t.Fatalf("expected %d components, got %d", len(wantNames), len(output.Components))
		}
		for i, name := range wantNames {
			if got := output.Components[i].GetName(); got != name {
				t.Fatalf("component %d: expected name %q, got %q", i, name, got)
			}
		}

		if len(output.Errors) != len(wantErrorDocs) {
			t.Fatalf("expected %d errors, got %d: %v", len(wantErrorDocs), len(output.Errors), output.Errors)
		}
		for i, doc := range wantErrorDocs {
			var descErr *Error
			if !errors.As(output.Errors[i], &descErr) {
				t.Fatalf("error %d is not a descriptor error: %v", i, output.Errors[i])
			}
			if descErr.Document != doc {
				t.Fatalf("error %d: expected document %d, got %d", i, doc, descErr.Document)
			}
		}
	})
}
