package descriptors

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// MaxDescriptorSize is the largest source unit the parser accepts (16MB)
const MaxDescriptorSize = 16 * 1024 * 1024

// Parser decodes descriptor sources and validates every document in them
type Parser struct {
	schemas *SchemaRegistry
}

// NewParser creates a parser that validates documents with the given registry.
// A nil registry selects DefaultSchemaRegistry.
func NewParser(schemas *SchemaRegistry) *Parser {
	if schemas == nil {
		schemas = DefaultSchemaRegistry()
	}
	return &Parser{schemas: schemas}
}

// Schemas returns the schema registry used by the parser
func (p *Parser) Schemas() *SchemaRegistry {
	return p.schemas
}

// ParseDescriptors parses the default descriptor format with the built-in schemas
func ParseDescriptors(data []byte) (*ParserOutput, error) {
	return NewParser(nil).ParseDescriptors(data)
}

// ParseDescriptors parses some raw YAML data, and validates and extracts all
// documents in it.
//
// Each non-empty document yields exactly one component or one error in the
// output. An error is only returned when the data as a whole cannot be split
// into documents.
func (p *Parser) ParseDescriptors(data []byte) (*ParserOutput, error) {
	if len(data) > MaxDescriptorSize {
		return nil, newError(ErrDecodeFailure,
			fmt.Sprintf("data size %d bytes exceeds maximum of %d bytes", len(data), MaxDescriptorSize), nil)
	}
	if !utf8.Valid(data) {
		return nil, newError(ErrDecodeFailure, "data is not valid UTF-8", nil)
	}

	result := &ParserOutput{
		Errors:     []error{},
		Components: []ComponentDescriptor{},
	}

	for index, raw := range splitDocuments(string(data)) {
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
			result.Errors = append(result.Errors, atDocument(newError(ErrMalformedDocument, "", err), index))
			continue
		}
		if isEmptyDocument(&node) {
			continue
		}

		component, err := p.parseDocument(&node)
		if err != nil {
			result.Errors = append(result.Errors, atDocument(err, index))
			continue
		}
		result.Components = append(result.Components, component)
	}

	return result, nil
}

// parseDocument runs a decoded document through the envelope and schema stages
func (p *Parser) parseDocument(node *yaml.Node) (ComponentDescriptor, error) {
	var decoded any
	if err := node.Decode(&decoded); err != nil {
		return nil, newError(ErrMalformedDocument, "", err)
	}

	doc, err := toJSONValue(decoded)
	if err != nil {
		// Valid YAML such as .nan or .inf that has no JSON form
		return nil, newError(ErrMalformedDescriptor, "descriptor contains values that cannot be represented as JSON", err)
	}

	envelope, err := ParseEnvelope(doc)
	if err != nil {
		return nil, err
	}

	return p.schemas.Validate(envelope)
}

// isEmptyDocument reports whether a document has no content at all, e.g. a
// file holding only comments or a bare "---" separator
func isEmptyDocument(node *yaml.Node) bool {
	if node.Kind == 0 {
		return true
	}
	if node.Kind != yaml.DocumentNode {
		return false
	}
	if len(node.Content) == 0 {
		return true
	}

	content := node.Content[0]
	return content.Kind == yaml.ScalarNode &&
		content.Tag == "!!null" &&
		content.Value == "" &&
		content.Style == 0
}

// splitDocuments cuts a YAML stream into its documents so that each one can be
// decoded on its own. A "---" marker starts a new document unless only
// directives and comments precede it; a "..." marker ends the current document.
func splitDocuments(data string) []string {
	var (
		docs    []string
		current strings.Builder
		open    bool
	)

	flush := func() {
		docs = append(docs, current.String())
		current.Reset()
		open = false
	}

	for _, line := range strings.SplitAfter(data, "\n") {
		if line == "" {
			continue
		}
		trimmed := strings.TrimRight(line, "\r\n")

		switch {
		case isDocumentStart(trimmed):
			if open {
				flush()
			}
			current.WriteString(line)
			open = true
		case isDocumentEnd(trimmed):
			current.WriteString(line)
			flush()
		default:
			current.WriteString(line)
			if !isPreambleLine(trimmed) {
				open = true
			}
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		flush()
	}

	return docs
}

func isDocumentStart(line string) bool {
	return line == "---" || strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "---\t")
}

func isDocumentEnd(line string) bool {
	return line == "..." || strings.HasPrefix(line, "... ")
}

// isPreambleLine reports lines that may precede a document start marker
// without being part of a document's content
func isPreambleLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(line, "%")
}
