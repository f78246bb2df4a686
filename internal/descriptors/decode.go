package descriptors

import (
	"bytes"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DecodeComponent restores a component previously serialized as JSON by
// running it through the envelope and schema stages again
func (p *Parser) DecodeComponent(data []byte) (ComponentDescriptor, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, newError(ErrMalformedDocument, "stored component is not valid JSON", err)
	}

	envelope, err := ParseEnvelope(doc)
	if err != nil {
		return nil, err
	}

	return p.schemas.Validate(envelope)
}
