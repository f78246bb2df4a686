package descriptors

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// toJSONValue converts a decoded YAML value into the plain JSON value model
// (map[string]any, []any, json.Number, string, bool, nil) used by validators
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(stringKeys(v))
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// stringKeys rewrites mappings with non-string keys, which YAML allows and JSON does not
func stringKeys(v any) any {
	switch value := v.(type) {
	case map[any]any:
		converted := make(map[string]any, len(value))
		for key, item := range value {
			converted[fmt.Sprint(key)] = stringKeys(item)
		}
		return converted
	case map[string]any:
		converted := make(map[string]any, len(value))
		for key, item := range value {
			converted[key] = stringKeys(item)
		}
		return converted
	case []any:
		converted := make([]any, len(value))
		for i, item := range value {
			converted[i] = stringKeys(item)
		}
		return converted
	default:
		return v
	}
}
