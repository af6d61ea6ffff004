package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// labelSchema describes the resolver output: display number -> label
var labelSchema = map[string]any{
	"type": "object",
	"additionalProperties": map[string]any{
		"type": "string",
	},
}

// extractionSchema describes one interview step
var extractionSchema = map[string]any{
	"type":     "object",
	"required": []any{"extracted_data"},
	"properties": map[string]any{
		"extracted_data": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type": []any{"string", "number", "boolean", "null"},
			},
		},
		"next_question": map[string]any{
			"type": []any{"string", "null"},
		},
	},
}

// compileSchema compiles a schema held as a Go map
func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// decodeValidated unmarshals data and validates it against schema. The
// decoded document is returned for further inspection.
func decodeValidated(schema *jsonschema.Schema, data []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("json is not an object")
	}
	return doc, nil
}
