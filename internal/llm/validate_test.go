package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-object",
		Description: "A test object",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string"},
				"age":   map[string]any{"type": "integer", "minimum": 0},
				"grade": map[string]any{"type": "string", "enum": []any{"A", "B", "C"}},
			},
			"required": []any{"name", "age"},
		},
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"name":"Alice","age":10,"grade":"A"}`, false},
		{"optional omitted", `{"name":"Bob","age":8}`, false},
		{"missing required", `{"name":"Carol"}`, true},
		{"wrong type", `{"name":"Dan","age":"ten"}`, true},
		{"bad enum", `{"name":"Eve","age":9,"grade":"F"}`, true},
		{"below minimum", `{"name":"Fay","age":-1}`, true},
		{"malformed", `{"name":`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON(testSchema(), json.RawMessage(tt.raw))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.raw, string(inv.Content))
		})
	}
}

func TestValidateJSON_NilSchema(t *testing.T) {
	assert.NoError(t, ValidateJSON(nil, json.RawMessage(`not even json`)))
}

func TestValidateJSON_GoLiteralDefinition(t *testing.T) {
	schema := &Schema{
		Name: "test-question-batch",
		Definition: map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"questionText": map[string]any{"type": "string", "minLength": 5},
					"options":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"questionText"},
			},
		},
	}

	assert.NoError(t, ValidateJSON(schema, json.RawMessage(`[{"questionText":"What is a heap?","options":["a","b"]}]`)))
	assert.Error(t, ValidateJSON(schema, json.RawMessage(`[]`)))
	assert.Error(t, ValidateJSON(schema, json.RawMessage(`[{"questionText":"Why"}]`)))
	assert.Error(t, ValidateJSON(schema, json.RawMessage(`[{"options":[1,2]}]`)))
}

func TestValidateJSON_UnnamedSchemaNotCached(t *testing.T) {
	strict := &Schema{Definition: map[string]any{"type": "string"}}
	loose := &Schema{Definition: map[string]any{"type": "number"}}

	assert.NoError(t, ValidateJSON(strict, json.RawMessage(`"text"`)))
	assert.NoError(t, ValidateJSON(loose, json.RawMessage(`3`)))
	assert.Error(t, ValidateJSON(loose, json.RawMessage(`"text"`)))
}
