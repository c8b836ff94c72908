package questiongen

import "github.com/abhisek/assessgen/internal/llm"

// BatchSchema is the structural check applied to a cleaned batch response.
// It only insists on an array of objects; field-level problems are handled
// per question by the validators and the repair pass.
var BatchSchema = &llm.Schema{
	Name:        "question-batch",
	Description: "A batch of assessment questions",
	Definition: map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type":     "object",
			"required": []any{"questionText"},
			"properties": map[string]any{
				"questionText": map[string]any{"type": "string"},
				"questionType": map[string]any{"type": "string"},
				"options":      map[string]any{"type": []any{"array", "string", "null"}},
				"points":       map[string]any{"type": []any{"integer", "number", "string", "null"}},
			},
		},
	},
}
