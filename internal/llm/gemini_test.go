package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-flash", geminiModels))
	assert.Equal(t, "gemini-2.0-pro", resolveModel("gemini-pro", geminiModels))
	assert.Equal(t, "gemini-2.5-flash", resolveModel("gemini-2.5-flash", geminiModels))
}

func TestBuildGeminiSchema_QuestionBatch(t *testing.T) {
	def := map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questionText": map[string]any{"type": "string"},
				"questionType": map[string]any{"type": "string", "enum": []any{"mcq", "descriptive"}},
				"points":       map[string]any{"type": "integer"},
				"options": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"maxItems": float64(4),
				},
			},
			"required": []string{"questionText", "questionType"},
		},
	}

	schema := buildGeminiSchema(def)

	assert.Equal(t, genai.TypeArray, schema.Type)
	require.NotNil(t, schema.MinItems)
	assert.EqualValues(t, 1, *schema.MinItems)

	item := schema.Items
	require.NotNil(t, item)
	assert.Equal(t, genai.TypeObject, item.Type)
	assert.Len(t, item.Properties, 4)
	assert.Equal(t, []string{"questionText", "questionType"}, item.Required)
	assert.Equal(t, []string{"mcq", "descriptive"}, item.Properties["questionType"].Enum)
	assert.Equal(t, genai.TypeInteger, item.Properties["points"].Type)

	opts := item.Properties["options"]
	assert.Equal(t, genai.TypeString, opts.Items.Type)
	require.NotNil(t, opts.MaxItems)
	assert.EqualValues(t, 4, *opts.MaxItems)
}

func TestMapGeminiStopReason(t *testing.T) {
	candidate := func(r genai.FinishReason) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: r}}}
	}
	assert.Equal(t, StopEnd, mapGeminiStopReason(candidate(genai.FinishReasonStop)))
	assert.Equal(t, StopMaxTokens, mapGeminiStopReason(candidate(genai.FinishReasonMaxTokens)))
	assert.Equal(t, StopFiltered, mapGeminiStopReason(candidate(genai.FinishReasonSafety)))

	blocked := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}
	assert.Equal(t, StopFiltered, mapGeminiStopReason(blocked))
}
