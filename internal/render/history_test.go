package render

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/assessgen/internal/llm"
	"github.com/abhisek/assessgen/internal/store"
)

func TestLLMEvents(t *testing.T) {
	assert.Contains(t, LLMEvents(nil), "No LLM events found.")

	out := LLMEvents([]store.LLMRequestEvent{{
		ID:        7,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		LLMRequestEventData: store.LLMRequestEventData{
			Model:        "claude-haiku-4-5-20251001-with-a-very-long-suffix",
			Purpose:      llm.PurposeQuestionBatch,
			InputTokens:  1200,
			OutputTokens: 800,
			Success:      true,
		},
	}})
	assert.Contains(t, out, "question-batch")
	assert.Contains(t, out, "claude-haiku-4-5-20251001-w…")
	assert.Contains(t, out, "1200")
	assert.Contains(t, out, "✓")
}

func TestLLMEvent(t *testing.T) {
	out := LLMEvent(&store.LLMRequestEvent{
		ID: 3,
		LLMRequestEventData: store.LLMRequestEventData{
			Purpose:      llm.PurposeTopicExtract,
			ErrorMessage: "rate limited",
			RequestBody:  "[user]\nList topics.\n\n",
		},
	})
	assert.Contains(t, out, "topic-extract")
	assert.Contains(t, out, "rate limited")
	assert.Contains(t, out, "List topics.")
	assert.Contains(t, out, "(not captured)")
}

func TestLLMUsage(t *testing.T) {
	assert.Contains(t, LLMUsage(nil, nil), "No LLM usage recorded yet.")

	out := LLMUsage(
		[]store.LLMUsage{
			{Purpose: llm.PurposeQuestionBatch, Calls: 4, InputTokens: 4000, OutputTokens: 2000},
			{Purpose: llm.PurposeContentSynth, Calls: 1, InputTokens: 500, OutputTokens: 300},
		},
		[]store.ModelUsage{
			{Model: "gpt-4o-mini", Calls: 5, InputTokens: 4500, OutputTokens: 2300},
			{Model: "in-house-model", Calls: 1},
		},
	)
	assert.Contains(t, out, "TOTAL (partial)")
	assert.Contains(t, out, "in-house-model")
	assert.Contains(t, out, "6800")
}

func TestAssessments(t *testing.T) {
	assert.Contains(t, Assessments(nil), "No assessments stored yet.")

	out := Assessments([]store.AssessmentRecord{{
		ID:            "a1",
		Title:         "Data Structures Midterm",
		Difficulty:    "medium",
		QuestionTypes: []string{"mcq", "mcq", "descriptive", "mcq"},
		Questions:     make([]json.RawMessage, 4),
	}})
	assert.Contains(t, out, "Data Structures Midterm")
	assert.Contains(t, out, "mcq×3 descriptive×1")
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$0.0042", formatUSD(0.0042))
	assert.Equal(t, "$1.50", formatUSD(1.5))
}
