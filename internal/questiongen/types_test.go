package questiongen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := map[string]QuestionType{
		"mcq":             TypeMCQ,
		" MCQ ":           TypeMCQ,
		"multiple-choice": TypeMCQ,
		"pseudo-mcq":      TypePseudoMCQ,
		"Pseudocode":      TypePseudoMCQ,
		"circuit math":    TypeCircuitMath,
		"numerical":       TypeNumerical,
	}
	for in, want := range tests {
		got, ok := ParseType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseType("essay")
	assert.False(t, ok)
}

func TestAnswerJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Answer
	}{
		{`2`, NumberAnswer(2)},
		{`3.5`, NumberAnswer(3.5)},
		{`"B"`, TextAnswer("B")},
		{`null`, Answer{}},
		{`true`, TextAnswer("true")},
	}
	for _, tt := range tests {
		var a Answer
		require.NoError(t, json.Unmarshal([]byte(tt.in), &a), tt.in)
		assert.Equal(t, tt.want, a, tt.in)
	}

	q := Question{QuestionText: "q", QuestionType: TypeMCQ, Points: 1}
	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "correctAnswer")

	q.CorrectAnswer = NumberAnswer(2)
	b, err = json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"correctAnswer":2`)
}

func TestQuestionOutputLenientFields(t *testing.T) {
	var out questionOutput
	err := json.Unmarshal([]byte(`{"questionText": "q", "points": "3", "options": "only one", "evaluationCriteria": ["a", 2, null]}`), &out)
	require.NoError(t, err)

	assert.Equal(t, flexInt(3), out.Points)
	assert.Equal(t, flexStrings{"only one"}, out.Options)
	assert.Equal(t, flexStrings{"a", "2"}, out.EvaluationCriteria)
}

func TestStudentCopy(t *testing.T) {
	q := Question{
		QuestionType:       TypeMCQ,
		QuestionText:       "q",
		Options:            []string{"a", "b", "c", "d"},
		CorrectAnswer:      NumberAnswer(2),
		Explanation:        "because",
		ExpectedAnswer:     "x",
		EvaluationCriteria: []string{"c"},
		ExpectedKeywords:   []string{"k"},
	}

	s := q.StudentCopy()

	assert.True(t, s.CorrectAnswer.IsZero())
	assert.Empty(t, s.Explanation)
	assert.Empty(t, s.ExpectedAnswer)
	assert.Nil(t, s.EvaluationCriteria)
	assert.Nil(t, s.ExpectedKeywords)
	assert.Equal(t, q.Options, s.Options)
	assert.Equal(t, NumberAnswer(2), q.CorrectAnswer)
}

func TestDefaultPoints(t *testing.T) {
	assert.Equal(t, 5, TypeDescriptive.DefaultPoints())
	assert.Equal(t, 2, TypeCircuitMath.DefaultPoints())
	assert.Equal(t, 1, TypeReasoning.DefaultPoints())
}
