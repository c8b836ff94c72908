package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/assessgen/internal/assessment"
	"github.com/abhisek/assessgen/internal/enrich"
	"github.com/abhisek/assessgen/internal/questiongen"
)

func TestPlan(t *testing.T) {
	out := Plan("Software Engineer", questiongen.Plan{{Type: questiongen.TypeMCQ, Count: 10}, {Type: questiongen.TypeReasoning, Count: 5}})
	assert.Contains(t, out, "Software Engineer")
	assert.Contains(t, out, "(15 questions)")
	assert.Contains(t, out, " 10")
}

func TestEnrichment(t *testing.T) {
	out := Enrichment(&enrich.EnrichedCurriculum{
		KeyTopics:             []string{"Binary trees"},
		ConceptExplanations:   map[string]string{"Binary trees": "Two children."},
		RealWorldApplications: []string{"Indexes"},
		SuggestedBloomsLevel:  3,
		Synthesized:           true,
	})
	assert.Contains(t, out, "Binary trees")
	assert.Contains(t, out, "Indexes")
	assert.Contains(t, out, "[synthesized]")
	assert.Contains(t, out, "(Apply)")
}

func TestAssessment(t *testing.T) {
	a := &assessment.Assessment{
		ID:    "a-1",
		Title: "Trees",
		Questions: []questiongen.Question{
			{QuestionNumber: 1, QuestionType: questiongen.TypeMCQ, QuestionText: "Pick", Options: []string{"x", "y", "z", "w"},
				CorrectAnswer: questiongen.NumberAnswer(2), Points: 1, Explanation: "Because y"},
			{QuestionNumber: 2, QuestionType: questiongen.TypeNumerical, QuestionText: "2+2", CorrectAnswer: questiongen.NumberAnswer(4), Points: 2},
		},
	}

	withAnswers := Assessment(a, true)
	assert.Contains(t, withAnswers, "y ✓")
	assert.Contains(t, withAnswers, "Because y")

	without := Assessment(a, false)
	assert.NotContains(t, without, "✓")
	assert.NotContains(t, without, "Because y")
}

func TestCorrectIndex(t *testing.T) {
	q := questiongen.Question{Options: []string{"a", "b", "c", "d"}}

	q.CorrectAnswer = questiongen.NumberAnswer(3)
	assert.Equal(t, 2, correctIndex(q))
	q.CorrectAnswer = questiongen.TextAnswer("d")
	assert.Equal(t, 3, correctIndex(q))
	q.CorrectAnswer = questiongen.NumberAnswer(9)
	assert.Equal(t, -1, correctIndex(q))
}
