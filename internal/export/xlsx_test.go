package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/assessgen/internal/assessment"
	"github.com/abhisek/assessgen/internal/enrich"
	"github.com/abhisek/assessgen/internal/questiongen"
)

func TestWriteXLSX(t *testing.T) {
	a := &assessment.Assessment{
		ID:            "a-1",
		Title:         "Trees",
		SubjectOrRole: "Software Engineer",
		Difficulty:    "medium",
		Plan:          questiongen.Plan{{Type: questiongen.TypeMCQ, Count: 1}, {Type: questiongen.TypeDescriptive, Count: 1}},
		Questions: []questiongen.Question{
			{QuestionNumber: 1, QuestionType: questiongen.TypeMCQ, QuestionText: "What is a BST?",
				Options: []string{"a", "b", "c", "d", "e"}, CorrectAnswer: questiongen.TextAnswer("e"), Points: 1},
			{QuestionNumber: 2, QuestionType: questiongen.TypeDescriptive, QuestionText: "Explain rotations.",
				ExpectedAnswer: "They rebalance.", Points: 5},
		},
		Enrichment: &enrich.EnrichedCurriculum{
			KeyTopics:            []string{"Binary trees"},
			ConceptExplanations:  map[string]string{"Binary trees": "Two children at most."},
			SuggestedBloomsLevel: 4,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, a))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{questionsSheet, planSheet, contextSheet}, f.GetSheetList())

	rows, err := f.GetRows(questionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Question", rows[0][3])
	assert.Equal(t, []string{"1", "mcq", "", "What is a BST?", "a", "b", "c", "d", "e", "e", "1"}, rows[1][:11])
	assert.Equal(t, "They rebalance.", rows[2][13])

	total, err := f.GetCellValue(planSheet, "B9")
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	bloom, err := f.GetCellValue(contextSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "4 (Analyze)", bloom)
}
