// Package export writes assessments to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/assessgen/internal/assessment"
	"github.com/abhisek/assessgen/internal/enrich"
)

const (
	questionsSheet = "Questions"
	planSheet      = "Plan"
	contextSheet   = "Context"
)

var questionHeader = []any{
	"#", "Type", "Topic", "Question", "Option A", "Option B", "Option C", "Option D",
	"Extra Options", "Correct Answer", "Points", "Difficulty", "Explanation", "Expected Answer",
}

// WriteXLSX writes a with one row per question, the plan and the
// enrichment context, each on its own sheet.
func WriteXLSX(w io.Writer, a *assessment.Assessment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", questionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeQuestions(f, a, bold); err != nil {
		return err
	}
	if err := writePlan(f, a, bold); err != nil {
		return err
	}
	if a.Enrichment != nil {
		if err := writeContext(f, a.Enrichment, bold); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeQuestions(f *excelize.File, a *assessment.Assessment, header int) error {
	if err := writeRow(f, questionsSheet, 1, questionHeader); err != nil {
		return err
	}
	for i, q := range a.Questions {
		opts := make([]any, 5)
		for j := range 4 {
			opts[j] = ""
			if j < len(q.Options) {
				opts[j] = q.Options[j]
			}
		}
		opts[4] = ""
		if len(q.Options) > 4 {
			opts[4] = strings.Join(q.Options[4:], " | ")
		}

		row := []any{q.QuestionNumber, string(q.QuestionType), q.Topic, q.QuestionText}
		row = append(row, opts...)
		row = append(row, q.CorrectAnswer.String(), q.Points, q.Difficulty, q.Explanation, q.ExpectedAnswer)
		if err := writeRow(f, questionsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetCellStyle(questionsSheet, "A1", "N1", header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(questionsSheet, "D", "D", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(questionsSheet, "E", "I", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return f.SetPanes(questionsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writePlan(f *excelize.File, a *assessment.Assessment, header int) error {
	if _, err := f.NewSheet(planSheet); err != nil {
		return fmt.Errorf("create plan sheet: %w", err)
	}
	rows := [][]any{
		{"Title", a.Title},
		{"Subject or Role", a.SubjectOrRole},
		{"Difficulty", a.Difficulty},
		{"Cognitive Level", a.CognitiveLevel},
		{},
		{"Type", "Count"},
	}
	for _, it := range a.Plan {
		rows = append(rows, []any{string(it.Type), it.Count})
	}
	rows = append(rows, []any{"Total", a.Plan.Total()})

	for i, row := range rows {
		if err := writeRow(f, planSheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(planSheet, "A1", "A4", header); err != nil {
		return fmt.Errorf("style plan: %w", err)
	}
	return f.SetCellStyle(planSheet, "A6", "B6", header)
}

func writeContext(f *excelize.File, ec *enrich.EnrichedCurriculum, header int) error {
	if _, err := f.NewSheet(contextSheet); err != nil {
		return fmt.Errorf("create context sheet: %w", err)
	}
	rows := [][]any{
		{"Key Topics", strings.Join(ec.KeyTopics, ", ")},
		{"Bloom's Level", fmt.Sprintf("%d (%s)", ec.SuggestedBloomsLevel, enrich.BloomLabel(ec.SuggestedBloomsLevel))},
		{"Applications", strings.Join(ec.RealWorldApplications, "; ")},
		{"Commonly Tested", strings.Join(ec.CommonlyTestedAreas, "; ")},
	}
	for _, t := range ec.KeyTopics {
		if e, ok := ec.ConceptExplanations[t]; ok {
			rows = append(rows, []any{t, e})
		}
	}
	for i, row := range rows {
		if err := writeRow(f, contextSheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(contextSheet, "B", "B", 80); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return f.SetCellStyle(contextSheet, "A1", fmt.Sprintf("A%d", len(rows)), header)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
