package render

import (
	"fmt"
	"strings"

	"github.com/abhisek/assessgen/internal/assessment"
	"github.com/abhisek/assessgen/internal/enrich"
	"github.com/abhisek/assessgen/internal/questiongen"
)

// Plan renders a question plan as an aligned table.
func Plan(label string, plan questiongen.Plan) string {
	var b strings.Builder
	b.WriteString(Title.Render(label))
	b.WriteString(" ")
	b.WriteString(Dim.Render(fmt.Sprintf("(%d questions)", plan.Total())))
	b.WriteString("\n")
	for _, it := range plan {
		fmt.Fprintf(&b, "  %s %s\n", Label.Render(fmt.Sprintf("%-13s", it.Type)), fmt.Sprintf("%3d", it.Count))
	}
	return b.String()
}

// Enrichment renders an enriched curriculum.
func Enrichment(ec *enrich.EnrichedCurriculum) string {
	var b strings.Builder
	b.WriteString(Title.Render("Enriched curriculum"))
	switch {
	case ec.Rederived:
		b.WriteString(" " + Warning.Render("[re-derived]"))
	case ec.Synthesized:
		b.WriteString(" " + Hint.Render("[synthesized]"))
	}
	b.WriteString("\n\n")

	b.WriteString(Heading.Render("Key topics"))
	b.WriteString("\n")
	for _, t := range ec.KeyTopics {
		fmt.Fprintf(&b, "  • %s\n", t)
		if e, ok := ec.ConceptExplanations[t]; ok {
			fmt.Fprintf(&b, "    %s\n", Dim.Render(e))
		}
	}

	if len(ec.EquationExamples) > 0 {
		b.WriteString("\n" + Heading.Render("Equations") + "\n")
		for _, eq := range ec.EquationExamples {
			fmt.Fprintf(&b, "  %s  %s\n", eq.LaTeX, Dim.Render(eq.Description))
		}
	}
	section(&b, "Real-world applications", ec.RealWorldApplications)
	section(&b, "Commonly tested areas", ec.CommonlyTestedAreas)
	section(&b, "University-level examples", ec.UniversityLevelExamples)
	section(&b, "Sources", ec.Sources)

	fmt.Fprintf(&b, "\n%s %d (%s)\n", Label.Render("Suggested Bloom's level:"),
		ec.SuggestedBloomsLevel, enrich.BloomLabel(ec.SuggestedBloomsLevel))
	return b.String()
}

// Assessment renders every question. When answers is false correct
// answers and grading material are left out.
func Assessment(a *assessment.Assessment, answers bool) string {
	var b strings.Builder
	b.WriteString(Title.Render(a.Title))
	b.WriteString("\n")
	b.WriteString(Dim.Render(fmt.Sprintf("%s · %s · %d questions · %s",
		a.SubjectOrRole, a.Difficulty, len(a.Questions), a.ID)))
	b.WriteString("\n\n")
	for _, q := range a.Questions {
		b.WriteString(Card.Render(question(q, answers)))
		b.WriteString("\n")
	}
	return b.String()
}

func question(q questiongen.Question, answers bool) string {
	var b strings.Builder
	points := "pts"
	if q.Points == 1 {
		points = "pt"
	}
	fmt.Fprintf(&b, "%s %s\n", Heading.Render(fmt.Sprintf("Q%d", q.QuestionNumber)),
		Dim.Render(fmt.Sprintf("[%s] %d %s", q.QuestionType, q.Points, points)))
	b.WriteString(q.QuestionText)

	correct := correctIndex(q)
	for i, o := range q.Options {
		line := fmt.Sprintf("%c. %s", 'A'+i, o)
		if answers && i == correct {
			line = Correct.Render(line + " ✓")
		}
		b.WriteString("\n  " + line)
	}

	if !answers {
		return b.String()
	}
	if len(q.Options) == 0 && !q.CorrectAnswer.IsZero() {
		b.WriteString("\n" + Label.Render("Answer: ") + q.CorrectAnswer.String())
	}
	if q.ExpectedAnswer != "" {
		b.WriteString("\n" + Label.Render("Expected: ") + q.ExpectedAnswer)
	}
	if len(q.EvaluationCriteria) > 0 {
		b.WriteString("\n" + Label.Render("Criteria: ") + strings.Join(q.EvaluationCriteria, "; "))
	}
	if q.Explanation != "" {
		b.WriteString("\n" + Hint.Render(q.Explanation))
	}
	return b.String()
}

// correctIndex returns the 0-based option index of the correct answer, or -1.
func correctIndex(q questiongen.Question) int {
	switch q.CorrectAnswer.Kind {
	case questiongen.AnswerNumber:
		i := int(q.CorrectAnswer.Number) - 1
		if i >= 0 && i < len(q.Options) {
			return i
		}
	case questiongen.AnswerText:
		for i, o := range q.Options {
			if o == q.CorrectAnswer.Text {
				return i
			}
		}
	}
	return -1
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + Heading.Render(title) + "\n")
	for _, it := range items {
		fmt.Fprintf(b, "  • %s\n", it)
	}
}
