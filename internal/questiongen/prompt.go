package questiongen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a university examiner writing assessment questions.

Rules:
- Write exactly the requested number of questions of each requested type.
- Every question must be self-contained, unambiguous and answerable from the curriculum.
- mcq, pseudo_mcq, aptitude and reasoning questions have exactly 4 options and correctAnswer is the 1-based index of the correct option.
- pseudo_mcq questions show a short pseudocode snippet in questionText and ask about its behaviour or output.
- numerical and circuit_math questions have no options; correctAnswer is a plain number and explanation shows the working.
- descriptive questions have no options and no correctAnswer; give expectedAnswer, evaluationCriteria and expectedKeywords instead.
- Write mathematics in LaTeX and escape backslashes as JSON requires.
- Do not repeat or paraphrase any question from the "already asked" list.
- Return ONLY a JSON array. No prose, no code fences.

Each array element has the fields:
{"questionNumber": 1, "skill": "...", "questionType": "mcq", "questionText": "...", "options": ["...", "...", "...", "..."], "correctAnswer": 1, "points": 1, "difficulty": "...", "topic": "...", "explanation": "...", "expectedAnswer": "...", "evaluationCriteria": ["..."], "expectedKeywords": ["..."]}`

// buildUserMessage constructs the prompt for one batch.
func buildUserMessage(in GenerateInput, slots []QuestionType, prior []string, cfg Config) string {
	var b strings.Builder

	if in.Title != "" {
		fmt.Fprintf(&b, "Assessment: %s\n", in.Title)
	}
	if in.SubjectOrRole != "" {
		fmt.Fprintf(&b, "Subject or role: %s\n", in.SubjectOrRole)
	}
	fmt.Fprintf(&b, "Difficulty: %s\n", orDefault(in.Difficulty, "medium"))
	if in.CognitiveLevel != "" {
		fmt.Fprintf(&b, "Cognitive level: %s\n", in.CognitiveLevel)
	}

	if in.Curriculum != "" {
		b.WriteString("\nCurriculum:\n")
		b.WriteString(in.Curriculum)
		b.WriteString("\n")
	}

	if ctx := in.Enrichment.PromptContext(); ctx != "" {
		b.WriteString("\nEnriched context:\n")
		b.WriteString(ctx)
	}

	fmt.Fprintf(&b, "\nWrite %d questions with this type distribution:\n", len(slots))
	b.WriteString(describeSlots(slots))

	b.WriteString("\n\nAlready asked in this session (do not repeat):\n")
	b.WriteString(buildDedup(prior, cfg.MaxPriorQuestions))

	return b.String()
}

// describeSlots renders "- mcq: 3" lines in first-appearance order.
func describeSlots(slots []QuestionType) string {
	plan := planFromSlots(slots)
	lines := make([]string, len(plan))
	for i, it := range plan {
		lines[i] = fmt.Sprintf("- %s: %d", it.Type, it.Count)
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
