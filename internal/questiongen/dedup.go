package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/assessgen/internal/sanitize"
)

// seenSet holds the normalized text of every question accepted in one
// generation session. It only grows.
type seenSet struct {
	keys  map[string]bool
	texts []string
}

func newSeenSet(initial ...string) *seenSet {
	s := &seenSet{keys: make(map[string]bool)}
	for _, t := range initial {
		s.add(t)
	}
	return s
}

func (s *seenSet) has(text string) bool {
	return s.keys[sanitize.Normalize(text)]
}

// add records text and reports whether it was new.
func (s *seenSet) add(text string) bool {
	key := sanitize.Normalize(text)
	if key == "" || s.keys[key] {
		return false
	}
	s.keys[key] = true
	s.texts = append(s.texts, strings.TrimSpace(text))
	return true
}

func (s *seenSet) len() int { return len(s.texts) }

// buildDedup formats prior questions for the prompt, respecting the max limit.
// Returns "None" if there are no prior questions. A non-positive max keeps
// every question.
func buildDedup(priorQuestions []string, max int) string {
	if len(priorQuestions) == 0 {
		return "None"
	}

	// Keep only the most recent N questions.
	if max > 0 && len(priorQuestions) > max {
		priorQuestions = priorQuestions[len(priorQuestions)-max:]
	}

	var b strings.Builder
	for i, q := range priorQuestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}
