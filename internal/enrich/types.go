// Package enrich builds an EnrichedCurriculum: topics, acquired or
// synthesized explanations, applications, example equations, commonly
// tested areas, exemplar question stems and a suggested Bloom's level.
package enrich

import (
	"fmt"
	"strings"
)

// EquationExample is a TeX equation with a short description.
type EquationExample struct {
	LaTeX       string `json:"latex"`
	Description string `json:"description"`
}

// EnrichedCurriculum is built once per request and not modified after
// Enrich returns it.
type EnrichedCurriculum struct {
	OriginalCurriculum      string            `json:"originalCurriculum"`
	KeyTopics               []string          `json:"keyTopics"`
	ConceptExplanations     map[string]string `json:"conceptExplanations"`
	EquationExamples        []EquationExample `json:"equationExamples"`
	RealWorldApplications   []string          `json:"realWorldApplications"`
	CommonlyTestedAreas     []string          `json:"commonlyTestedAreas"`
	UniversityLevelExamples []string          `json:"universityLevelExamples"`
	SuggestedBloomsLevel    int               `json:"suggestedBloomsLevel"`

	// Sources lists the pages acquired content came from.
	Sources []string `json:"sources,omitempty"`
	// Synthesized is set when no web content was usable.
	Synthesized bool `json:"synthesized"`
	// Rederived is set when the record came from the last-resort AI-only path.
	Rederived bool `json:"rederived"`
}

const (
	MaxApplications  = 10
	MaxTestedAreas   = 6
	MaxExampleStems  = 5
	MaxEquations     = 5
	maxPromptExplain = 400
)

var bloomLabels = [...]string{"", "Remember", "Understand", "Apply", "Analyze", "Evaluate", "Create"}

// BloomLabel names a Bloom's taxonomy level.
func BloomLabel(level int) string {
	if level < 1 || level > 6 {
		return "Unknown"
	}
	return bloomLabels[level]
}

func (ec *EnrichedCurriculum) validate() error {
	if len(ec.KeyTopics) == 0 {
		return fmt.Errorf("no key topics")
	}
	if ec.SuggestedBloomsLevel < 1 || ec.SuggestedBloomsLevel > 6 {
		return fmt.Errorf("bloom level %d out of range", ec.SuggestedBloomsLevel)
	}
	if len(ec.RealWorldApplications) > MaxApplications ||
		len(ec.CommonlyTestedAreas) > MaxTestedAreas ||
		len(ec.UniversityLevelExamples) > MaxExampleStems {
		return fmt.Errorf("enrichment exceeds list bounds")
	}
	return nil
}

// PromptContext renders the record as plain text for generation prompts.
func (ec *EnrichedCurriculum) PromptContext() string {
	if ec == nil {
		return ""
	}
	var b strings.Builder

	fmt.Fprintf(&b, "Key topics: %s\n", strings.Join(ec.KeyTopics, ", "))

	if len(ec.ConceptExplanations) > 0 {
		b.WriteString("\nConcept explanations:\n")
		for _, t := range ec.KeyTopics {
			if e, ok := ec.ConceptExplanations[t]; ok {
				fmt.Fprintf(&b, "- %s: %s\n", t, clip(e, maxPromptExplain))
			}
		}
	}

	if len(ec.EquationExamples) > 0 {
		b.WriteString("\nEquation examples:\n")
		for _, eq := range ec.EquationExamples {
			fmt.Fprintf(&b, "- %s (%s)\n", eq.LaTeX, eq.Description)
		}
	}

	writeList(&b, "Real-world applications", ec.RealWorldApplications)
	writeList(&b, "Commonly tested areas", ec.CommonlyTestedAreas)
	writeList(&b, "University-level example questions", ec.UniversityLevelExamples)

	fmt.Fprintf(&b, "\nSuggested Bloom's level: %d (%s)\n", ec.SuggestedBloomsLevel, BloomLabel(ec.SuggestedBloomsLevel))
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// orderedSet keeps the first occurrence of each case-insensitive value.
type orderedSet struct {
	items []string
	seen  map[string]bool
	max   int
}

func newOrderedSet(max int) *orderedSet {
	return &orderedSet{seen: make(map[string]bool), max: max}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if s.max > 0 && len(s.items) >= s.max {
			return
		}
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.items = append(s.items, v)
	}
}
