package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/catalog"
	"github.com/abhisek/assessgen/internal/llm"
)

const synthSystemPrompt = `You are a university lecturer preparing study material.

Rules:
- For every listed topic write a clear 2-4 sentence explanation suitable for an undergraduate.
- List exactly 5 real-world applications of the subject as short phrases.
- Give up to 5 representative equations in LaTeX with a one-line description each. Use an empty list if the subject has no equations.
- Escape backslashes in LaTeX as required by JSON.
- Return ONLY a JSON object of the form:
  {"conceptExplanations": {"<topic>": "<explanation>"}, "realWorldApplications": ["..."], "equationExamples": [{"latex": "...", "description": "..."}]}`

// synthSchema is the structural check applied after cleanup.
var synthSchema = &llm.Schema{
	Name:        "content-synthesis",
	Description: "Synthesized explanations, applications and equations for a curriculum",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"conceptExplanations"},
		"properties": map[string]any{
			"conceptExplanations": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"realWorldApplications": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"equationExamples": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"latex"},
					"properties": map[string]any{
						"latex":       map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

// Synthesis is content manufactured from the curriculum text alone.
type Synthesis struct {
	ConceptExplanations   map[string]string
	RealWorldApplications []string
	EquationExamples      []EquationExample
	// Fallback is set when the fixed generic content was used.
	Fallback bool
}

// Synthesizer asks the model for educational context when nothing could
// be acquired from the web.
type Synthesizer struct {
	provider llm.Provider
	catalog  *catalog.Catalog
	logger   *zap.Logger
}

// NewSynthesizer creates a Synthesizer. A nil provider always yields the
// generic fallback.
func NewSynthesizer(provider llm.Provider, cat *catalog.Catalog, logger *zap.Logger) *Synthesizer {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{provider: provider, catalog: cat, logger: logger}
}

// Synthesize never fails: any transport or parse problem returns the
// catalog's generic explanations and applications.
func (s *Synthesizer) Synthesize(ctx context.Context, curriculum string, topics []string) Synthesis {
	if s.provider == nil {
		return s.fallback(topics)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Curriculum:\n%s\n\nTopics:\n", curriculum)
	for i, t := range topics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeContentSynth)
	req := llm.UserRequest(synthSystemPrompt, b.String(), 2048, 0.4)
	res := llm.GenerateJSON(ctx, s.provider, req, llm.ShapeObject, synthSchema)
	if !res.OK() {
		s.logger.Warn("content synthesis failed, using generic content",
			zap.Stringer("kind", res.Kind), zap.Error(res.Err()))
		return s.fallback(topics)
	}

	var payload struct {
		ConceptExplanations   map[string]string `json:"conceptExplanations"`
		RealWorldApplications []string          `json:"realWorldApplications"`
		EquationExamples      []EquationExample `json:"equationExamples"`
	}
	if err := res.Decode(&payload); err != nil {
		s.logger.Warn("content synthesis decode failed, using generic content", zap.Error(err))
		return s.fallback(topics)
	}

	out := Synthesis{ConceptExplanations: make(map[string]string, len(topics))}
	byLower := make(map[string]string, len(payload.ConceptExplanations))
	for k, v := range payload.ConceptExplanations {
		byLower[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	for _, t := range topics {
		if e := byLower[strings.ToLower(t)]; e != "" {
			out.ConceptExplanations[t] = e
		} else {
			out.ConceptExplanations[t] = catalog.Fill(s.catalog.Fallbacks.Explanation, t)
		}
	}

	apps := newOrderedSet(MaxApplications)
	apps.add(payload.RealWorldApplications...)
	out.RealWorldApplications = apps.items
	if len(out.RealWorldApplications) == 0 {
		out.RealWorldApplications = append([]string(nil), s.catalog.Fallbacks.Applications...)
	}

	for _, eq := range payload.EquationExamples {
		if len(out.EquationExamples) >= MaxEquations {
			break
		}
		if strings.TrimSpace(eq.LaTeX) == "" {
			continue
		}
		out.EquationExamples = append(out.EquationExamples, eq)
	}
	return out
}

func (s *Synthesizer) fallback(topics []string) Synthesis {
	out := Synthesis{
		ConceptExplanations:   make(map[string]string, len(topics)),
		RealWorldApplications: append([]string(nil), s.catalog.Fallbacks.Applications...),
		Fallback:              true,
	}
	for _, t := range topics {
		out.ConceptExplanations[t] = catalog.Fill(s.catalog.Fallbacks.Explanation, t)
	}
	return out
}
