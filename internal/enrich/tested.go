package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/catalog"
	"github.com/abhisek/assessgen/internal/llm"
)

const testedAreasPrompt = `You are an experienced university examiner.

List the areas of this curriculum that are most commonly tested in university examinations.
Return ONLY a JSON array of at most 6 short strings.`

const exampleStemsPrompt = `You are an experienced university examiner.

Write university-level example exam questions for this curriculum. Each question should require reasoning, not recall.
Return ONLY a JSON array of at most 5 question strings.`

// TestedAreas asks for the commonly tested areas of a curriculum, falling
// back to the catalog's generic list.
func (s *Synthesizer) TestedAreas(ctx context.Context, curriculum string, topics []string) []string {
	fallback := append([]string(nil), s.catalog.Fallbacks.TestedAreas...)
	if len(fallback) > MaxTestedAreas {
		fallback = fallback[:MaxTestedAreas]
	}
	return s.generateList(ctx, llm.PurposeTestedAreas, testedAreasPrompt, curriculum, topics, MaxTestedAreas, fallback)
}

// ExampleStems asks for university-level example questions, falling back
// to the catalog's templates filled with the leading topics.
func (s *Synthesizer) ExampleStems(ctx context.Context, curriculum string, topics []string) []string {
	var fallback []string
	for i, tmpl := range s.catalog.Fallbacks.ExampleStems {
		if i >= MaxExampleStems {
			break
		}
		topic := s.catalog.TerminalTopic
		if len(topics) > 0 {
			topic = topics[i%len(topics)]
		}
		fallback = append(fallback, catalog.Fill(tmpl, topic))
	}
	return s.generateList(ctx, llm.PurposeExemplarStems, exampleStemsPrompt, curriculum, topics, MaxExampleStems, fallback)
}

func (s *Synthesizer) generateList(ctx context.Context, purpose, system, curriculum string, topics []string, max int, fallback []string) []string {
	if s.provider == nil {
		return fallback
	}

	user := fmt.Sprintf("Curriculum:\n%s\n\nKey topics: %s", curriculum, strings.Join(topics, ", "))
	req := llm.UserRequest(system, user, 1024, 0.3)
	res := llm.GenerateJSON(llm.WithPurpose(ctx, purpose), s.provider, req, llm.ShapeArray, nil)
	if !res.OK() {
		s.logger.Warn("list generation failed, using generic content",
			zap.String("purpose", purpose), zap.Stringer("kind", res.Kind), zap.Error(res.Err()))
		return fallback
	}

	var raw []any
	if err := res.Decode(&raw); err != nil {
		return fallback
	}
	set := newOrderedSet(max)
	for _, v := range raw {
		if str, ok := v.(string); ok {
			set.add(str)
		}
	}
	if len(set.items) == 0 {
		s.logger.Warn("list generation returned no strings, using generic content", zap.String("purpose", purpose))
		return fallback
	}
	return set.items
}
