package enrich

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/acquire"
	"github.com/abhisek/assessgen/internal/catalog"
	"github.com/abhisek/assessgen/internal/llm"
	"github.com/abhisek/assessgen/internal/topics"
)

var tracer = otel.Tracer("github.com/abhisek/assessgen/internal/enrich")

// ContentSource acquires web material for a list of topics. Results are
// indexed like the input.
type ContentSource interface {
	AcquireAll(ctx context.Context, topics []string) [][]acquire.Snippet
}

// Aggregator assembles an EnrichedCurriculum from topic extraction, web
// acquisition or synthesis, and the tested-areas and example calls.
type Aggregator struct {
	extractor *topics.Extractor
	source    ContentSource
	synth     *Synthesizer
	catalog   *catalog.Catalog
	logger    *zap.Logger
}

// NewAggregator wires the enrichment stages. source may be nil to skip web
// acquisition; provider may be nil to run every stage on its fallback.
func NewAggregator(provider llm.Provider, source ContentSource, cat *catalog.Catalog, logger *zap.Logger) *Aggregator {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		extractor: topics.NewExtractor(provider, cat, logger.Named("topics")),
		source:    source,
		synth:     NewSynthesizer(provider, cat, logger.Named("synth")),
		catalog:   cat,
		logger:    logger,
	}
}

// Enrich builds the record for curriculum. Failures inside the pipeline are
// absorbed: if aggregation itself fails, one AI-only re-derivation runs
// instead. Only context cancellation is returned as an error.
func (a *Aggregator) Enrich(ctx context.Context, curriculum string) (*EnrichedCurriculum, error) {
	ctx, span := tracer.Start(ctx, "enrich.curriculum")
	defer span.End()

	ec, err := a.aggregate(ctx, curriculum)
	if err == nil {
		span.SetAttributes(
			attribute.Int("topics", len(ec.KeyTopics)),
			attribute.Bool("synthesized", ec.Synthesized),
		)
		return ec, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		span.SetStatus(codes.Error, ctxErr.Error())
		return nil, ctxErr
	}

	a.logger.Error("enrichment failed, re-deriving from the model alone", zap.Error(err))
	span.RecordError(err)

	ec = a.rederive(ctx, curriculum)
	if ctxErr := ctx.Err(); ctxErr != nil {
		span.SetStatus(codes.Error, ctxErr.Error())
		return nil, ctxErr
	}
	span.SetAttributes(attribute.Bool("rederived", true))
	return ec, nil
}

func (a *Aggregator) aggregate(ctx context.Context, curriculum string) (ec *EnrichedCurriculum, err error) {
	defer func() {
		if r := recover(); r != nil {
			ec, err = nil, fmt.Errorf("enrichment panicked: %v", r)
		}
	}()

	keyTopics, tier := a.extractor.Extract(ctx, curriculum)
	a.logger.Info("topics extracted", zap.String("tier", string(tier)), zap.Int("count", len(keyTopics)))

	ec = &EnrichedCurriculum{
		OriginalCurriculum:  curriculum,
		KeyTopics:           keyTopics,
		ConceptExplanations: make(map[string]string, len(keyTopics)),
	}

	apps := newOrderedSet(MaxApplications)
	usable := 0
	if a.source != nil {
		perTopic := a.source.AcquireAll(ctx, keyTopics)
		if len(perTopic) != len(keyTopics) {
			return nil, fmt.Errorf("content source returned %d slots for %d topics", len(perTopic), len(keyTopics))
		}
		sources := newOrderedSet(0)
		for i, topic := range keyTopics {
			for _, s := range perTopic[i] {
				if !s.Usable() {
					continue
				}
				usable++
				sources.add(s.URL)
				if _, ok := ec.ConceptExplanations[topic]; !ok && s.Summary != "" {
					ec.ConceptExplanations[topic] = s.Summary
				}
				for _, eq := range s.Equations {
					if len(ec.EquationExamples) < MaxEquations {
						ec.EquationExamples = append(ec.EquationExamples, EquationExample{
							LaTeX:       eq,
							Description: fmt.Sprintf("%s (%s)", topic, s.Title),
						})
					}
				}
				apps.add(s.Applications...)
			}
		}
		ec.Sources = sources.items
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if usable == 0 {
		a.logger.Info("no usable web content, synthesizing")
		syn := a.synth.Synthesize(ctx, curriculum, keyTopics)
		ec.ConceptExplanations = syn.ConceptExplanations
		ec.EquationExamples = syn.EquationExamples
		apps.add(syn.RealWorldApplications...)
		ec.Synthesized = true
	} else {
		for _, t := range keyTopics {
			if _, ok := ec.ConceptExplanations[t]; !ok {
				ec.ConceptExplanations[t] = catalog.Fill(a.catalog.Fallbacks.Explanation, t)
			}
		}
		if len(apps.items) == 0 {
			apps.add(a.catalog.Fallbacks.Applications...)
		}
	}
	ec.RealWorldApplications = apps.items

	ec.CommonlyTestedAreas = a.synth.TestedAreas(ctx, curriculum, keyTopics)
	ec.UniversityLevelExamples = a.synth.ExampleStems(ctx, curriculum, keyTopics)
	ec.SuggestedBloomsLevel = SuggestBloomsLevel(a.catalog.BloomTiers, a.catalog.DefaultBloomLevel, curriculum)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ec.validate(); err != nil {
		return nil, err
	}
	return ec, nil
}

// rederive builds the record from the model alone: AI topics or the
// terminal label, then synthesis, tested areas and examples. It recovers
// its own panics and degrades to the generic record.
func (a *Aggregator) rederive(ctx context.Context, curriculum string) (ec *EnrichedCurriculum) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("re-derivation panicked, returning generic record", zap.Any("panic", r))
			ec = a.generic(curriculum)
		}
	}()

	keyTopics, err := a.extractor.FromAI(ctx, curriculum)
	if err != nil {
		if !errors.Is(err, topics.ErrNoTopics) {
			a.logger.Warn("ai topics unavailable during re-derivation", zap.Error(err))
		}
		keyTopics = []string{a.catalog.TerminalTopic}
	}

	syn := a.synth.Synthesize(ctx, curriculum, keyTopics)
	apps := newOrderedSet(MaxApplications)
	apps.add(syn.RealWorldApplications...)

	return &EnrichedCurriculum{
		OriginalCurriculum:      curriculum,
		KeyTopics:               keyTopics,
		ConceptExplanations:     syn.ConceptExplanations,
		EquationExamples:        syn.EquationExamples,
		RealWorldApplications:   apps.items,
		CommonlyTestedAreas:     a.synth.TestedAreas(ctx, curriculum, keyTopics),
		UniversityLevelExamples: a.synth.ExampleStems(ctx, curriculum, keyTopics),
		SuggestedBloomsLevel:    SuggestBloomsLevel(a.catalog.BloomTiers, a.catalog.DefaultBloomLevel, curriculum),
		Synthesized:             true,
		Rederived:               true,
	}
}

func (a *Aggregator) generic(curriculum string) *EnrichedCurriculum {
	keyTopics := []string{a.catalog.TerminalTopic}
	syn := a.synth.fallback(keyTopics)
	stems := make([]string, 0, len(a.catalog.Fallbacks.ExampleStems))
	for _, tmpl := range a.catalog.Fallbacks.ExampleStems {
		stems = append(stems, catalog.Fill(tmpl, a.catalog.TerminalTopic))
	}
	if len(stems) > MaxExampleStems {
		stems = stems[:MaxExampleStems]
	}
	return &EnrichedCurriculum{
		OriginalCurriculum:      curriculum,
		KeyTopics:               keyTopics,
		ConceptExplanations:     syn.ConceptExplanations,
		RealWorldApplications:   capList(syn.RealWorldApplications, MaxApplications),
		CommonlyTestedAreas:     capList(a.catalog.Fallbacks.TestedAreas, MaxTestedAreas),
		UniversityLevelExamples: stems,
		SuggestedBloomsLevel:    a.catalog.DefaultBloomLevel,
		Synthesized:             true,
		Rederived:               true,
	}
}

func capList(items []string, n int) []string {
	out := append([]string(nil), items...)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Topics exposes the extractor used by the aggregator.
func (a *Aggregator) Topics() *topics.Extractor {
	return a.extractor
}

// Summary is a one-line description for logs and CLI output.
func (ec *EnrichedCurriculum) Summary() string {
	src := "web"
	switch {
	case ec.Rederived:
		src = "rederived"
	case ec.Synthesized:
		src = "synthesized"
	}
	return fmt.Sprintf("%d topics (%s), %d applications, bloom %d",
		len(ec.KeyTopics), src, len(ec.RealWorldApplications), ec.SuggestedBloomsLevel)
}
