package questiongen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/llm"
)

var tracer = otel.Tracer("github.com/abhisek/assessgen/internal/questiongen")

// ErrNoProvider is returned when generation is attempted without a model.
var ErrNoProvider = errors.New("no generative provider configured")

var errNoValidQuestions = errors.New("batch contained no valid questions")

// ErrBatchExhausted means every attempt for one batch failed. The whole
// generation request fails with it; no partial question set is returned.
type ErrBatchExhausted struct {
	Batch    int
	Attempts int
	Err      error
}

func (e *ErrBatchExhausted) Error() string {
	return fmt.Sprintf("question batch %d failed after %d attempts: %v", e.Batch, e.Attempts, e.Err)
}

func (e *ErrBatchExhausted) Unwrap() error { return e.Err }

// Generator produces questions for a plan in fixed-size batches.
type Generator struct {
	provider llm.Provider
	config   Config
	logger   *zap.Logger
}

// New creates a Generator. Batch attempts are the only retry loop, so a
// provider retry layer is stripped from provider.
func New(provider llm.Provider, cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.Sleep == nil {
		cfg.Sleep = llm.SleepContext
	}
	if provider != nil {
		provider = llm.WithoutRetry(provider)
	}
	return &Generator{provider: provider, config: cfg, logger: logger}
}

// Ready returns ErrNoProvider when no model is configured.
func (g *Generator) Ready() error {
	if g.provider == nil {
		return ErrNoProvider
	}
	return nil
}

// Generate runs batches until the plan is filled. Questions whose
// normalized text was already seen in this session are discarded and their
// slots roll over to the next batch; up to MaxTopUpBatches extra batches
// are run to make up for them. The result is numbered 1..N.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) ([]Question, error) {
	if err := g.Ready(); err != nil {
		return nil, err
	}
	slots := in.Plan.Slots()
	if len(slots) == 0 {
		return nil, fmt.Errorf("plan requests no questions")
	}

	ctx, span := tracer.Start(ctx, "questiongen.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("requested", len(slots)))

	size := g.config.BatchSize
	planned := (len(slots) + size - 1) / size
	maxBatches := planned + max(g.config.MaxTopUpBatches, 0)

	seen := newSeenSet(in.Seen...)
	var out []Question
	pending := slots

	for batch := 1; len(pending) > 0 && batch <= maxBatches; batch++ {
		n := min(size, len(pending))
		batchSlots := pending[:n]

		qs, err := g.runBatch(ctx, in, batch, batchSlots, seen.texts)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		remaining := append([]QuestionType(nil), batchSlots...)
		for _, q := range qs {
			if len(remaining) == 0 {
				break
			}
			if !seen.add(q.QuestionText) {
				g.logger.Info("discarding duplicate question",
					zap.Int("batch", batch), zap.String("question", q.QuestionText))
				continue
			}
			remaining = consumeSlot(remaining, q.QuestionType)
			out = append(out, q)
		}

		g.logger.Debug("batch accepted",
			zap.Int("batch", batch),
			zap.Int("requested", n),
			zap.Int("accepted", n-len(remaining)))

		pending = append(remaining, pending[n:]...)
	}

	if len(pending) > 0 {
		g.logger.Warn("plan not fully filled",
			zap.Int("requested", len(slots)),
			zap.Int("generated", len(out)),
			zap.String("missing", planFromSlots(pending).String()))
	}

	for i := range out {
		out[i].QuestionNumber = i + 1
		out[i].ID = uuid.NewString()
	}
	span.SetAttributes(attribute.Int("generated", len(out)))
	return out, nil
}

// runBatch requests one batch, retrying the whole batch on transport,
// parse or structural failure with linear backoff.
func (g *Generator) runBatch(ctx context.Context, in GenerateInput, batch int, slots []QuestionType, prior []string) ([]Question, error) {
	ctx, span := tracer.Start(ctx, "questiongen.batch", trace.WithAttributes(
		attribute.Int("batch", batch),
		attribute.Int("slots", len(slots)),
	))
	defer span.End()

	req := llm.UserRequest(systemPrompt, buildUserMessage(in, slots, prior, g.config), g.config.MaxTokens, g.config.Temperature)
	callCtx := llm.WithPurpose(ctx, llm.PurposeQuestionBatch)

	policy := llm.RetryPolicy{
		MaxAttempts: g.config.MaxAttempts,
		BaseDelay:   g.config.BaseDelay,
		Backoff:     llm.LinearBackoff,
		Sleep:       g.config.Sleep,
		// A per-call timeout is a transport failure worth retrying; only
		// cancellation of the request itself stops the loop.
		ShouldRetry: func(error) bool { return ctx.Err() == nil },
	}

	var qs []Question
	err := llm.Retry(ctx, policy, func(attempt int) error {
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("attempt", attempt)))
		res := llm.GenerateJSON(callCtx, g.provider, req, llm.ShapeArray, BatchSchema)
		if !res.OK() {
			g.logger.Warn("question batch attempt failed",
				zap.Int("batch", batch), zap.Int("attempt", attempt),
				zap.Stringer("kind", res.Kind), zap.Error(res.Err()))
			return res.Err()
		}

		var raw []questionOutput
		if err := res.Decode(&raw); err != nil {
			g.logger.Warn("question batch decode failed",
				zap.Int("batch", batch), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}

		qs = g.normalize(raw, slots, in)
		if len(qs) == 0 {
			g.logger.Warn("question batch had no valid questions",
				zap.Int("batch", batch), zap.Int("attempt", attempt))
			return &llm.ErrInvalidResponse{Content: res.JSON, Err: errNoValidQuestions}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
		var exhausted *llm.ErrAttemptsExhausted
		if errors.As(err, &exhausted) {
			return nil, &ErrBatchExhausted{Batch: batch, Attempts: exhausted.Attempts, Err: exhausted.Err}
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("questions", len(qs)))
	return qs, nil
}

// normalize converts raw batch items into questions: positional numbering,
// slot type when the model omits one, and defaults for points, topic and
// explanation. Items failing a validator are dropped.
func (g *Generator) normalize(raw []questionOutput, slots []QuestionType, in GenerateInput) []Question {
	out := make([]Question, 0, len(raw))
	for i, r := range raw {
		qt, ok := ParseType(r.QuestionType)
		if !ok {
			qt = slotAt(slots, i)
		}

		q := Question{
			QuestionNumber:     i + 1,
			Skill:              strings.TrimSpace(r.Skill),
			QuestionType:       qt,
			QuestionText:       strings.TrimSpace(r.QuestionText),
			CorrectAnswer:      r.CorrectAnswer,
			Points:             int(r.Points),
			Difficulty:         strings.TrimSpace(r.Difficulty),
			Topic:              strings.TrimSpace(r.Topic),
			Explanation:        strings.TrimSpace(r.Explanation),
			ExpectedAnswer:     strings.TrimSpace(r.ExpectedAnswer.String()),
			EvaluationCriteria: []string(r.EvaluationCriteria),
			ExpectedKeywords:   []string(r.ExpectedKeywords),
		}
		for _, o := range r.Options {
			q.Options = append(q.Options, strings.TrimSpace(o))
		}

		if q.Skill == "" {
			q.Skill = in.SubjectOrRole
		}
		if q.Points <= 0 {
			q.Points = qt.DefaultPoints()
		}
		if q.Difficulty == "" {
			q.Difficulty = in.Difficulty
		}
		if q.Topic == "" {
			q.Topic = in.defaultTopic()
		}
		if q.Explanation == "" {
			q.Explanation = "No explanation provided."
		}

		if verr := g.validate(&q); verr != nil {
			g.logger.Info("dropping invalid question", zap.Int("position", i+1), zap.Error(verr))
			continue
		}
		out = append(out, q)
	}
	return out
}

func (g *Generator) validate(q *Question) error {
	for _, v := range g.config.Validators {
		if verr := v.Validate(q); verr != nil {
			return verr
		}
	}
	return nil
}

func slotAt(slots []QuestionType, i int) QuestionType {
	switch {
	case len(slots) == 0:
		return TypeMCQ
	case i < len(slots):
		return slots[i]
	default:
		return slots[len(slots)-1]
	}
}

// consumeSlot removes the first slot of type t, or the first slot when the
// batch asked for no such type.
func consumeSlot(slots []QuestionType, t QuestionType) []QuestionType {
	idx := 0
	for i, s := range slots {
		if s == t {
			idx = i
			break
		}
	}
	return append(slots[:idx:idx], slots[idx+1:]...)
}
