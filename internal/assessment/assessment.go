// Package assessment runs the full generation flow for one request:
// enrich the curriculum, plan the question mix, generate, repair and
// persist. A request either yields a complete assessment or an error;
// nothing is stored on failure.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/enrich"
	"github.com/abhisek/assessgen/internal/fairness"
	"github.com/abhisek/assessgen/internal/questiongen"
	"github.com/abhisek/assessgen/internal/store"
)

var tracer = otel.Tracer("github.com/abhisek/assessgen/internal/assessment")

// ErrInvalidRequest marks errors caused by the caller's input.
var ErrInvalidRequest = errors.New("invalid request")

// MaxQuestions bounds Request.TotalQuestions.
const MaxQuestions = 100

// Request describes one assessment to generate.
type Request struct {
	SubjectOrRole  string `json:"subjectOrRole"`
	Difficulty     string `json:"difficulty"`
	CognitiveLevel string `json:"proficiencyOrCognitiveLevel"`
	Curriculum     string `json:"curriculum,omitempty"`
	Title          string `json:"title,omitempty"`
	TotalQuestions int    `json:"totalQuestions,omitempty"`
	StudentID      string `json:"studentId,omitempty"`

	// ExcludeFrom names a stored assessment whose questions must not be
	// repeated.
	ExcludeFrom string `json:"excludeFrom,omitempty"`
}

// Normalize trims the request and maps difficulty onto easy, medium or
// hard. It returns an error wrapping ErrInvalidRequest.
func (r Request) Normalize() (Request, error) {
	r.SubjectOrRole = strings.TrimSpace(r.SubjectOrRole)
	r.CognitiveLevel = strings.TrimSpace(r.CognitiveLevel)
	r.Curriculum = strings.TrimSpace(r.Curriculum)
	r.Title = strings.TrimSpace(r.Title)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.ExcludeFrom = strings.TrimSpace(r.ExcludeFrom)

	if r.SubjectOrRole == "" {
		return r, fmt.Errorf("%w: subjectOrRole is required", ErrInvalidRequest)
	}
	d, err := NormalizeDifficulty(r.Difficulty)
	if err != nil {
		return r, err
	}
	r.Difficulty = d
	if r.TotalQuestions < 0 || r.TotalQuestions > MaxQuestions {
		return r, fmt.Errorf("%w: totalQuestions must be between 0 (default) and %d", ErrInvalidRequest, MaxQuestions)
	}
	if r.Title == "" {
		r.Title = r.SubjectOrRole + " Assessment"
	}
	return r, nil
}

// NormalizeDifficulty accepts beginner/intermediate/advanced or
// easy/medium/hard and returns the latter. Empty means medium.
func NormalizeDifficulty(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "medium", "intermediate":
		return "medium", nil
	case "easy", "beginner":
		return "easy", nil
	case "hard", "advanced":
		return "hard", nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidRequest, s)
}

// Assessment is a generated, repaired question set.
type Assessment struct {
	ID             string                     `json:"assessmentId"`
	Title          string                     `json:"title"`
	SubjectOrRole  string                     `json:"subjectOrRole"`
	Difficulty     string                     `json:"difficulty"`
	CognitiveLevel string                     `json:"cognitiveLevel,omitempty"`
	Plan           questiongen.Plan           `json:"plan,omitempty"`
	Questions      []questiongen.Question     `json:"questions"`
	Enrichment     *enrich.EnrichedCurriculum `json:"enrichment,omitempty"`
	CreatedAt      time.Time                  `json:"createdAt"`
}

// StudentView returns a copy without answers, explanations or grading
// material.
func (a *Assessment) StudentView() *Assessment {
	v := *a
	v.Enrichment = nil
	v.Questions = make([]questiongen.Question, len(a.Questions))
	for i, q := range a.Questions {
		v.Questions[i] = q.StudentCopy()
	}
	return &v
}

// Enricher builds the enriched curriculum context.
type Enricher interface {
	Enrich(ctx context.Context, curriculum string) (*enrich.EnrichedCurriculum, error)
}

// Generator produces questions for a plan. Ready reports whether Generate
// can run at all, so a request without a model fails before enrichment.
type Generator interface {
	Ready() error
	Generate(ctx context.Context, in questiongen.GenerateInput) ([]questiongen.Question, error)
}

// Option configures a Service.
type Option func(*Service)

// WithAssigner sets the fairness assigner used when a request names a
// student.
func WithAssigner(a fairness.Assigner) Option {
	return func(s *Service) { s.assigner = a }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service generates and stores assessments.
type Service struct {
	enricher  Enricher
	planner   *questiongen.Planner
	generator Generator
	repo      store.AssessmentRepo
	assigner  fairness.Assigner
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Service. repo may be nil, in which case assessments are
// not persisted and Get always fails with store.ErrNotFound.
func New(enricher Enricher, planner *questiongen.Planner, generator Generator, repo store.AssessmentRepo, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		enricher:  enricher,
		planner:   planner,
		generator: generator,
		repo:      repo,
		assigner:  fairness.Identity{},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Plan returns the question plan for a subject or role label.
func (s *Service) Plan(label string, total int) questiongen.Plan {
	return s.planner.Plan(label, total)
}

// Enrich builds the enriched curriculum for text.
func (s *Service) Enrich(ctx context.Context, curriculum string) (*enrich.EnrichedCurriculum, error) {
	if strings.TrimSpace(curriculum) == "" {
		return nil, fmt.Errorf("%w: curriculum is required", ErrInvalidRequest)
	}
	return s.enricher.Enrich(ctx, curriculum)
}

// Generate runs the whole flow for req. The stored assessment always holds
// the full question set; when req names a student the returned questions
// are that student's assignment.
func (s *Service) Generate(ctx context.Context, req Request) (*Assessment, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "assessment.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("subject_or_role", req.SubjectOrRole),
		attribute.String("difficulty", req.Difficulty),
	)

	a, err := s.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("assessment generation failed",
			zap.String("subject_or_role", req.SubjectOrRole), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("assessment_id", a.ID), attribute.Int("questions", len(a.Questions)))
	return a, nil
}

func (s *Service) generate(ctx context.Context, req Request) (*Assessment, error) {
	if err := s.generator.Ready(); err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}
	curriculum := req.Curriculum
	if curriculum == "" {
		curriculum = req.SubjectOrRole
	}

	seen, err := s.excluded(ctx, req.ExcludeFrom)
	if err != nil {
		return nil, err
	}

	enriched, err := s.enricher.Enrich(ctx, curriculum)
	if err != nil {
		return nil, fmt.Errorf("enriching curriculum: %w", err)
	}

	plan := s.planner.Plan(req.SubjectOrRole, req.TotalQuestions)
	s.logger.Info("planned assessment",
		zap.String("subject_or_role", req.SubjectOrRole),
		zap.String("category", s.planner.Category(req.SubjectOrRole)),
		zap.Stringer("plan", plan))

	questions, err := s.generator.Generate(ctx, questiongen.GenerateInput{
		Plan:           plan,
		Enrichment:     enriched,
		Curriculum:     curriculum,
		Title:          req.Title,
		SubjectOrRole:  req.SubjectOrRole,
		Difficulty:     req.Difficulty,
		CognitiveLevel: req.CognitiveLevel,
		Seen:           seen,
	})
	if err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}
	questions = questiongen.Repair(questions, s.logger)

	a := &Assessment{
		ID:             uuid.NewString(),
		Title:          req.Title,
		SubjectOrRole:  req.SubjectOrRole,
		Difficulty:     req.Difficulty,
		CognitiveLevel: req.CognitiveLevel,
		Plan:           plan,
		Questions:      questions,
		Enrichment:     enriched,
		CreatedAt:      s.now(),
	}

	// A cancelled request must not leave a stored assessment behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, a); err != nil {
		return nil, err
	}

	if req.StudentID != "" {
		assigned, err := s.assigner.Assign(ctx, req.StudentID, a.Questions)
		if err != nil {
			return nil, fmt.Errorf("assigning questions to student: %w", err)
		}
		a.Questions = assigned
	}
	return a, nil
}

// Get loads a stored assessment.
func (s *Service) Get(ctx context.Context, id string) (*Assessment, error) {
	if s.repo == nil {
		return nil, store.ErrNotFound
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromRecord(rec)
}

// List returns stored assessment headers newest first.
func (s *Service) List(ctx context.Context, limit int) ([]store.AssessmentRecord, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) excluded(ctx context.Context, id string) ([]string, error) {
	if id == "" {
		return nil, nil
	}
	prev, err := s.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: assessment %q not found", ErrInvalidRequest, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading excluded assessment: %w", err)
	}
	texts := make([]string, len(prev.Questions))
	for i, q := range prev.Questions {
		texts[i] = q.QuestionText
	}
	return texts, nil
}

func (s *Service) persist(ctx context.Context, a *Assessment) error {
	if s.repo == nil {
		return nil
	}
	rec, err := toRecord(a)
	if err != nil {
		return err
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		return fmt.Errorf("storing assessment: %w", err)
	}
	s.logger.Info("assessment stored",
		zap.String("assessment_id", a.ID), zap.Int("questions", len(a.Questions)))
	return nil
}

func toRecord(a *Assessment) (*store.AssessmentRecord, error) {
	rec := &store.AssessmentRecord{
		ID:             a.ID,
		CreatedAt:      a.CreatedAt,
		Title:          a.Title,
		SubjectOrRole:  a.SubjectOrRole,
		Difficulty:     a.Difficulty,
		CognitiveLevel: a.CognitiveLevel,
	}
	for _, q := range a.Questions {
		body, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("encoding question %d: %w", q.QuestionNumber, err)
		}
		rec.QuestionTypes = append(rec.QuestionTypes, string(q.QuestionType))
		rec.Questions = append(rec.Questions, body)
	}
	if a.Enrichment != nil {
		body, err := json.Marshal(a.Enrichment)
		if err != nil {
			return nil, fmt.Errorf("encoding enrichment: %w", err)
		}
		rec.Enrichment = body
	}
	return rec, nil
}

func fromRecord(rec *store.AssessmentRecord) (*Assessment, error) {
	a := &Assessment{
		ID:             rec.ID,
		Title:          rec.Title,
		SubjectOrRole:  rec.SubjectOrRole,
		Difficulty:     rec.Difficulty,
		CognitiveLevel: rec.CognitiveLevel,
		CreatedAt:      rec.CreatedAt,
		Questions:      make([]questiongen.Question, len(rec.Questions)),
	}
	var types []questiongen.QuestionType
	for i, body := range rec.Questions {
		if err := json.Unmarshal(body, &a.Questions[i]); err != nil {
			return nil, fmt.Errorf("decoding question %d: %w", i+1, err)
		}
		types = append(types, a.Questions[i].QuestionType)
	}
	a.Plan = planOf(types)
	if len(rec.Enrichment) > 0 && string(rec.Enrichment) != "{}" {
		a.Enrichment = &enrich.EnrichedCurriculum{}
		if err := json.Unmarshal(rec.Enrichment, a.Enrichment); err != nil {
			return nil, fmt.Errorf("decoding enrichment: %w", err)
		}
	}
	return a, nil
}

// planOf rebuilds the type distribution of a stored question set.
func planOf(types []questiongen.QuestionType) questiongen.Plan {
	var p questiongen.Plan
	for _, t := range types {
		found := false
		for i := range p {
			if p[i].Type == t {
				p[i].Count++
				found = true
				break
			}
		}
		if !found {
			p = append(p, questiongen.PlanItem{Type: t, Count: 1})
		}
	}
	return p
}
