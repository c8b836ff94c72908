// Package server exposes assessment generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/assessment"
	"github.com/abhisek/assessgen/internal/enrich"
	"github.com/abhisek/assessgen/internal/questiongen"
	"github.com/abhisek/assessgen/internal/store"
)

const maxBodyBytes = 1 << 20

// Service is the assessment functionality the HTTP API needs.
type Service interface {
	Generate(ctx context.Context, req assessment.Request) (*assessment.Assessment, error)
	Get(ctx context.Context, id string) (*assessment.Assessment, error)
	Enrich(ctx context.Context, curriculum string) (*enrich.EnrichedCurriculum, error)
	Plan(label string, total int) questiongen.Plan
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Handler serves the API routes.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// NewRouter builds the chi router for the API.
func NewRouter(svc Service, opts Options, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(logger), middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/assessments", h.CreateAssessment)
		r.Get("/assessments/{id}", h.GetAssessment)
		r.Post("/curriculum/enrich", h.EnrichCurriculum)
		r.Post("/plans", h.CreatePlan)
	})
	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateAssessment generates, stores and returns an assessment.
// ?view=student strips answers from the response.
func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessment.Request
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view(r, a))
}

// GetAssessment returns a stored assessment.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view(r, a))
}

type enrichRequest struct {
	Curriculum string `json:"curriculum"`
}

// EnrichCurriculum returns the enriched context for a curriculum.
func (h *Handler) EnrichCurriculum(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if !h.decode(w, r, &req) {
		return
	}
	ec, err := h.svc.Enrich(r.Context(), req.Curriculum)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ec)
}

type planRequest struct {
	SubjectOrRole  string `json:"subjectOrRole"`
	TotalQuestions int    `json:"totalQuestions,omitempty"`
}

type planResponse struct {
	SubjectOrRole string           `json:"subjectOrRole"`
	Total         int              `json:"total"`
	Plan          questiongen.Plan `json:"plan"`
}

// CreatePlan returns the question distribution for a role or subject.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.SubjectOrRole = strings.TrimSpace(req.SubjectOrRole)
	if req.SubjectOrRole == "" {
		writeErr(w, http.StatusBadRequest, "subjectOrRole is required")
		return
	}
	if req.TotalQuestions < 0 || req.TotalQuestions > assessment.MaxQuestions {
		writeErr(w, http.StatusBadRequest, "totalQuestions out of range")
		return
	}
	plan := h.svc.Plan(req.SubjectOrRole, req.TotalQuestions)
	writeJSON(w, http.StatusOK, planResponse{SubjectOrRole: req.SubjectOrRole, Total: plan.Total(), Plan: plan})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// respondError maps pipeline errors onto status codes. Only complete
// assessments are ever written, so every failure is a plain error body.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var exhausted *questiongen.ErrBatchExhausted
	switch {
	case errors.Is(err, assessment.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &exhausted):
		status = http.StatusBadGateway
	case errors.Is(err, questiongen.ErrNoProvider):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= 500 {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeErr(w, status, err.Error())
}

func view(r *http.Request, a *assessment.Assessment) *assessment.Assessment {
	if r.URL.Query().Get("view") == "student" {
		return a.StudentView()
	}
	return a
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResp struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
