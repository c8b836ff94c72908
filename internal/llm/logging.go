package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/store"
)

// maxCapturedBody bounds the request and response text kept per event.
const maxCapturedBody = 64 << 10

// LoggingProvider records every call in the event log and writes a
// structured log line for it.
type LoggingProvider struct {
	inner     Provider
	eventRepo store.EventRepo
	logger    *zap.Logger
}

// WithLogging wraps p. A nil repo disables the event log and keeps the log
// line.
func WithLogging(p Provider, repo store.EventRepo, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, eventRepo: repo, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	ev := l.event(PurposeFrom(ctx), req, resp, err, time.Since(start))

	fields := []zap.Field{
		zap.String("purpose", ev.Purpose),
		zap.String("model", ev.Model),
		zap.Int64("latency_ms", ev.LatencyMs),
		zap.Int("input_tokens", ev.InputTokens),
		zap.Int("output_tokens", ev.OutputTokens),
	}
	if err != nil {
		l.logger.Warn("llm request failed", append(fields, zap.Error(err))...)
	} else {
		l.logger.Debug("llm request", fields...)
	}

	// A failed write to the event log never fails the call.
	if l.eventRepo != nil {
		if werr := l.eventRepo.AppendLLMRequest(ctx, ev); werr != nil {
			l.logger.Warn("failed to record llm request event", zap.Error(werr))
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) event(purpose string, req Request, resp *Response, err error, took time.Duration) store.LLMRequestEventData {
	ev := store.LLMRequestEventData{
		Provider:    l.inner.ModelID(),
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   took.Milliseconds(),
		Success:     err == nil,
		RequestBody: capBody(serializeRequest(req)),
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = capBody(string(resp.Content))
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		// Keep what the model produced before a parse or length failure.
		if raw := rawContent(err); ev.ResponseBody == "" && len(raw) > 0 {
			ev.ResponseBody = capBody(string(raw))
		}
	}
	return ev
}

func rawContent(err error) []byte {
	switch e := err.(type) {
	case *ErrInvalidResponse:
		return e.Content
	case *ErrMaxTokensExceeded:
		return e.Content
	}
	return nil
}

func capBody(s string) string {
	if len(s) <= maxCapturedBody {
		return s
	}
	return s[:maxCapturedBody] + "\n[truncated]"
}

// serializeRequest renders a request as role-tagged sections.
func serializeRequest(req Request) string {
	var b strings.Builder
	section := func(tag, text string) {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", tag, text)
	}
	if req.System != "" {
		section("system", req.System)
	}
	for _, m := range req.Messages {
		section(string(m.Role), m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
