package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/assessgen/internal/store"
)

type recordingEventRepo struct {
	store.EventRepo
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func TestLogging_RecordsSuccess(t *testing.T) {
	repo := &recordingEventRepo{}
	core, logs := observer.New(zap.DebugLevel)
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"ok":true}`),
		Usage:   Usage{InputTokens: 12, OutputTokens: 3},
	})
	p := WithLogging(mock, repo, zap.New(core))

	ctx := WithPurpose(context.Background(), PurposeQuestionBatch)
	_, err := p.Generate(ctx, Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
		Schema:   testSchema(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	ev := repo.events[0]
	if ev.Purpose != PurposeQuestionBatch || !ev.Success || ev.InputTokens != 12 || ev.OutputTokens != 3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	for _, want := range []string{"[system]\nsys", "[user]\nhello", "[schema: test-object]"} {
		if !strings.Contains(ev.RequestBody, want) {
			t.Errorf("request body missing %q:\n%s", want, ev.RequestBody)
		}
	}
	if ev.ResponseBody != `{"ok":true}` {
		t.Fatalf("unexpected response body: %s", ev.ResponseBody)
	}
	if logs.FilterMessage("llm request").Len() != 1 {
		t.Fatalf("expected one debug log line, got %v", logs.All())
	}
}

func TestLogging_RecordsFailureAndSurvivesRepoError(t *testing.T) {
	repo := &recordingEventRepo{err: errors.New("disk full")}
	core, logs := observer.New(zap.DebugLevel)
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	p := WithLogging(mock, repo, zap.New(core))

	_, err := p.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected provider error to pass through, got %v", err)
	}
	if len(repo.events) != 1 || repo.events[0].Success || repo.events[0].Purpose != "unknown" {
		t.Fatalf("unexpected events: %+v", repo.events)
	}
	if logs.FilterMessage("llm request failed").Len() != 1 {
		t.Fatal("expected failure log line")
	}
	if logs.FilterMessage("failed to record llm request event").Len() != 1 {
		t.Fatal("expected repo failure to be logged")
	}
}

func TestLogging_NilRepo(t *testing.T) {
	mock := NewMockProvider(MockText(`{}`))
	p := WithLogging(mock, nil, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeoutProvider(t *testing.T) {
	mock := NewMockProvider(MockText(`{}`))
	if WithTimeout(mock, 0) != Provider(mock) {
		t.Fatal("expected zero timeout to return the provider unchanged")
	}
	p := WithTimeout(mock, 1_000_000_000)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("expected model ID to delegate, got %q", p.ModelID())
	}
}

func TestLogging_KeepsPartialOutputOnTruncation(t *testing.T) {
	repo := &recordingEventRepo{}
	p := WithLogging(NewMockProvider(MockTruncated(`[{"q": "cut`)), repo, nil)

	_, err := p.Generate(context.Background(), Request{})
	var mte *ErrMaxTokensExceeded
	if !errors.As(err, &mte) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %v", err)
	}
	if len(repo.events) != 1 || repo.events[0].ResponseBody != `[{"q": "cut` {
		t.Fatalf("expected partial output in event, got %+v", repo.events)
	}
}

func TestCapBody(t *testing.T) {
	long := strings.Repeat("x", maxCapturedBody+10)
	got := capBody(long)
	if !strings.HasSuffix(got, "[truncated]") || len(got) != maxCapturedBody+len("\n[truncated]") {
		t.Fatalf("unexpected capped length %d", len(got))
	}
	if capBody("short") != "short" {
		t.Fatal("expected short body unchanged")
	}
}
