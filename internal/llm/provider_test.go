package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_FIFO(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: []byte(`["Stacks", "Queues"]`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockText(`{"conceptExplanations": {}}`),
	)
	assert.Equal(t, 2, mock.Pending())

	first, err := mock.Generate(context.Background(), UserRequest("", "topics", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, `["Stacks", "Queues"]`, first.Text())
	assert.Equal(t, 10, first.Usage.InputTokens)
	assert.Equal(t, StopEnd, first.StopReason)
	assert.Equal(t, "mock", first.Model)

	second, err := mock.Generate(context.Background(), UserRequest("", "synth", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, `{"conceptExplanations": {}}`, second.Text())
	assert.Zero(t, mock.Pending())
}

func TestMockProvider_EmptyQueue(t *testing.T) {
	_, err := NewMockProvider().Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestMockProvider_ConfiguredError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{}})
	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	assert.ErrorAs(t, err, &rl)
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockJSON([]string{"a"}))
	mock.AddResponse(MockText(`[]`))

	_, _ = mock.Generate(context.Background(), UserRequest("sys", "first", 64, 0.2))
	_, _ = mock.Generate(context.Background(), UserRequest("sys", "second", 64, 0.2))

	assert.Equal(t, 2, mock.CallCount())
	assert.Equal(t, "sys", mock.Calls[0].System)
	assert.Equal(t, "second", mock.LastUserMessage())
	assert.Equal(t, 64, mock.Calls[1].MaxTokens)
	assert.InDelta(t, 0.2, mock.Calls[1].Temperature, 1e-9)
}

func TestUserRequest(t *testing.T) {
	req := UserRequest("system prompt", "user prompt", 512, 0.5)
	assert.Equal(t, "system prompt", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	assert.Equal(t, "user prompt", req.Messages[0].Content)
	assert.Nil(t, req.Schema)
}

func TestResponseText_Nil(t *testing.T) {
	var r *Response
	assert.Empty(t, r.Text())
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", PurposeFrom(ctx))
	assert.Equal(t, PurposeQuestionBatch, PurposeFrom(WithPurpose(ctx, PurposeQuestionBatch)))
}
