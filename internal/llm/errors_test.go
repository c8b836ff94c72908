package llm

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		status    int
		retryable bool
		target    any
	}{
		{0, true, new(*ErrProviderUnavailable)},
		{http.StatusRequestTimeout, true, new(*ErrProviderUnavailable)},
		{http.StatusTooManyRequests, true, new(*ErrRateLimit)},
		{http.StatusServiceUnavailable, true, new(*ErrProviderUnavailable)},
		{http.StatusBadRequest, false, new(*ErrRequestRejected)},
		{http.StatusForbidden, false, new(*ErrRequestRejected)},
	}
	for _, tt := range tests {
		err := classifyStatus(tt.status, 0, cause)
		assert.ErrorAs(t, err, tt.target, "status %d", tt.status)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, tt.retryable, Retryable(err), "status %d", tt.status)
	}
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Zero(t, parseRetryAfter(h))

	h.Set("Retry-After", "12")
	assert.Equal(t, 12*time.Second, parseRetryAfter(h))

	h.Set("Retry-After", "soon")
	assert.Zero(t, parseRetryAfter(h))

	h.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))
	d := parseRetryAfter(h)
	require.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}

func TestFinishResponse(t *testing.T) {
	ok := &Response{Content: []byte(`{"name": "Ada", "age": 36}`), StopReason: StopEnd}
	got, err := finishResponse(Request{Schema: testSchema()}, ok)
	require.NoError(t, err)
	assert.Same(t, ok, got)

	_, err = finishResponse(Request{}, &Response{Content: []byte(`[1, 2`), StopReason: StopMaxTokens})
	var maxTok *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &maxTok)

	_, err = finishResponse(Request{}, &Response{StopReason: StopEnd})
	var inv *ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}
