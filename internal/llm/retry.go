package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider is a decorator that retries transient errors with
// exponential backoff and jitter.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	sleep  SleepFunc
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{inner: p, config: cfg, sleep: SleepContext}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	invalidRetried := false

	for attempt := range r.config.MaxAttempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !r.shouldRetry(err, &invalidRetried) {
			return nil, err
		}

		// Last attempt: don't sleep, just return the error.
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		if err := r.sleep(ctx, r.backoff(attempt, err)); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// WithoutRetry returns p with any RetryProvider layer removed from its
// decorator chain, for callers that run their own retry loop. Timeout and
// logging layers are kept.
func WithoutRetry(p Provider) Provider {
	switch v := p.(type) {
	case *RetryProvider:
		return WithoutRetry(v.inner)
	case *TimeoutProvider:
		return &TimeoutProvider{inner: WithoutRetry(v.inner), timeout: v.timeout}
	}
	return p
}

// shouldRetry determines if an error is retryable.
func (r *RetryProvider) shouldRetry(err error, invalidRetried *bool) bool {
	if !Retryable(err) {
		return false
	}

	// Invalid response gets one retry.
	var invResp *ErrInvalidResponse
	if errors.As(err, &invResp) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
	}
	return true
}

// backoff computes the wait duration for the given attempt.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	// Respect RetryAfter for rate limits.
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

// Retryable reports whether err is worth another attempt. Context errors,
// rejected requests and truncated responses are final; everything else is
// treated as transient.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rejected *ErrRequestRejected
	if errors.As(err, &rejected) {
		return false
	}
	var maxTok *ErrMaxTokensExceeded
	return !errors.As(err, &maxTok)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the production SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BackoffFunc returns the wait before the given retry. attempt is 1-based:
// the wait after the first failure is BackoffFunc(1, base).
type BackoffFunc func(attempt int, base time.Duration) time.Duration

// LinearBackoff waits attempt × base.
func LinearBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		return 0
	}
	return time.Duration(attempt) * base
}

// RetryPolicy bounds a retry loop. The zero value is not usable; start from
// DefaultRetryPolicy.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     BackoffFunc
	Sleep       SleepFunc

	// ShouldRetry decides whether an error is worth another attempt.
	// Defaults to Retryable.
	ShouldRetry func(error) bool
}

// DefaultRetryPolicy is three attempts with linear 1s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Backoff:     LinearBackoff,
		Sleep:       SleepContext,
	}
}

// ErrAttemptsExhausted is returned by Retry when every attempt failed.
type ErrAttemptsExhausted struct {
	Attempts int
	Err      error
}

func (e *ErrAttemptsExhausted) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ErrAttemptsExhausted) Unwrap() error { return e.Err }

// Retry runs fn up to policy.MaxAttempts times. fn receives the 1-based
// attempt number. A nil return stops the loop. Errors rejected by
// policy.ShouldRetry stop it immediately and are returned unchanged.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	backoff := policy.Backoff
	if backoff == nil {
		backoff = LinearBackoff
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	shouldRetry := policy.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = Retryable
	}
	maxAttempts := max(policy.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, backoff(attempt, policy.BaseDelay)); err != nil {
			return err
		}
	}
	return &ErrAttemptsExhausted{Attempts: maxAttempts, Err: lastErr}
}
