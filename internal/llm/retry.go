package llm

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/learnloop/internal/backoff"
)

// RetryProvider retries transient errors with jittered exponential backoff.
type RetryProvider struct {
	inner  Provider
	policy backoff.Policy
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, policy backoff.Policy) Provider {
	return &RetryProvider{inner: p, policy: policy.WithDefaults(DefaultConfig().Retry)}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	invalidRetried := false

	for attempt := range r.policy.MaxAttempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !shouldRetry(err, &invalidRetried) || attempt == r.policy.MaxAttempts-1 {
			break
		}
		if err := backoff.Sleep(ctx, r.wait(attempt, err)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

func (r *RetryProvider) wait(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	return r.policy.Delay(attempt)
}

// shouldRetry reports whether err is transient. An invalid response is
// retried once.
func shouldRetry(err error, invalidRetried *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return false
	}
	var invResp *ErrInvalidResponse
	if errors.As(err, &invResp) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
	}
	return true
}
