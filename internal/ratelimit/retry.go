package ratelimit

import (
	"context"
	"time"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

const (
	// DefaultMaxAttempts bounds retries per call.
	DefaultMaxAttempts = 3

	defaultMinWait = 1 * time.Second
	defaultMaxWait = 10 * time.Second
)

// Retry runs fn up to maxAttempts times. Only rate-limit and upstream-5xx
// errors are retried; anything else propagates immediately. Backoff is
// exponential: min(minWait * 2^(attempt-1), maxWait). After exhausting
// attempts the last error is returned.
func Retry(
	ctx context.Context,
	maxAttempts int,
	minWait, maxWait time.Duration,
	fn func() (*domain.ChatResponse, error),
) (*domain.ChatResponse, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}

		if !domain.IsRetryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		wait := minWait << (attempt - 1)
		if wait > maxWait {
			wait = maxWait
		}

		observability.FromContext(ctx).Warn("retrying provider call",
			observability.Int("attempt", attempt),
			observability.Duration("wait", wait),
			observability.Error(err))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// Executor composes retry around the rate limiter around the raw provider
// call.
type Executor struct {
	limiter     *Limiter
	maxAttempts int
	minWait     time.Duration
	maxWait     time.Duration
}

// NewExecutor creates an executor with default retry settings.
func NewExecutor(limiter *Limiter) *Executor {
	return &Executor{
		limiter:     limiter,
		maxAttempts: DefaultMaxAttempts,
		minWait:     defaultMinWait,
		maxWait:     defaultMaxWait,
	}
}

// NewExecutorWithBackoff creates an executor with explicit retry settings.
func NewExecutorWithBackoff(limiter *Limiter, maxAttempts int, minWait, maxWait time.Duration) *Executor {
	return &Executor{
		limiter:     limiter,
		maxAttempts: maxAttempts,
		minWait:     minWait,
		maxWait:     maxWait,
	}
}

// Execute runs one provider call with retry outside the concurrency gate.
func (e *Executor) Execute(
	ctx context.Context,
	provider domain.Provider,
	req *domain.ChatRequest,
) (*domain.ChatResponse, error) {
	return Retry(ctx, e.maxAttempts, e.minWait, e.maxWait, func() (*domain.ChatResponse, error) {
		return e.limiter.Do(ctx, provider.Name(), func() (*domain.ChatResponse, error) {
			return provider.Chat(ctx, req)
		})
	})
}
