package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/ratelimit"
)

func TestLimiter_BoundsConcurrency(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewLimiter(map[string]int64{"openai": 2})

	var active, peak atomic.Int64
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := limiter.Do(ctx, "openai", func() (*domain.ChatResponse, error) {
				now := active.Add(1)
				for {
					p := peak.Load()
					if now <= p || peak.CompareAndSwap(p, now) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return &domain.ChatResponse{}, nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, peak.Load(), int64(2))
}

func TestLimiter_ReleasesSlotOnFailure(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewLimiter(map[string]int64{"anthropic": 1})

	callErr := errors.New("boom")
	for range 5 {
		_, err := limiter.Do(ctx, "anthropic", func() (*domain.ChatResponse, error) {
			return nil, callErr
		})
		require.ErrorIs(t, err, callErr)
	}

	// If a slot leaked above, this call would block past the deadline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = limiter.Do(ctx, "anthropic", func() (*domain.ChatResponse, error) {
			return &domain.ChatResponse{}, nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("limiter slot was not released after failure")
	}
}

func TestLimiter_UnknownProviderGetsDefaultCap(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewLimiter(ratelimit.DefaultCaps())

	_, err := limiter.Do(ctx, "unheard-of", func() (*domain.ChatResponse, error) {
		return &domain.ChatResponse{}, nil
	})
	require.NoError(t, err)
}

func TestRetry_RetriesOnlyTransientErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("rate limit errors retried up to max attempts", func(t *testing.T) {
		var calls int
		_, err := ratelimit.Retry(ctx, 3, time.Millisecond, 4*time.Millisecond,
			func() (*domain.ChatResponse, error) {
				calls++
				return nil, &domain.RateLimitError{Provider: "openai", Message: "429"}
			})

		require.Error(t, err)
		var rateErr *domain.RateLimitError
		require.ErrorAs(t, err, &rateErr)
		require.Equal(t, 3, calls)
	})

	t.Run("API errors retried then succeed", func(t *testing.T) {
		var calls int
		resp, err := ratelimit.Retry(ctx, 3, time.Millisecond, 4*time.Millisecond,
			func() (*domain.ChatResponse, error) {
				calls++
				if calls < 3 {
					return nil, &domain.APIError{Provider: "openai", StatusCode: 503, Message: "overloaded"}
				}
				return &domain.ChatResponse{Text: "ok"}, nil
			})

		require.NoError(t, err)
		require.Equal(t, "ok", resp.Text)
		require.Equal(t, 3, calls)
	})

	t.Run("other errors propagate without retry", func(t *testing.T) {
		var calls int
		_, err := ratelimit.Retry(ctx, 3, time.Millisecond, 4*time.Millisecond,
			func() (*domain.ChatResponse, error) {
				calls++
				return nil, errors.New("malformed response")
			})

		require.Error(t, err)
		require.Equal(t, 1, calls)
	})
}

// slowProvider counts concurrent Chat calls and fails transiently first.
type flakyProvider struct {
	name     string
	failures atomic.Int64
	calls    atomic.Int64
}

func (p *flakyProvider) Chat(_ context.Context, _ *domain.ChatRequest) (*domain.ChatResponse, error) {
	p.calls.Add(1)
	if p.failures.Load() > 0 {
		p.failures.Add(-1)
		return nil, &domain.APIError{Provider: p.name, StatusCode: 500, Message: "transient"}
	}
	return &domain.ChatResponse{Provider: p.name, Text: "answer"}, nil
}

func (p *flakyProvider) Name() string         { return p.name }
func (p *flakyProvider) DefaultModel() string { return "test-model" }

func TestExecutor_RetryReacquiresSlot(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewLimiter(map[string]int64{"flaky": 1})
	exec := ratelimit.NewExecutorWithBackoff(limiter, 3, time.Millisecond, 4*time.Millisecond)

	provider := &flakyProvider{name: "flaky"}
	provider.failures.Store(2)

	resp, err := exec.Execute(ctx, provider, &domain.ChatRequest{Model: "test-model"})
	require.NoError(t, err)
	require.Equal(t, "answer", resp.Text)
	require.Equal(t, int64(3), provider.calls.Load())
}
