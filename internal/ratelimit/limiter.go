// Package ratelimit bounds and retries outbound provider calls. The two
// wrappers compose: Executor retries around the limiter, so every retry
// attempt re-acquires a concurrency slot instead of holding one across
// backoff sleeps.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/echorank/echorank/internal/domain"
)

// defaultConcurrency applies to providers without an explicit cap.
const defaultConcurrency = 2

// DefaultCaps returns the per-provider concurrency ceilings.
func DefaultCaps() map[string]int64 {
	return map[string]int64{
		"openai":     5,
		"anthropic":  5,
		"gemini":     10,
		"perplexity": 2,
		"mistral":    2,
	}
}

// Limiter enforces a per-provider concurrency ceiling with a weighted
// semaphore. Acquire blocks until a slot frees; no polling is involved.
type Limiter struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
	caps map[string]int64
}

// NewLimiter creates a limiter with the given per-provider caps.
func NewLimiter(caps map[string]int64) *Limiter {
	return &Limiter{
		sems: make(map[string]*semaphore.Weighted, len(caps)),
		caps: caps,
	}
}

// Do runs fn under the provider's concurrency slot. The slot is released
// on every path, including fn failure.
func (l *Limiter) Do(
	ctx context.Context,
	provider string,
	fn func() (*domain.ChatResponse, error),
) (*domain.ChatResponse, error) {
	sem := l.semFor(provider)

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire %s slot: %w", provider, err)
	}
	defer sem.Release(1)

	return fn()
}

func (l *Limiter) semFor(provider string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sem, ok := l.sems[provider]; ok {
		return sem
	}

	capacity := l.caps[provider]
	if capacity <= 0 {
		capacity = defaultConcurrency
	}

	sem := semaphore.NewWeighted(capacity)
	l.sems[provider] = sem
	return sem
}
