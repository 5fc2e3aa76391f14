// Package reinforce runs synthetic brand prompts against providers to
// measure mention rates outside the fixed intent taxonomy, and backs off
// from providers whose answers drift into forbidden territory.
package reinforce

import (
	"sync"
	"time"
)

// DefaultCooldown is how long a provider sits out after a drift hit.
const DefaultCooldown = 24 * time.Hour

// CooldownRegistry tracks per-provider cooldown windows. A provider that
// produced a forbidden term is skipped until its window lapses. Entries are
// cleared lazily on read; there is no sweeper goroutine.
type CooldownRegistry struct {
	mu     sync.Mutex
	until  map[string]time.Time
	window time.Duration
	now    func() time.Time
}

// NewCooldownRegistry creates a registry with the given window. A zero or
// negative window falls back to DefaultCooldown.
func NewCooldownRegistry(window time.Duration) *CooldownRegistry {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &CooldownRegistry{
		until:  make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// WithClock substitutes the time source. Test hook.
func (r *CooldownRegistry) WithClock(now func() time.Time) *CooldownRegistry {
	r.now = now
	return r
}

// Set starts (or restarts) the provider's cooldown window.
func (r *CooldownRegistry) Set(provider string) {
	r.mu.Lock()
	r.until[provider] = r.now().Add(r.window)
	r.mu.Unlock()
}

// Cooling reports whether the provider is inside its cooldown window.
// Expired entries are deleted on the way out.
func (r *CooldownRegistry) Cooling(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.until[provider]
	if !ok {
		return false
	}
	if r.now().After(until) {
		delete(r.until, provider)
		return false
	}
	return true
}
