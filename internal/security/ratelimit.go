package security

import (
	"sync"
	"time"
)

// RateLimitConfig holds configuration for a single limiter instance
type RateLimitConfig struct {
	Window      time.Duration // Fixed window length
	MaxRequests int           // Requests allowed per window
}

// RateLimitResult is the outcome of a single rate limit check
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// rateWindow tracks request volume for one identifier within the current window
type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window request counter keyed by identifier (IP,
// user ID, or any other traffic key). Separate traffic classes (general API,
// authentication, form submission) get their own instances and never share
// counters.
//
// The check-and-increment is serialized under a single mutex so two
// concurrent callers for the same identifier can never both be granted the
// last slot in a window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	config  RateLimitConfig
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with its own independent state
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		config:  config,
		now:     time.Now,
	}
}

// Check records one request for the identifier and reports whether it is
// allowed. A rejected call does not increment the counter, so a client
// hammering past the limit does not extend its own exhaustion.
func (rl *RateLimiter) Check(identifier string) RateLimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	w, ok := rl.windows[identifier]
	if !ok || !now.Before(w.resetAt) {
		// No window yet, or the stored window has elapsed: start a new one.
		// resetAt only ever moves forward.
		w = &rateWindow{count: 1, resetAt: now.Add(rl.config.Window)}
		rl.windows[identifier] = w
		return RateLimitResult{
			Allowed:   true,
			Limit:     rl.config.MaxRequests,
			Remaining: rl.config.MaxRequests - 1,
			ResetAt:   w.resetAt,
		}
	}

	if w.count >= rl.config.MaxRequests {
		return RateLimitResult{
			Allowed:   false,
			Limit:     rl.config.MaxRequests,
			Remaining: 0,
			ResetAt:   w.resetAt,
		}
	}

	w.count++
	return RateLimitResult{
		Allowed:   true,
		Limit:     rl.config.MaxRequests,
		Remaining: rl.config.MaxRequests - w.count,
		ResetAt:   w.resetAt,
	}
}

// Cleanup removes windows whose reset time has passed and returns the number
// removed. Expiry is already enforced lazily in Check; this only bounds
// memory for identifiers that stop sending traffic.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for id, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked identifiers
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}
