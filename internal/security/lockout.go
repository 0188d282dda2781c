package security

import (
	"sync"
	"time"
)

// LockoutConfig holds configuration for account lockout behavior
type LockoutConfig struct {
	MaxAttempts     int           // Consecutive failures before lockout
	LockoutDuration time.Duration // How long a locked identifier stays locked
}

// attemptRecord tracks consecutive failed attempts for one identifier
type attemptRecord struct {
	count       int
	lockedUntil time.Time
}

// AccountLockout is a per-identifier failed-attempt counter with timed
// lockout. Identifiers are opaque; callers typically use an email or user ID.
//
// State machine per identifier: clean -> (failures accumulate) -> locked
// until a deadline -> clean again once the deadline passes or a success is
// recorded. A success at any point resets the record entirely.
type AccountLockout struct {
	mu      sync.Mutex
	records map[string]*attemptRecord
	config  LockoutConfig
	now     func() time.Time
}

// NewAccountLockout creates a lockout tracker
func NewAccountLockout(config LockoutConfig) *AccountLockout {
	return &AccountLockout{
		records: make(map[string]*attemptRecord),
		config:  config,
		now:     time.Now,
	}
}

// RecordAttempt registers the outcome of an authentication attempt. A success
// clears the record. A failure increments the counter; reaching MaxAttempts
// sets the lockout deadline. Further failures while locked are no-ops so an
// attacker cannot push the deadline out indefinitely. A record whose lock has
// already lapsed is clean again: the failure starts a fresh window at count
// one rather than counting on top of the stale total.
func (al *AccountLockout) RecordAttempt(identifier string, success bool) {
	al.mu.Lock()
	defer al.mu.Unlock()

	if success {
		delete(al.records, identifier)
		return
	}

	rec, ok := al.records[identifier]
	if !ok {
		rec = &attemptRecord{}
		al.records[identifier] = rec
	} else if al.lockExpired(rec) {
		*rec = attemptRecord{}
	}

	if al.lockedLocked(rec) {
		return
	}

	rec.count++
	if rec.count >= al.config.MaxAttempts {
		rec.lockedUntil = al.now().Add(al.config.LockoutDuration)
	}
}

// IsLocked reports whether the identifier is currently locked out. A lock
// whose deadline has passed transitions back to clean lazily, resetting the
// failure counter to zero.
func (al *AccountLockout) IsLocked(identifier string) bool {
	al.mu.Lock()
	defer al.mu.Unlock()

	rec, ok := al.records[identifier]
	if !ok {
		return false
	}

	if al.lockExpired(rec) {
		delete(al.records, identifier)
		return false
	}

	return al.lockedLocked(rec)
}

// RemainingLockout returns how much lockout time is left for the identifier,
// or zero if it is not locked.
func (al *AccountLockout) RemainingLockout(identifier string) time.Duration {
	al.mu.Lock()
	defer al.mu.Unlock()

	rec, ok := al.records[identifier]
	if !ok || rec.lockedUntil.IsZero() {
		return 0
	}

	remaining := rec.lockedUntil.Sub(al.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Cleanup removes records whose lockout deadline has passed and returns the
// number removed.
func (al *AccountLockout) Cleanup() int {
	al.mu.Lock()
	defer al.mu.Unlock()

	removed := 0
	for id, rec := range al.records {
		if al.lockExpired(rec) {
			delete(al.records, id)
			removed++
		}
	}
	return removed
}

// lockedLocked reports lock state without lazy cleanup. The lock holds through
// the deadline instant and lapses strictly after it. Caller holds the mutex.
func (al *AccountLockout) lockedLocked(rec *attemptRecord) bool {
	return !rec.lockedUntil.IsZero() && !al.now().After(rec.lockedUntil)
}

// lockExpired reports whether the record carries a lock whose deadline has
// already passed. Caller holds the mutex.
func (al *AccountLockout) lockExpired(rec *attemptRecord) bool {
	return !rec.lockedUntil.IsZero() && al.now().After(rec.lockedUntil)
}
