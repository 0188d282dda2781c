package security

import (
	"testing"
	"time"
)

func TestAccountLockout_LocksAfterMaxAttempts(t *testing.T) {
	clock := newFakeClock()
	lockout := NewAccountLockout(LockoutConfig{MaxAttempts: 5, LockoutDuration: 15 * time.Minute})
	lockout.now = clock.Now

	for i := 0; i < 4; i++ {
		lockout.RecordAttempt("user@example.com", false)
		if lockout.IsLocked("user@example.com") {
			t.Fatalf("locked after %d failures, want lock only at 5", i+1)
		}
	}

	lockout.RecordAttempt("user@example.com", false)
	if !lockout.IsLocked("user@example.com") {
		t.Fatal("5th consecutive failure should lock the account")
	}

	remaining := lockout.RemainingLockout("user@example.com")
	if remaining != 15*time.Minute {
		t.Errorf("remaining = %v, want 15m", remaining)
	}

	// Failures while locked are no-ops; the deadline must not move
	clock.Advance(10 * time.Minute)
	lockout.RecordAttempt("user@example.com", false)
	if got := lockout.RemainingLockout("user@example.com"); got != 5*time.Minute {
		t.Errorf("remaining after failure while locked = %v, want 5m", got)
	}

	// Lock decays on its own and the counter resets
	clock.Advance(5*time.Minute + time.Second)
	if lockout.IsLocked("user@example.com") {
		t.Fatal("lock should expire after the lockout duration")
	}
	lockout.RecordAttempt("user@example.com", false)
	if lockout.IsLocked("user@example.com") {
		t.Fatal("a single failure after decay must not re-lock: counter should have reset")
	}
}

func TestAccountLockout_FailureAfterExpiryStartsClean(t *testing.T) {
	clock := newFakeClock()
	lockout := NewAccountLockout(LockoutConfig{MaxAttempts: 3, LockoutDuration: 15 * time.Minute})
	lockout.now = clock.Now

	for i := 0; i < 3; i++ {
		lockout.RecordAttempt("user@example.com", false)
	}
	clock.Advance(16 * time.Minute)

	// No read in between: RecordAttempt itself must notice the lapsed lock
	// and start a fresh window at count one instead of re-locking off the
	// stale total.
	lockout.RecordAttempt("user@example.com", false)
	if lockout.IsLocked("user@example.com") {
		t.Fatal("single failure after the lock lapsed re-locked the account")
	}
	if d := lockout.RemainingLockout("user@example.com"); d != 0 {
		t.Errorf("remaining = %v, want 0", d)
	}

	// Two more failures complete a fresh window of three
	lockout.RecordAttempt("user@example.com", false)
	lockout.RecordAttempt("user@example.com", false)
	if !lockout.IsLocked("user@example.com") {
		t.Fatal("three failures in the new window should lock")
	}
}

func TestAccountLockout_LockHoldsThroughDeadlineInstant(t *testing.T) {
	clock := newFakeClock()
	lockout := NewAccountLockout(LockoutConfig{MaxAttempts: 1, LockoutDuration: time.Minute})
	lockout.now = clock.Now

	lockout.RecordAttempt("user@example.com", false)

	clock.Advance(time.Minute)
	if !lockout.IsLocked("user@example.com") {
		t.Fatal("lock should hold at the deadline instant")
	}

	clock.Advance(time.Nanosecond)
	if lockout.IsLocked("user@example.com") {
		t.Fatal("lock should lapse strictly after the deadline")
	}
}

func TestAccountLockout_SuccessResets(t *testing.T) {
	lockout := NewAccountLockout(LockoutConfig{MaxAttempts: 3, LockoutDuration: time.Minute})

	lockout.RecordAttempt("user@example.com", false)
	lockout.RecordAttempt("user@example.com", false)
	lockout.RecordAttempt("user@example.com", true)

	// Two more failures would have locked without the reset
	lockout.RecordAttempt("user@example.com", false)
	lockout.RecordAttempt("user@example.com", false)
	if lockout.IsLocked("user@example.com") {
		t.Fatal("success should reset the failure counter")
	}

	lockout.RecordAttempt("user@example.com", false)
	if !lockout.IsLocked("user@example.com") {
		t.Fatal("three fresh failures should lock")
	}
}

func TestAccountLockout_IdentifiersIndependent(t *testing.T) {
	lockout := NewAccountLockout(LockoutConfig{MaxAttempts: 1, LockoutDuration: time.Minute})

	lockout.RecordAttempt("a@example.com", false)
	if lockout.IsLocked("b@example.com") {
		t.Fatal("lockout state must be per identifier")
	}
}

func TestAccountLockout_RemainingLockoutUnlocked(t *testing.T) {
	lockout := NewAccountLockout(LockoutConfig{MaxAttempts: 3, LockoutDuration: time.Minute})

	if d := lockout.RemainingLockout("nobody@example.com"); d != 0 {
		t.Errorf("remaining for unknown identifier = %v, want 0", d)
	}
}

func TestAccountLockout_CleanupRemovesExpiredLocks(t *testing.T) {
	clock := newFakeClock()
	lockout := NewAccountLockout(LockoutConfig{MaxAttempts: 1, LockoutDuration: time.Minute})
	lockout.now = clock.Now

	lockout.RecordAttempt("a@example.com", false)
	lockout.RecordAttempt("b@example.com", false)

	clock.Advance(2 * time.Minute)
	if removed := lockout.Cleanup(); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
}
