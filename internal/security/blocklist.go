package security

import (
	"sync"
	"time"
)

// blockEntry records until when an IP is denied
type blockEntry struct {
	blockedUntil time.Time
}

// TemporaryBlocker is an IP blocklist with TTL-based expiry. It only enforces
// durations handed to it; deciding *when* an IP deserves a block is an
// external policy decision (an operator action or an escalation layer above
// this package).
type TemporaryBlocker struct {
	mu      sync.Mutex
	entries map[string]blockEntry
	now     func() time.Time
}

// NewTemporaryBlocker creates an empty blocklist
func NewTemporaryBlocker() *TemporaryBlocker {
	return &TemporaryBlocker{
		entries: make(map[string]blockEntry),
		now:     time.Now,
	}
}

// Block denies the IP for the given duration. Re-blocking an already blocked
// IP replaces the previous deadline.
func (b *TemporaryBlocker) Block(ip string, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[ip] = blockEntry{blockedUntil: b.now().Add(duration)}
}

// IsBlocked reports whether the IP is currently denied. An entry whose
// deadline has passed is treated as unblocked and removed on the spot, so
// correctness never depends on the sweep having run.
func (b *TemporaryBlocker) IsBlocked(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[ip]
	if !ok {
		return false
	}
	if !b.now().Before(entry.blockedUntil) {
		delete(b.entries, ip)
		return false
	}
	return true
}

// BlockedUntil returns the block deadline for an IP, or the zero time if the
// IP is not currently blocked. Used to populate Retry-After on rejections.
func (b *TemporaryBlocker) BlockedUntil(ip string) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[ip]
	if !ok || !b.now().Before(entry.blockedUntil) {
		return time.Time{}
	}
	return entry.blockedUntil
}

// Unblock removes an IP immediately, regardless of its deadline
func (b *TemporaryBlocker) Unblock(ip string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, ip)
}

// Cleanup sweeps expired entries and returns the number removed. Entries that
// are never queried again would otherwise sit in the map forever.
func (b *TemporaryBlocker) Cleanup() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for ip, entry := range b.entries {
		if !now.Before(entry.blockedUntil) {
			delete(b.entries, ip)
			removed++
		}
	}
	return removed
}
