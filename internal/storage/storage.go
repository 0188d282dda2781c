// Package storage defines the minimal key-value contract the security core
// needs from an external store. Single-instance deployments use the in-memory
// implementation in storage/memory; multi-instance deployments point the same
// interface at a shared store (Redis, Valkey, ...) to get cross-instance
// counters without any change to the consumers.
package storage

import (
	"context"
	"time"
)

// KV is the full contract required from a backing store. All methods accept
// context.Context for cancellation. Implementations must make
// IncrementAndGet atomic: two concurrent increments of the same key must
// yield two distinct values.
type KV interface {
	// Get retrieves a value. The second return is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// IncrementAndGet atomically increments the integer value at key
	// (initializing absent or expired keys to zero first) and returns the
	// new value.
	IncrementAndGet(ctx context.Context, key string) (int64, error)

	// Expire sets or replaces the TTL on an existing key. It is a no-op for
	// absent keys.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
