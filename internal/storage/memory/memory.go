// Package memory provides the in-memory KV store used for single-instance
// deployments. Expiry is enforced lazily on read; Cleanup exists only to
// bound memory for keys nobody reads again.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Store is a mutex-guarded map implementing storage.KV
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get retrieves a value, treating expired entries as absent and removing them
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.getLocked(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores a value with an optional TTL
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

// IncrementAndGet atomically increments the integer at key. Absent or expired
// keys start from zero. An existing TTL is preserved.
func (s *Store) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	e, ok := s.getLocked(key)
	if ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %q is not an integer: %w", key, err)
		}
		current = parsed
	}

	current++
	s.entries[key] = entry{value: strconv.FormatInt(current, 10), expiresAt: e.expiresAt}
	return current, nil
}

// Expire sets or replaces the TTL on an existing key
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.getLocked(key)
	if !ok {
		return nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.entries[key] = e
	return nil
}

// Cleanup sweeps expired entries and returns the number removed
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// getLocked returns the live entry for key, deleting it if expired.
// Caller holds the mutex.
func (s *Store) getLocked(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}
