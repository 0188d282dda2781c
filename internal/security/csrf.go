package security

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// CSRFConfig holds configuration for CSRF token issuance
type CSRFConfig struct {
	TokenTTL time.Duration
}

// CSRFTokenStore issues one-time-use CSRF tokens. A token verifies
// successfully at most once: the exists-and-not-expired check and the
// deletion happen under one lock, so two concurrent verifications of the same
// token cannot both succeed.
type CSRFTokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
	config CSRFConfig
	now    func() time.Time
}

// NewCSRFTokenStore creates an empty token store
func NewCSRFTokenStore(config CSRFConfig) *CSRFTokenStore {
	return &CSRFTokenStore{
		tokens: make(map[string]time.Time),
		config: config,
		now:    time.Now,
	}
}

// GenerateToken creates a new unguessable token valid for the configured TTL
func (s *CSRFTokenStore) GenerateToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(randomBytes)

	s.mu.Lock()
	s.tokens[token] = s.now().Add(s.config.TokenTTL)
	s.mu.Unlock()

	return token, nil
}

// VerifyToken consumes a token. It returns true exactly once for a known,
// unexpired token; unknown, expired, or already-consumed tokens return false.
// The token is removed whether or not verification succeeds, so an expired
// token does not linger until the sweep.
func (s *CSRFTokenStore) VerifyToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	delete(s.tokens, token)

	return s.now().Before(expiry)
}

// Cleanup removes tokens that expired without ever being consumed and returns
// the number removed. Consumed tokens are already gone; this bounds memory
// for tokens that were issued but never submitted.
func (s *CSRFTokenStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, expiry := range s.tokens {
		if !now.Before(expiry) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of outstanding tokens
func (s *CSRFTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
