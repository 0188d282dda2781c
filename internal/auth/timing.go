package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig controls the artificial delay applied to authentication
// responses so response time does not leak whether an account exists or a
// password was close.
type TimingConfig struct {
	BaseDelay      time.Duration // Applied to every delayed response
	RandomDelay    time.Duration // Upper bound of the jitter added on top
	DelayOnSuccess bool          // Whether successful logins are delayed too
}

// TimingDelay applies a uniform, jittered delay to auth responses
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a timing delay helper
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// Apply sleeps for the configured base delay plus jitter. Successful attempts
// are only delayed when DelayOnSuccess is set.
func (td *TimingDelay) Apply(success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}

	delay := td.config.BaseDelay
	if td.config.RandomDelay > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelay)))
		if err == nil {
			delay += time.Duration(n.Int64())
		}
	}

	if delay > 0 {
		time.Sleep(delay)
	}
}
