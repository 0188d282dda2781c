package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tmarsden/waypoint/internal/models"
	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

// RateLimitConfig holds rate limiting configuration for the blunt per-IP
// limiter that sits in front of the auth endpoints. This is a coarse outer
// defense; the per-identifier fixed-window limiters inside the guard carry
// the real policy.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns the default config for auth endpoints
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", models.ErrRateLimitExceeded.Error())
		}),
	)
}
