package middleware

import (
	"net/http"

	"github.com/tmarsden/waypoint/internal/models"
	"github.com/tmarsden/waypoint/internal/security"
	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

// CSRFHeaderName carries the one-time token on state-changing requests
const CSRFHeaderName = "X-CSRF-Token"

// safe methods never require a CSRF token
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// RequireCSRF enforces one-time CSRF tokens on state-changing requests.
// Tokens come from the token endpoint and are consumed on first use, so a
// replayed form submission fails even inside the token's TTL. Failures are
// recorded with the monitor so repeated invalid tokens can trip an alert.
func RequireCSRF(store *security.CSRFTokenStore, monitor *security.Monitor, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(CSRFHeaderName)
			if token == "" || !store.VerifyToken(token) {
				event := security.NewEvent(security.EventCSRFTokenInvalid, security.SeverityWarning,
					"missing or invalid csrf token")
				event.IP = pkghttp.ExtractClientIP(r, ipConfig)
				monitor.LogEvent(event)

				pkghttp.WriteError(w, http.StatusForbidden, "csrf_token_invalid", models.ErrCSRFTokenInvalid.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
