package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// SessionContextKey is the key for storing session claims in context
const SessionContextKey contextKey = "session"

// SessionCookieName is the cookie fallback for browser clients
const SessionCookieName = "waypoint_session"

// SessionMiddleware verifies the session token and injects its claims into
// the request context. The error code distinguishes an expired session (the
// UI silently refreshes or re-authenticates) from an invalid one.
func SessionMiddleware(issuer *TokenIssuer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				pkghttp.WriteError(w, http.StatusUnauthorized, "session_missing", "authentication required")
				return
			}

			claims, err := issuer.Verify(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, ErrTokenExpired):
					pkghttp.WriteError(w, http.StatusUnauthorized, "session_expired", "session expired")
				default:
					pkghttp.WriteError(w, http.StatusUnauthorized, "session_invalid", "invalid session")
				}
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose session lacks the role
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := SessionFromContext(r.Context())
			if claims == nil || claims.Role != role {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the verified session claims, or nil when the
// request is unauthenticated.
func SessionFromContext(ctx context.Context) *SessionClaims {
	claims, _ := ctx.Value(SessionContextKey).(*SessionClaims)
	return claims
}

// extractToken pulls the session token from the Authorization header, falling
// back to the session cookie for browser clients.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
