package middleware

import (
	"net/http"

	"github.com/tmarsden/waypoint/internal/auth"
	"github.com/tmarsden/waypoint/internal/models"
	"github.com/tmarsden/waypoint/internal/security"
	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

// rejectionMessages maps pipeline rejection codes onto the shared sentinel
// errors, so the wire message matches what the service layer reports for the
// same condition.
var rejectionMessages = map[string]error{
	security.CodeRateLimitExceeded: models.ErrRateLimitExceeded,
	security.CodeIPBlocked:         models.ErrBlockedIP,
	security.CodeAccountLocked:     models.ErrAccountLocked,
}

// Guard runs the security pipeline over every inbound request before any
// handler sees it. Rejections are translated into the standard error response
// shape, with rate limit and retry headers attached where they apply.
func Guard(guard *security.RequestGuard, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			desc := describeRequest(r, ipConfig)

			rej := guard.Check(desc)
			if rej == nil {
				next.ServeHTTP(w, r)
				return
			}

			if rej.RateLimit != nil {
				pkghttp.SetRateLimitHeaders(w, rej.RateLimit.Limit, rej.RateLimit.Remaining, rej.RateLimit.ResetAt)
			}
			if rej.RetryAfter > 0 {
				pkghttp.SetRetryAfter(w, rej.RetryAfter)
			}

			message := rej.Message
			if sentinel, ok := rejectionMessages[rej.Code]; ok {
				message = sentinel.Error()
			}
			pkghttp.WriteError(w, rej.Status, rej.Code, message)
		})
	}
}

// describeRequest projects an http.Request onto the guard's view of it.
// UserID is populated only when session middleware already verified a token,
// which is why the guard must run after it on authenticated routes.
func describeRequest(r *http.Request, ipConfig *pkghttp.IPConfig) *security.RequestDescriptor {
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	desc := &security.RequestDescriptor{
		Method:    r.Method,
		Path:      r.URL.Path,
		RawQuery:  r.URL.RawQuery,
		Headers:   headers,
		RemoteIP:  pkghttp.ExtractClientIP(r, ipConfig),
		BodySize:  r.ContentLength,
		UserAgent: r.UserAgent(),
	}

	if claims := auth.SessionFromContext(r.Context()); claims != nil {
		desc.UserID = claims.UserID
	}

	return desc
}
