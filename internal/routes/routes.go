package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/tmarsden/waypoint/internal/auth"
	"github.com/tmarsden/waypoint/internal/handlers"
	"github.com/tmarsden/waypoint/internal/middleware"
	"github.com/tmarsden/waypoint/internal/security"
	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

// RegisterRoutes registers all application routes. The guard middleware is
// applied per group so authenticated routes run it after session verification
// and the per-user lockout check sees a user ID.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	securityHandler *handlers.SecurityHandler,
	issuer *auth.TokenIssuer,
	guard *security.RequestGuard,
	csrfStore *security.CSRFTokenStore,
	monitor *security.Monitor,
	ipConfig *pkghttp.IPConfig,
) {
	guardMw := middleware.Guard(guard, ipConfig)
	csrfMw := middleware.RequireCSRF(csrfStore, monitor, ipConfig)
	authRateLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())

	// Public routes. The blunt per-IP limiter fronts the credential endpoints
	// on top of the guard's own auth-class limiter.
	router.Group(func(r chi.Router) {
		r.Use(guardMw)

		r.Get("/auth/csrf", authHandler.CSRFToken)
		r.Post("/auth/password-strength", authHandler.PasswordStrength)

		r.Group(func(r chi.Router) {
			r.Use(authRateLimit)
			r.Use(csrfMw)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(issuer))
		r.Use(guardMw)

		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(csrfMw)
			r.Post("/auth/password", authHandler.ChangePassword)
			r.Post("/auth/totp/enroll", authHandler.BeginTOTPEnrollment)
			r.Post("/auth/totp/confirm", authHandler.ConfirmTOTPEnrollment)
			r.Post("/auth/totp/disable", authHandler.DisableTOTP)
		})

		// Admin-only security surface
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole("admin"))
			r.Get("/admin/security/events", securityHandler.RecentEvents)
			r.Get("/admin/security/events/{type}", securityHandler.EventsByType)
			r.Get("/admin/security/metrics", securityHandler.Metrics)
			r.Post("/admin/security/blocks", securityHandler.BlockIP)
			r.Delete("/admin/security/blocks/{ip}", securityHandler.UnblockIP)
		})
	})
}
