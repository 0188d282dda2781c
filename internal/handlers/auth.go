package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tmarsden/waypoint/internal/auth"
	"github.com/tmarsden/waypoint/internal/models"
	"github.com/tmarsden/waypoint/internal/security"
	"github.com/tmarsden/waypoint/internal/services"
	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, name string) (*services.AuthResponse, error)
	Login(ctx context.Context, email, password, totpCode, remoteIP string) (*services.AuthResponse, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	PasswordStrength(password string) (int, []string)
	BeginTOTPEnrollment(ctx context.Context, userID string) (*auth.Enrollment, error)
	ConfirmTOTPEnrollment(ctx context.Context, userID, code string) error
	DisableTOTP(ctx context.Context, userID, password string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service   AuthServiceInterface
	csrfStore *security.CSRFTokenStore
	ipConfig  *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, csrfStore *security.CSRFTokenStore, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		csrfStore: csrfStore,
		ipConfig:  ipConfig,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code,omitempty" validate:"omitempty,len=6"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// PasswordStrengthRequest represents the request body for a strength check
type PasswordStrengthRequest struct {
	Password string `json:"password" validate:"required"`
}

// PasswordStrengthResponse reports the score and what would improve it
type PasswordStrengthResponse struct {
	Score    int      `json:"score"`
	MaxScore int      `json:"max_score"`
	Feedback []string `json:"feedback"`
}

// TOTPCodeRequest carries a six digit code
type TOTPCodeRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// DisableTOTPRequest re-verifies the password before turning off the factor
type DisableTOTPRequest struct {
	Password string `json:"password" validate:"required"`
}

// CSRFTokenResponse carries a freshly issued one-time token
type CSRFTokenResponse struct {
	Token string `json:"csrf_token"`
}

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	setSessionCookie(w, r, resp.SessionToken)
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	remoteIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.service.Login(r.Context(), req.Email, req.Password, req.TOTPCode, remoteIP)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	setSessionCookie(w, r, resp.SessionToken)
	writeJSON(w, http.StatusOK, resp)
}

// Logout clears the session cookie. Tokens are short-lived and stateless, so
// there is nothing to revoke server side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// CSRFToken issues a one-time token for the next state-changing request
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfStore.GenerateToken()
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, CSRFTokenResponse{Token: token})
}

// PasswordStrength scores a candidate password for the signup form
func (h *AuthHandler) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req PasswordStrengthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	score, feedback := h.service.PasswordStrength(req.Password)
	if feedback == nil {
		feedback = []string{}
	}
	writeJSON(w, http.StatusOK, PasswordStrengthResponse{
		Score:    score,
		MaxScore: 6,
		Feedback: feedback,
	})
}

// ChangePassword updates the authenticated user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.SessionFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BeginTOTPEnrollment starts setting up the second factor
func (h *AuthHandler) BeginTOTPEnrollment(w http.ResponseWriter, r *http.Request) {
	claims := auth.SessionFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	enrollment, err := h.service.BeginTOTPEnrollment(r.Context(), claims.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

// ConfirmTOTPEnrollment activates a pending enrollment
func (h *AuthHandler) ConfirmTOTPEnrollment(w http.ResponseWriter, r *http.Request) {
	claims := auth.SessionFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	var req TOTPCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ConfirmTOTPEnrollment(r.Context(), claims.UserID, req.Code); err != nil {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DisableTOTP turns off the second factor
func (h *AuthHandler) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	claims := auth.SessionFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	var req DisableTOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.DisableTOTP(r.Context(), claims.UserID, req.Password); err != nil {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie attaches the session token for browser clients. API
// clients read it from the JSON body instead.
func setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteStrictMode,
	})
}

// writeAuthError maps service errors onto the stable wire codes
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteError(w, http.StatusForbidden, "account_locked", "account temporarily locked, try again later")
	case errors.Is(err, models.ErrTOTPRequired):
		pkghttp.WriteError(w, http.StatusUnauthorized, "totp_required", "a verification code is required")
	case errors.Is(err, models.ErrTOTPInvalid):
		pkghttp.WriteError(w, http.StatusUnauthorized, "totp_invalid", "invalid verification code")
	case errors.Is(err, models.ErrWeakPassword):
		pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", err.Error())
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "an account with this email already exists")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "bad request")
	default:
		pkghttp.WriteInternalError(w, "internal server error")
	}
}

// writeJSON writes a JSON response body with the given status
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
