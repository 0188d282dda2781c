package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmarsden/waypoint/internal/auth"
	"github.com/tmarsden/waypoint/internal/models"
	"github.com/tmarsden/waypoint/internal/security"
	"github.com/tmarsden/waypoint/internal/services"
	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc              func(ctx context.Context, email, password, name string) (*services.AuthResponse, error)
	LoginFunc                 func(ctx context.Context, email, password, totpCode, remoteIP string) (*services.AuthResponse, error)
	ChangePasswordFunc        func(ctx context.Context, userID, currentPassword, newPassword string) error
	PasswordStrengthFunc      func(password string) (int, []string)
	BeginTOTPEnrollmentFunc   func(ctx context.Context, userID string) (*auth.Enrollment, error)
	ConfirmTOTPEnrollmentFunc func(ctx context.Context, userID, code string) error
	DisableTOTPFunc           func(ctx context.Context, userID, password string) error
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*services.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, email, password, totpCode, remoteIP string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, totpCode, remoteIP)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
	}
	return nil
}

func (m *MockAuthService) PasswordStrength(password string) (int, []string) {
	if m.PasswordStrengthFunc != nil {
		return m.PasswordStrengthFunc(password)
	}
	return 0, nil
}

func (m *MockAuthService) BeginTOTPEnrollment(ctx context.Context, userID string) (*auth.Enrollment, error) {
	if m.BeginTOTPEnrollmentFunc != nil {
		return m.BeginTOTPEnrollmentFunc(ctx, userID)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) ConfirmTOTPEnrollment(ctx context.Context, userID, code string) error {
	if m.ConfirmTOTPEnrollmentFunc != nil {
		return m.ConfirmTOTPEnrollmentFunc(ctx, userID, code)
	}
	return nil
}

func (m *MockAuthService) DisableTOTP(ctx context.Context, userID, password string) error {
	if m.DisableTOTPFunc != nil {
		return m.DisableTOTPFunc(ctx, userID, password)
	}
	return nil
}

func newAuthHandler(service AuthServiceInterface) *AuthHandler {
	store := security.NewCSRFTokenStore(security.CSRFConfig{TokenTTL: 15 * time.Minute})
	return NewAuthHandler(service, store, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, r)
	return rec
}

func authedContext(userID string) context.Context {
	return context.WithValue(context.Background(), auth.SessionContextKey, &auth.SessionClaims{
		UserID: userID,
		Role:   "user",
	})
}

func TestAuthHandler_Login_Success(t *testing.T) {
	h := newAuthHandler(&MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, totpCode, remoteIP string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				SessionToken: "token123",
				User:         &services.UserResponse{ID: "user123", Email: email},
			}, nil
		},
	})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "Tr0ub4dor&3",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "token123", resp.SessionToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := newAuthHandler(&MockAuthService{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "invalid_credentials", resp.Error)
}

func TestAuthHandler_Login_AccountLocked(t *testing.T) {
	h := newAuthHandler(&MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, totpCode, remoteIP string) (*services.AuthResponse, error) {
			return nil, models.ErrAccountLocked
		},
	})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "whatever",
	})

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "account_locked", resp.Error)
}

func TestAuthHandler_Login_ValidationFailures(t *testing.T) {
	h := newAuthHandler(&MockAuthService{})

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"missing email", LoginRequest{Password: "x"}},
		{"bad email", LoginRequest{Email: "not-an-email", Password: "x"}},
		{"missing password", LoginRequest{Email: "user@example.com"}},
		{"short totp code", LoginRequest{Email: "user@example.com", Password: "x", TOTPCode: "12"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Login, "/auth/login", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAuthHandler_Register_WeakPassword(t *testing.T) {
	h := newAuthHandler(&MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*services.AuthResponse, error) {
			return nil, models.ErrWeakPassword
		},
	})

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{
		Email:    "user@example.com",
		Password: "aaaaaaaa",
		Name:     "Jordan",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "weak_password", resp.Error)
}

func TestAuthHandler_Register_Success(t *testing.T) {
	h := newAuthHandler(&MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				SessionToken: "token123",
				User:         &services.UserResponse{ID: "user123", Email: email, Name: name},
			}, nil
		},
	})

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{
		Email:    "user@example.com",
		Password: "Tr0ub4dor&3",
		Name:     "Jordan",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthHandler_CSRFToken(t *testing.T) {
	h := newAuthHandler(&MockAuthService{})

	rec := httptest.NewRecorder()
	h.CSRFToken(rec, httptest.NewRequest(http.MethodGet, "/auth/csrf", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CSRFTokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Token, 64) // 32 random bytes hex encoded
}

func TestAuthHandler_PasswordStrength(t *testing.T) {
	h := newAuthHandler(&MockAuthService{
		PasswordStrengthFunc: func(password string) (int, []string) {
			return 4, []string{"add a special character"}
		},
	})

	rec := postJSON(t, h.PasswordStrength, "/auth/password-strength", PasswordStrengthRequest{
		Password: "Candidate9pass",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PasswordStrengthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 4, resp.Score)
	assert.Equal(t, 6, resp.MaxScore)
	assert.Len(t, resp.Feedback, 1)
}

func TestAuthHandler_ChangePassword_RequiresSession(t *testing.T) {
	h := newAuthHandler(&MockAuthService{})

	rec := postJSON(t, h.ChangePassword, "/auth/password", ChangePasswordRequest{
		CurrentPassword: "old",
		NewPassword:     "new",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	var gotUserID string
	h := newAuthHandler(&MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, userID, currentPassword, newPassword string) error {
			gotUserID = userID
			return nil
		},
	})

	raw, _ := json.Marshal(ChangePasswordRequest{CurrentPassword: "old", NewPassword: "New-Passw0rd!"})
	r := httptest.NewRequest(http.MethodPost, "/auth/password", bytes.NewReader(raw))
	r = r.WithContext(authedContext("user123"))

	rec := httptest.NewRecorder()
	h.ChangePassword(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user123", gotUserID)
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	h := newAuthHandler(&MockAuthService{})

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}
