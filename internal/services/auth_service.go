package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmarsden/waypoint/internal/auth"
	"github.com/tmarsden/waypoint/internal/models"
	"github.com/tmarsden/waypoint/internal/security"
	pkgauth "github.com/tmarsden/waypoint/pkg/auth"
	pkglogger "github.com/tmarsden/waypoint/pkg/logger"
)

// UserRepository defines the persistence operations the auth flow needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetTOTPSecret(ctx context.Context, id, secret string) error
	EnableTOTP(ctx context.Context, id string) error
	DisableTOTP(ctx context.Context, id string) error
}

// AuthService handles registration and login. It is the single place where
// credentials, the lockout tracker, and the event monitor meet: every attempt
// outcome is recorded in both, and the uniform timing delay runs on every
// path so response time does not reveal whether an email exists.
type AuthService struct {
	repo    UserRepository
	policy  *pkgauth.Policy
	issuer  *auth.TokenIssuer
	totp    *auth.TOTPManager
	lockout *security.AccountLockout
	monitor *security.Monitor
	timing  *auth.TimingDelay
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	policy *pkgauth.Policy,
	issuer *auth.TokenIssuer,
	totp *auth.TOTPManager,
	lockout *security.AccountLockout,
	monitor *security.Monitor,
	timing *auth.TimingDelay,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		repo:    repo,
		policy:  policy,
		issuer:  issuer,
		totp:    totp,
		lockout: lockout,
		monitor: monitor,
		timing:  timing,
		logger:  logger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	TOTPEnabled bool   `json:"totp_enabled"`
	CreatedAt   string `json:"created_at"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	SessionToken string        `json:"session_token"`
	User         *UserResponse `json:"user"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		TOTPEnabled: user.TOTPEnabled,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

// Register creates a new account after the password clears policy
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ErrBadRequest
	}

	if err := s.policy.Validate(password); err != nil {
		var validationErr *pkgauth.PasswordValidationError
		if errors.As(err, &validationErr) {
			return nil, fmt.Errorf("%w: %s", models.ErrWeakPassword, validationErr.Error())
		}
		return nil, models.ErrWeakPassword
	}

	hash, err := s.policy.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.issuer.CreateSessionToken(user.ID, user.Role, nil)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))

	return &AuthResponse{
		SessionToken: token,
		User:         userModelToResponse(user),
	}, nil
}

// Login authenticates a user and returns a session token. totpCode may be
// empty; it is required once the account has TOTP enabled.
//
// Lockout keys off the submitted email, not the user ID, so attempts against
// nonexistent accounts are throttled the same as real ones.
func (s *AuthService) Login(ctx context.Context, email, password, totpCode, remoteIP string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ErrInvalidCredentials
	}

	if s.lockout.IsLocked(email) {
		s.logEvent(security.EventAccountLocked, security.SeverityWarning,
			"login attempt against locked account", remoteIP, "")
		return nil, models.ErrAccountLocked
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.failLogin(email, remoteIP, "", "unknown email")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.Status != "active" {
		s.logger.Info("login blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		return nil, s.failLogin(email, remoteIP, user.ID, "account "+user.Status)
	}

	if err := s.policy.Verify(password, user.PasswordHash); err != nil {
		return nil, s.failLogin(email, remoteIP, user.ID, "wrong password")
	}

	if user.TOTPEnabled {
		if totpCode == "" {
			// Not a failed attempt: the password was right, the client
			// just needs to prompt for the second factor.
			s.timing.Apply(true)
			return nil, models.ErrTOTPRequired
		}
		if user.TOTPSecret == nil || !s.totp.ValidateCode(totpCode, *user.TOTPSecret) {
			rej := s.failLogin(email, remoteIP, user.ID, "invalid totp code")
			if errors.Is(rej, models.ErrInvalidCredentials) {
				return nil, models.ErrTOTPInvalid
			}
			return nil, rej
		}
	}

	s.lockout.RecordAttempt(email, true)
	s.timing.Apply(true)

	token, err := s.issuer.CreateSessionToken(user.ID, user.Role, nil)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.logEvent(security.EventLoginSuccess, security.SeverityInfo, "login succeeded", remoteIP, user.ID)

	return &AuthResponse{
		SessionToken: token,
		User:         userModelToResponse(user),
	}, nil
}

// failLogin records a failed attempt everywhere it counts and returns the
// error the caller should surface. The reason stays in the logs; the client
// always sees the same invalid-credentials answer.
func (s *AuthService) failLogin(email, remoteIP, userID, reason string) error {
	s.lockout.RecordAttempt(email, false)

	event := security.NewEvent(security.EventLoginFailure, security.SeverityWarning, "login failed")
	event.IP = remoteIP
	event.UserID = userID
	event.Metadata = map[string]string{"reason": reason}
	s.monitor.LogEvent(event)

	s.logger.Info("login failed",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("reason", reason))

	if s.lockout.IsLocked(email) {
		s.logEvent(security.EventAccountLocked, security.SeverityCritical,
			"account locked after repeated failures", remoteIP, userID)
		s.timing.Apply(false)
		return models.ErrAccountLocked
	}

	s.timing.Apply(false)
	return models.ErrInvalidCredentials
}

// ChangePassword validates and stores a new password for the user
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.policy.Verify(currentPassword, user.PasswordHash); err != nil {
		return models.ErrInvalidCredentials
	}

	if err := s.policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrWeakPassword, err.Error())
	}

	hash, err := s.policy.Hash(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("user_id", userID))
	return nil
}

// PasswordStrength reports the 0-6 strength score and feedback for a
// candidate password. Used by the signup form; never persisted.
func (s *AuthService) PasswordStrength(password string) (int, []string) {
	return s.policy.CalculateStrength(password)
}

// BeginTOTPEnrollment generates a secret and QR code for the user. The
// enrollment stays pending until ConfirmTOTPEnrollment sees a valid code.
func (s *AuthService) BeginTOTPEnrollment(ctx context.Context, userID string) (*auth.Enrollment, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, models.ErrConflict
	}

	enrollment, err := s.totp.GenerateEnrollment(user.Email)
	if err != nil {
		s.logger.Error("failed to generate totp enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.SetTOTPSecret(ctx, userID, enrollment.Secret); err != nil {
		return nil, err
	}

	return enrollment, nil
}

// ConfirmTOTPEnrollment activates a pending enrollment after the user proves
// they can produce a valid code.
func (s *AuthService) ConfirmTOTPEnrollment(ctx context.Context, userID, code string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == nil {
		return models.ErrBadRequest
	}
	if !s.totp.ValidateCode(code, *user.TOTPSecret) {
		return models.ErrTOTPInvalid
	}

	if err := s.repo.EnableTOTP(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("totp enabled", slog.String("user_id", userID))
	return nil
}

// DisableTOTP turns off the second factor after re-verifying the password
func (s *AuthService) DisableTOTP(ctx context.Context, userID, password string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.policy.Verify(password, user.PasswordHash); err != nil {
		return models.ErrInvalidCredentials
	}

	if err := s.repo.DisableTOTP(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("totp disabled", slog.String("user_id", userID))
	return nil
}

func (s *AuthService) logEvent(eventType, severity, message, remoteIP, userID string) {
	event := security.NewEvent(eventType, severity, message)
	event.IP = remoteIP
	event.UserID = userID
	s.monitor.LogEvent(event)
}
