package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Security check failures. Each maps to a stable error code in the API
	// so clients can distinguish "try again later" from "fix your input".
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrCSRFTokenInvalid   = errors.New("csrf token is invalid")
	ErrBlockedIP          = errors.New("ip address is blocked")
	ErrTOTPRequired       = errors.New("totp code required")
	ErrTOTPInvalid        = errors.New("totp code invalid")
)
