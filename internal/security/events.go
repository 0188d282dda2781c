package security

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants used across the security core. Keeping them in one
// place prevents typos when logging and when configuring alert thresholds.
const (
	// Authentication events
	EventLoginFailure  = "login_failure"
	EventLoginSuccess  = "login_success"
	EventAccountLocked = "account_locked"

	// Request guard events
	EventSuspiciousPattern   = "suspicious_pattern"
	EventMaliciousHeader     = "malicious_header"
	EventSuspiciousUserAgent = "suspicious_user_agent"
	EventOversizedPayload    = "oversized_payload"
	EventBlockedIPAttempt    = "blocked_ip_attempt"
	EventRateLimitExceeded   = "rate_limit_exceeded"

	// Token events
	EventCSRFTokenInvalid    = "csrf_token_invalid"
	EventSessionTokenInvalid = "session_token_invalid"

	// Operational events
	EventIPBlocked   = "ip_blocked"
	EventIPUnblocked = "ip_unblocked"
)

// Severity levels for security events
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event is a single security-relevant occurrence recorded by the monitor.
// Events are JSON-serializable so they can be shipped to an external alert
// channel as-is.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Severity  string            `json:"severity"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewEvent builds an event with a fresh ID. The timestamp is stamped by the
// monitor when the event is logged so that ordering in the log is consistent.
func NewEvent(eventType, severity, message string) Event {
	return Event{
		ID:       uuid.New().String(),
		Type:     eventType,
		Severity: severity,
		Message:  message,
	}
}
