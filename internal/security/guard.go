package security

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Rejection codes returned to clients. Stable: UIs key off these to decide
// what to show ("too many attempts" vs "session expired" vs a generic error).
const (
	CodeSuspiciousPattern   = "suspicious_pattern"
	CodeMaliciousHeader     = "malicious_header"
	CodeSuspiciousUserAgent = "suspicious_user_agent"
	CodePayloadTooLarge     = "payload_too_large"
	CodeIPBlocked           = "ip_blocked"
	CodeAccountLocked       = "account_locked"
	CodeRateLimitExceeded   = "rate_limit_exceeded"
)

// TrafficClass selects which limiter instance applies to a request
type TrafficClass string

const (
	TrafficGeneral TrafficClass = "general"
	TrafficAuth    TrafficClass = "auth"
	TrafficForm    TrafficClass = "form"
)

// RequestDescriptor is the abstract view of an inbound request the guard
// operates on. Body content is never inspected, only its size.
type RequestDescriptor struct {
	Method    string
	Path      string
	RawQuery  string
	Headers   map[string]string
	RemoteIP  string
	BodySize  int64
	UserAgent string
	UserID    string // set when the request carries a verified session
}

// Rejection is the structured outcome of a failed check
type Rejection struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration    // > 0 for block/lockout rejections
	RateLimit  *RateLimitResult // set for rate limit rejections
}

// GuardConfig holds request guard configuration
type GuardConfig struct {
	MaxBodyBytes int64
}

// Signatures for malicious request patterns. Checked against path+query and
// against header values. These catch drive-by scanner traffic, not targeted
// attacks; real input validation happens at the handler layer.
var (
	suspiciousPathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\.\./`),
		regexp.MustCompile(`(?i)%2e%2e`),
		regexp.MustCompile(`(?i)<script`),
		regexp.MustCompile(`(?i)union[\s+]+select`),
		regexp.MustCompile(`(?i)information_schema`),
		regexp.MustCompile(`(?i)('|%27)\s*or\s*('|%27)?1('|%27)?\s*=\s*('|%27)?1`),
		regexp.MustCompile(`(?i)^/(wp-admin|wp-login|phpmyadmin|cgi-bin)`),
		regexp.MustCompile(`(?i)/\.(env|git|svn|htaccess)`),
	}

	maliciousHeaderPattern = regexp.MustCompile(`(?i)(<script|\x00|[\r\n])`)

	scraperAgentPattern = regexp.MustCompile(`(?i)(curl|wget|python-requests|python-urllib|scrapy|go-http-client|java/|libwww|nikto|sqlmap|masscan|nmap|zgrab)`)

	// Legitimate crawlers are allowed through the user-agent check even
	// though they match nothing a browser would send.
	allowedCrawlerPattern = regexp.MustCompile(`(?i)(googlebot|bingbot|duckduckbot|slurp|baiduspider|yandex|applebot)`)
)

// RequestGuard runs the ordered security pipeline over inbound requests:
// pattern checks, user-agent classification, payload size, IP block, account
// lockout, then rate limiting. The first failing step rejects the request and
// emits a security event; later steps are never reached.
//
// Pattern and user-agent rejections only log suspicion. They never feed the
// blocklist themselves; escalating an IP to a block is an operator decision
// made outside this type.
type RequestGuard struct {
	blocker  *TemporaryBlocker
	lockout  *AccountLockout
	limiters map[TrafficClass]*RateLimiter
	monitor  *Monitor
	config   GuardConfig
}

// NewRequestGuard wires the guard to its collaborating stores. Every limiter
// class a deployment routes traffic to must be present in limiters.
func NewRequestGuard(
	blocker *TemporaryBlocker,
	lockout *AccountLockout,
	limiters map[TrafficClass]*RateLimiter,
	monitor *Monitor,
	config GuardConfig,
) *RequestGuard {
	return &RequestGuard{
		blocker:  blocker,
		lockout:  lockout,
		limiters: limiters,
		monitor:  monitor,
		config:   config,
	}
}

// Check runs the pipeline. A nil return means the request may proceed to the
// downstream handler.
func (g *RequestGuard) Check(req *RequestDescriptor) *Rejection {
	if rej := g.checkPatterns(req); rej != nil {
		return rej
	}
	if rej := g.checkUserAgent(req); rej != nil {
		return rej
	}
	if rej := g.checkPayloadSize(req); rej != nil {
		return rej
	}
	if rej := g.checkIPBlock(req); rej != nil {
		return rej
	}
	if rej := g.checkLockout(req); rej != nil {
		return rej
	}
	if rej := g.checkRateLimit(req); rej != nil {
		return rej
	}
	return nil
}

func (g *RequestGuard) checkPatterns(req *RequestDescriptor) *Rejection {
	target := req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	for _, pattern := range suspiciousPathPatterns {
		if pattern.MatchString(target) {
			event := NewEvent(EventSuspiciousPattern, SeverityWarning,
				fmt.Sprintf("suspicious pattern in request target: %s %s", req.Method, req.Path))
			event.IP = req.RemoteIP
			event.UserID = req.UserID
			event.Metadata = map[string]string{"pattern": pattern.String()}
			g.monitor.LogEvent(event)

			return &Rejection{
				Status:  http.StatusBadRequest,
				Code:    CodeSuspiciousPattern,
				Message: "request rejected",
			}
		}
	}

	for name, value := range req.Headers {
		// The user agent gets its own classification step
		if strings.EqualFold(name, "User-Agent") {
			continue
		}
		if maliciousHeaderPattern.MatchString(value) {
			event := NewEvent(EventMaliciousHeader, SeverityWarning,
				fmt.Sprintf("malicious content in header %s", name))
			event.IP = req.RemoteIP
			event.UserID = req.UserID
			g.monitor.LogEvent(event)

			return &Rejection{
				Status:  http.StatusBadRequest,
				Code:    CodeMaliciousHeader,
				Message: "request rejected",
			}
		}
	}

	return nil
}

func (g *RequestGuard) checkUserAgent(req *RequestDescriptor) *Rejection {
	ua := strings.TrimSpace(req.UserAgent)

	flagged := ua == ""
	if !flagged && scraperAgentPattern.MatchString(ua) && !allowedCrawlerPattern.MatchString(ua) {
		flagged = true
	}
	if !flagged {
		return nil
	}

	event := NewEvent(EventSuspiciousUserAgent, SeverityInfo, "empty or scraper-like user agent")
	event.IP = req.RemoteIP
	event.Metadata = map[string]string{"user_agent": ua}
	g.monitor.LogEvent(event)

	return &Rejection{
		Status:  http.StatusForbidden,
		Code:    CodeSuspiciousUserAgent,
		Message: "request rejected",
	}
}

func (g *RequestGuard) checkPayloadSize(req *RequestDescriptor) *Rejection {
	if g.config.MaxBodyBytes <= 0 || req.BodySize <= g.config.MaxBodyBytes {
		return nil
	}

	event := NewEvent(EventOversizedPayload, SeverityWarning,
		fmt.Sprintf("payload of %d bytes exceeds ceiling", req.BodySize))
	event.IP = req.RemoteIP
	event.UserID = req.UserID
	g.monitor.LogEvent(event)

	return &Rejection{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    CodePayloadTooLarge,
		Message: "payload too large",
	}
}

func (g *RequestGuard) checkIPBlock(req *RequestDescriptor) *Rejection {
	if !g.blocker.IsBlocked(req.RemoteIP) {
		return nil
	}

	event := NewEvent(EventBlockedIPAttempt, SeverityWarning, "request from blocked IP")
	event.IP = req.RemoteIP
	g.monitor.LogEvent(event)

	rej := &Rejection{
		Status:  http.StatusForbidden,
		Code:    CodeIPBlocked,
		Message: "access temporarily denied",
	}
	if until := g.blocker.BlockedUntil(req.RemoteIP); !until.IsZero() {
		rej.RetryAfter = time.Until(until)
	}
	return rej
}

func (g *RequestGuard) checkLockout(req *RequestDescriptor) *Rejection {
	if req.UserID == "" || !g.lockout.IsLocked(req.UserID) {
		return nil
	}

	event := NewEvent(EventAccountLocked, SeverityWarning, "request for locked account")
	event.IP = req.RemoteIP
	event.UserID = req.UserID
	g.monitor.LogEvent(event)

	return &Rejection{
		Status:     http.StatusForbidden,
		Code:       CodeAccountLocked,
		Message:    "account temporarily locked",
		RetryAfter: g.lockout.RemainingLockout(req.UserID),
	}
}

func (g *RequestGuard) checkRateLimit(req *RequestDescriptor) *Rejection {
	limiter, ok := g.limiters[classify(req)]
	if !ok {
		limiter = g.limiters[TrafficGeneral]
	}
	if limiter == nil {
		return nil
	}

	key := req.RemoteIP
	if req.UserID != "" {
		key = req.UserID
	}

	result := limiter.Check(key)
	if result.Allowed {
		return nil
	}

	event := NewEvent(EventRateLimitExceeded, SeverityWarning, "rate limit exceeded")
	event.IP = req.RemoteIP
	event.UserID = req.UserID
	g.monitor.LogEvent(event)

	return &Rejection{
		Status:    http.StatusTooManyRequests,
		Code:      CodeRateLimitExceeded,
		Message:   "too many requests",
		RateLimit: &result,
	}
}

// classify maps a request onto a traffic class. Auth endpoints get the
// strictest limiter; other state-changing requests count as form submissions.
func classify(req *RequestDescriptor) TrafficClass {
	if strings.HasPrefix(req.Path, "/auth/") {
		return TrafficAuth
	}
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return TrafficForm
	default:
		return TrafficGeneral
	}
}
