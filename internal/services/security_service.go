package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmarsden/waypoint/internal/models"
	"github.com/tmarsden/waypoint/internal/security"
)

// SecurityService is the admin-facing surface over the monitor and blocklist:
// event review, aggregate metrics, and manual IP escalation. Blocking an IP
// is always an operator decision, never an automatic one.
type SecurityService struct {
	monitor       *security.Monitor
	blocker       *security.TemporaryBlocker
	blockDuration time.Duration
	logger        *slog.Logger
}

// NewSecurityService creates a new SecurityService
func NewSecurityService(
	monitor *security.Monitor,
	blocker *security.TemporaryBlocker,
	blockDuration time.Duration,
	logger *slog.Logger,
) *SecurityService {
	return &SecurityService{
		monitor:       monitor,
		blocker:       blocker,
		blockDuration: blockDuration,
		logger:        logger,
	}
}

// RecentEvents returns the newest events, most recent first
func (s *SecurityService) RecentEvents(limit int) []security.Event {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.monitor.RecentEvents(limit)
}

// EventsByType returns events of one type inside the trailing window
func (s *SecurityService) EventsByType(eventType string, window time.Duration) []security.Event {
	return s.monitor.EventsByType(eventType, window)
}

// Metrics returns per-type event counts over the metrics window
func (s *SecurityService) Metrics(ctx context.Context) (map[string]int64, error) {
	return s.monitor.Metrics(ctx)
}

// BlockIP places a temporary block on an IP. A duration of zero applies the
// configured default.
func (s *SecurityService) BlockIP(ip string, duration time.Duration) error {
	if ip == "" {
		return models.ErrBadRequest
	}
	if duration <= 0 {
		duration = s.blockDuration
	}

	s.blocker.Block(ip, duration)

	event := security.NewEvent(security.EventIPBlocked, security.SeverityCritical, "ip blocked by operator")
	event.IP = ip
	event.Metadata = map[string]string{"duration": duration.String()}
	s.monitor.LogEvent(event)

	s.logger.Warn("ip blocked",
		slog.String("ip", ip),
		slog.String("duration", duration.String()))

	return nil
}

// UnblockIP lifts a block before it expires
func (s *SecurityService) UnblockIP(ip string) error {
	if ip == "" {
		return models.ErrBadRequest
	}
	if !s.blocker.IsBlocked(ip) {
		return models.ErrNotFound
	}

	s.blocker.Unblock(ip)

	event := security.NewEvent(security.EventIPUnblocked, security.SeverityInfo, "ip unblocked by operator")
	event.IP = ip
	s.monitor.LogEvent(event)

	s.logger.Info("ip unblocked", slog.String("ip", ip))
	return nil
}

// BlockedUntil reports when a block on the IP lapses; zero time means the IP
// is not blocked.
func (s *SecurityService) BlockedUntil(ip string) time.Time {
	return s.blocker.BlockedUntil(ip)
}
