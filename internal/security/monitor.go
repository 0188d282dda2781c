package security

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/tmarsden/waypoint/internal/storage"
)

// allEventTypes enumerates every event type the monitor aggregates metrics
// for. Kept in sync with the constants in events.go.
var allEventTypes = []string{
	EventLoginFailure,
	EventLoginSuccess,
	EventAccountLocked,
	EventSuspiciousPattern,
	EventMaliciousHeader,
	EventSuspiciousUserAgent,
	EventOversizedPayload,
	EventBlockedIPAttempt,
	EventRateLimitExceeded,
	EventCSRFTokenInvalid,
	EventSessionTokenInvalid,
	EventIPBlocked,
	EventIPUnblocked,
}

// MonitorConfig holds configuration for the security event monitor
type MonitorConfig struct {
	LogCapacity     int            // Bounded event log size, oldest evicted first
	AlertWindow     time.Duration  // Trailing window for threshold counting
	AlertThresholds map[string]int // Per-type event counts that trigger an alert
	AlertTimeout    time.Duration  // Cap on a single alert delivery attempt
	MetricsWindow   time.Duration  // Aggregation window for Metrics (typically 24h)
}

// Monitor is an append-only bounded security event log with threshold-based
// alert dispatch. Every guard component reports anomalies here.
//
// Alerting fires once per threshold crossing: with a threshold of N, the
// N-th, 2N-th, 3N-th ... qualifying event inside the trailing window each
// dispatch exactly one alert. Delivery happens on its own goroutine with a
// bounded timeout and never blocks or fails the caller.
type Monitor struct {
	mu     sync.Mutex
	events []Event // ring buffer
	next   int     // index of the slot the next event goes into
	size   int     // number of live events, <= cap

	config   MonitorConfig
	notifier Notifier
	kv       storage.KV
	logger   *slog.Logger
	now      func() time.Time
}

// NewMonitor creates a monitor. notifier may be nil, in which case threshold
// crossings are logged but not delivered anywhere. kv backs the aggregate
// metrics counters; the in-memory store is fine for a single instance.
func NewMonitor(config MonitorConfig, notifier Notifier, kv storage.KV, logger *slog.Logger) *Monitor {
	if config.LogCapacity <= 0 {
		config.LogCapacity = 1000
	}
	return &Monitor{
		events:   make([]Event, config.LogCapacity),
		config:   config,
		notifier: notifier,
		kv:       kv,
		logger:   logger,
		now:      time.Now,
	}
}

// LogEvent appends an event to the bounded log, bumps the aggregate counter
// for its type, and checks alert conditions. Safe for concurrent use.
func (m *Monitor) LogEvent(event Event) {
	m.mu.Lock()

	event.Timestamp = m.now()
	m.events[m.next] = event
	m.next = (m.next + 1) % len(m.events)
	if m.size < len(m.events) {
		m.size++
	}

	crossing := m.checkAlertConditionsLocked(event)
	m.mu.Unlock()

	m.logger.Info("security event",
		slog.String("event_type", event.Type),
		slog.String("severity", event.Severity),
		slog.String("message", event.Message),
		slog.String("ip", event.IP),
	)

	m.bumpCounter(event)

	if crossing > 0 {
		go m.dispatchAlert(event, crossing)
	}
}

// checkAlertConditionsLocked counts same-type events inside the trailing
// alert window (including the event just appended) and returns the count when
// it sits exactly on a threshold multiple, zero otherwise. Caller holds the
// mutex.
func (m *Monitor) checkAlertConditionsLocked(event Event) int {
	threshold := m.config.AlertThresholds[event.Type]
	if threshold <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.config.AlertWindow)
	count := 0
	for _, e := range m.live() {
		if e.Type == event.Type && e.Timestamp.After(cutoff) {
			count++
		}
	}

	if count%threshold == 0 {
		return count
	}
	return 0
}

// dispatchAlert delivers one alert off the request path. Failures are logged
// and swallowed.
func (m *Monitor) dispatchAlert(event Event, count int) {
	m.logger.Warn("security alert threshold crossed",
		slog.String("event_type", event.Type),
		slog.Int("count", count),
	)

	if m.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.config.AlertTimeout)
	defer cancel()

	if err := m.notifier.Notify(ctx, event); err != nil {
		m.logger.Error("alert delivery failed",
			slog.String("event_type", event.Type),
			slog.Any("error", err),
		)
	}
}

// bumpCounter increments the hourly aggregate counter for the event type.
// Counter errors never affect the caller.
func (m *Monitor) bumpCounter(event Event) {
	if m.kv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := metricKey(event.Type, event.Timestamp)
	if _, err := m.kv.IncrementAndGet(ctx, key); err != nil {
		m.logger.Error("failed to bump event counter", slog.Any("error", err))
		return
	}
	// Keep buckets one hour past the metrics window so a bucket opened at the
	// edge of the window is still complete when queried.
	if err := m.kv.Expire(ctx, key, m.config.MetricsWindow+time.Hour); err != nil {
		m.logger.Error("failed to set counter expiry", slog.Any("error", err))
	}
}

// RecentEvents returns up to limit events, newest first
func (m *Monitor) RecentEvents(limit int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.live()
	if limit <= 0 || limit > len(live) {
		limit = len(live)
	}

	out := make([]Event, 0, limit)
	for i := len(live) - 1; i >= len(live)-limit; i-- {
		out = append(out, live[i])
	}
	return out
}

// EventsByType returns events of the given type recorded within the trailing
// window, oldest first.
func (m *Monitor) EventsByType(eventType string, window time.Duration) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-window)
	out := make([]Event, 0)
	for _, e := range m.live() {
		if e.Type == eventType && e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Metrics returns per-type event counts over the metrics window, summed from
// the hourly aggregate counters. Types with no events are omitted.
func (m *Monitor) Metrics(ctx context.Context) (map[string]int64, error) {
	if m.kv == nil {
		return map[string]int64{}, nil
	}

	now := m.now()
	hours := int(m.config.MetricsWindow / time.Hour)
	if hours < 1 {
		hours = 1
	}

	metrics := make(map[string]int64)
	for _, eventType := range allEventTypes {
		var total int64
		for h := 0; h < hours; h++ {
			value, ok, err := m.kv.Get(ctx, metricKey(eventType, now.Add(-time.Duration(h)*time.Hour)))
			if err != nil {
				return nil, fmt.Errorf("failed to read counter for %s: %w", eventType, err)
			}
			if !ok {
				continue
			}
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("corrupt counter for %s: %w", eventType, err)
			}
			total += n
		}
		if total > 0 {
			metrics[eventType] = total
		}
	}
	return metrics, nil
}

// live returns the ring buffer contents oldest first. Caller holds the mutex.
func (m *Monitor) live() []Event {
	out := make([]Event, 0, m.size)
	start := m.next - m.size
	if start < 0 {
		start += len(m.events)
	}
	for i := 0; i < m.size; i++ {
		out = append(out, m.events[(start+i)%len(m.events)])
	}
	return out
}

// metricKey buckets counters by type and hour
func metricKey(eventType string, t time.Time) string {
	return "secevents:" + eventType + ":" + strconv.FormatInt(t.Truncate(time.Hour).Unix(), 10)
}
