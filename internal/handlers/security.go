package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tmarsden/waypoint/internal/models"
	"github.com/tmarsden/waypoint/internal/security"
	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

// SecurityServiceInterface defines the admin security operations
type SecurityServiceInterface interface {
	RecentEvents(limit int) []security.Event
	EventsByType(eventType string, window time.Duration) []security.Event
	Metrics(ctx context.Context) (map[string]int64, error)
	BlockIP(ip string, duration time.Duration) error
	UnblockIP(ip string) error
	BlockedUntil(ip string) time.Time
}

// SecurityHandler exposes the admin security surface: event review, metrics,
// and manual IP blocking. Every route here sits behind the admin role.
type SecurityHandler struct {
	service SecurityServiceInterface
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(service SecurityServiceInterface) *SecurityHandler {
	return &SecurityHandler{service: service}
}

// BlockIPRequest represents the request body for blocking an IP
type BlockIPRequest struct {
	IP              string `json:"ip" validate:"required,ip"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,gte=1,lte=10080"`
}

// BlockIPResponse reports the applied block
type BlockIPResponse struct {
	IP           string    `json:"ip"`
	BlockedUntil time.Time `json:"blocked_until"`
}

// EventsResponse wraps a list of security events
type EventsResponse struct {
	Events []security.Event `json:"events"`
	Count  int              `json:"count"`
}

// RecentEvents returns the newest security events
func (h *SecurityHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			pkghttp.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events := h.service.RecentEvents(limit)
	writeJSON(w, http.StatusOK, EventsResponse{Events: events, Count: len(events)})
}

// EventsByType returns events of one type within a trailing window
func (h *SecurityHandler) EventsByType(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "type")
	if eventType == "" {
		pkghttp.WriteBadRequest(w, "event type is required")
		return
	}

	window := time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			pkghttp.WriteBadRequest(w, "window must be a positive duration")
			return
		}
		window = parsed
	}

	events := h.service.EventsByType(eventType, window)
	writeJSON(w, http.StatusOK, EventsResponse{Events: events, Count: len(events)})
}

// Metrics returns per-type event counts over the metrics window
func (h *SecurityHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Metrics(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to load metrics")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// BlockIP places a temporary block on an IP address
func (h *SecurityHandler) BlockIP(w http.ResponseWriter, r *http.Request) {
	var req BlockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	if err := h.service.BlockIP(req.IP, duration); err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "invalid ip")
			return
		}
		pkghttp.WriteInternalError(w, "failed to block ip")
		return
	}

	writeJSON(w, http.StatusOK, BlockIPResponse{
		IP:           req.IP,
		BlockedUntil: h.service.BlockedUntil(req.IP),
	})
}

// UnblockIP lifts a block before it expires
func (h *SecurityHandler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if ip == "" {
		pkghttp.WriteBadRequest(w, "ip is required")
		return
	}

	if err := h.service.UnblockIP(ip); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "ip is not blocked")
			return
		}
		pkghttp.WriteBadRequest(w, "invalid ip")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
