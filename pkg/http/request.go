package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds configuration for client IP extraction
type IPConfig struct {
	TrustedProxies []string // CIDR ranges whose forwarding headers are believed
}

// ExtractClientIP returns the real client IP for a request. X-Forwarded-For
// and X-Real-IP are honored only when the direct peer is a trusted proxy;
// anything a client can set itself is otherwise ignored, since every
// downstream security decision (blocking, rate limiting) keys off this value.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)

	if config == nil || !isTrustedProxy(remoteIP, config.TrustedProxies) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	return remoteIP
}

// remoteAddr strips the port from RemoteAddr when present
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// isTrustedProxy reports whether ip falls inside any trusted CIDR range.
// Bare IPs in the list are treated as /32 (or /128) entries.
func isTrustedProxy(ip string, trusted []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, cidr := range trusted {
		if !strings.Contains(cidr, "/") {
			if trustedIP := net.ParseIP(cidr); trustedIP != nil && trustedIP.Equal(parsed) {
				return true
			}
			continue
		}
		if _, network, err := net.ParseCIDR(cidr); err == nil && network.Contains(parsed) {
			return true
		}
	}
	return false
}
