package logger

import "strings"

// sensitiveParams are query parameter names whose presence forces the whole
// query string out of request logs.
var sensitiveParams = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"auth",
	"csrf",
	"session",
	"code",
}

// SanitizedEmail masks an email address for logging (e.g. "u***@***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username, domain := parts[0], parts[1]
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	for i := 0; i < len(domainParts)-1; i++ {
		domainParts[i] = strings.Repeat("*", len(domainParts[i]))
	}

	return username + "@" + strings.Join(domainParts, ".")
}

// ContainsSensitiveParams reports whether a raw query string carries any
// parameter that must never reach the logs.
func ContainsSensitiveParams(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	for _, pair := range strings.Split(strings.ToLower(rawQuery), "&") {
		name, _, _ := strings.Cut(pair, "=")
		for _, param := range sensitiveParams {
			if name == param {
				return true
			}
		}
	}
	return false
}
