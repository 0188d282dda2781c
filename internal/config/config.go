package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full application configuration. Every default in the system
// lives here and nowhere else.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type AuthConfig struct {
	SessionSecret     string
	SessionIssuer     string
	PasswordMinLen    int
	PasswordMaxLen    int
	TimingDelayBase   time.Duration
	TimingDelayJitter time.Duration
	TOTPIssuer        string
}

// SecurityConfig configures the abuse-prevention core
type SecurityConfig struct {
	// Fixed-window rate limiters per traffic class
	GeneralRateWindow time.Duration
	GeneralRateMax    int
	AuthRateWindow    time.Duration
	AuthRateMax       int
	FormRateWindow    time.Duration
	FormRateMax       int

	// Account lockout
	MaxLoginAttempts int
	LockoutDuration  time.Duration

	// One-time CSRF tokens
	CSRFTokenTTL time.Duration

	// Temporary IP blocks (duration applied by the admin escalation endpoint)
	BlockDuration time.Duration

	// Request guard
	MaxBodyBytes int64

	// Event monitor
	EventLogCapacity int
	AlertWindow      time.Duration
	AlertThresholds  map[string]int
	AlertTimeout     time.Duration
	MetricsWindow    time.Duration
	AlertWebhookURL  string // empty disables the webhook channel
	AlertEmailFrom   string // empty disables the SES channel
	AlertEmailTo     string
	AWSRegion        string

	// Background sweep
	SweepInterval time.Duration
}

// Load reads configuration from the environment (and .env when present)
func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")
	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsSlice("TRUSTED_PROXIES"),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "waypoint"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Auth: AuthConfig{
			SessionSecret:     sessionSecret,
			SessionIssuer:     getEnv("SESSION_ISSUER", "waypoint"),
			PasswordMinLen:    getEnvAsInt("PASSWORD_MIN_LENGTH", 8),
			PasswordMaxLen:    getEnvAsInt("PASSWORD_MAX_LENGTH", 128),
			TimingDelayBase:   getEnvAsDuration("AUTH_TIMING_DELAY_BASE", 100*time.Millisecond),
			TimingDelayJitter: getEnvAsDuration("AUTH_TIMING_DELAY_JITTER", 100*time.Millisecond),
			TOTPIssuer:        getEnv("TOTP_ISSUER", "Waypoint"),
		},
		Security: SecurityConfig{
			GeneralRateWindow: getEnvAsDuration("RATE_GENERAL_WINDOW", time.Minute),
			GeneralRateMax:    getEnvAsInt("RATE_GENERAL_MAX", 100),
			AuthRateWindow:    getEnvAsDuration("RATE_AUTH_WINDOW", time.Minute),
			AuthRateMax:       getEnvAsInt("RATE_AUTH_MAX", 10),
			FormRateWindow:    getEnvAsDuration("RATE_FORM_WINDOW", time.Minute),
			FormRateMax:       getEnvAsInt("RATE_FORM_MAX", 30),

			MaxLoginAttempts: getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			LockoutDuration:  getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),

			CSRFTokenTTL:  getEnvAsDuration("CSRF_TOKEN_TTL", 15*time.Minute),
			BlockDuration: getEnvAsDuration("BLOCK_DURATION", time.Hour),
			MaxBodyBytes:  int64(getEnvAsInt("MAX_BODY_BYTES", 1<<20)),

			EventLogCapacity: getEnvAsInt("EVENT_LOG_CAPACITY", 1000),
			AlertWindow:      getEnvAsDuration("ALERT_WINDOW", time.Hour),
			AlertThresholds: map[string]int{
				"login_failure":         getEnvAsInt("ALERT_THRESHOLD_LOGIN_FAILURE", 20),
				"rate_limit_exceeded":   getEnvAsInt("ALERT_THRESHOLD_RATE_LIMIT", 10),
				"suspicious_pattern":    getEnvAsInt("ALERT_THRESHOLD_SUSPICIOUS", 5),
				"blocked_ip_attempt":    getEnvAsInt("ALERT_THRESHOLD_BLOCKED_IP", 10),
				"csrf_token_invalid":    getEnvAsInt("ALERT_THRESHOLD_CSRF", 10),
				"session_token_invalid": getEnvAsInt("ALERT_THRESHOLD_SESSION", 20),
			},
			AlertTimeout:    getEnvAsDuration("ALERT_TIMEOUT", 5*time.Second),
			MetricsWindow:   getEnvAsDuration("METRICS_WINDOW", 24*time.Hour),
			AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
			AlertEmailFrom:  getEnv("ALERT_EMAIL_FROM", ""),
			AlertEmailTo:    getEnv("ALERT_EMAIL_TO", ""),
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

			SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return cfg, nil
}

// validateSessionSecret enforces minimum strength for the signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}
	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}
	lowered := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if lowered == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
