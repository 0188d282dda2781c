package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("SESSION_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
}

func TestLoad_SecurityDefaults(t *testing.T) {
	setRequiredEnv(t)
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   any
		expected any
	}{
		{"GeneralRateMax", cfg.Security.GeneralRateMax, 100},
		{"GeneralRateWindow", cfg.Security.GeneralRateWindow, time.Minute},
		{"AuthRateMax", cfg.Security.AuthRateMax, 10},
		{"FormRateMax", cfg.Security.FormRateMax, 30},
		{"MaxLoginAttempts", cfg.Security.MaxLoginAttempts, 5},
		{"LockoutDuration", cfg.Security.LockoutDuration, 15 * time.Minute},
		{"CSRFTokenTTL", cfg.Security.CSRFTokenTTL, 15 * time.Minute},
		{"BlockDuration", cfg.Security.BlockDuration, time.Hour},
		{"MaxBodyBytes", cfg.Security.MaxBodyBytes, int64(1 << 20)},
		{"EventLogCapacity", cfg.Security.EventLogCapacity, 1000},
		{"AlertWindow", cfg.Security.AlertWindow, time.Hour},
		{"AlertTimeout", cfg.Security.AlertTimeout, 5 * time.Second},
		{"SweepInterval", cfg.Security.SweepInterval, 5 * time.Minute},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if got := cfg.Security.AlertThresholds["login_failure"]; got != 20 {
		t.Errorf("AlertThresholds[login_failure]: got %d, want 20", got)
	}
	if got := cfg.Security.AlertThresholds["suspicious_pattern"]; got != 5 {
		t.Errorf("AlertThresholds[suspicious_pattern]: got %d, want 5", got)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("RATE_AUTH_MAX", "3")
	os.Setenv("LOCKOUT_DURATION", "30m")
	os.Setenv("SERVER_READ_TIMEOUT", "30s")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Security.AuthRateMax != 3 {
		t.Errorf("AuthRateMax: got %d, want 3", cfg.Security.AuthRateMax)
	}
	if cfg.Security.LockoutDuration != 30*time.Minute {
		t.Errorf("LockoutDuration: got %v, want 30m", cfg.Security.LockoutDuration)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout: got %v, want 30s", cfg.Server.ReadTimeout)
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("RATE_GENERAL_MAX", "not-a-number")
	os.Setenv("CSRF_TOKEN_TTL", "not-a-duration")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Security.GeneralRateMax != 100 {
		t.Errorf("GeneralRateMax with invalid value: got %d, want 100", cfg.Security.GeneralRateMax)
	}
	if cfg.Security.CSRFTokenTTL != 15*time.Minute {
		t.Errorf("CSRFTokenTTL with invalid value: got %v, want 15m", cfg.Security.CSRFTokenTTL)
	}
}

func TestLoad_MissingSessionSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() without SESSION_SECRET should fail")
	}
}

func TestLoad_SessionSecretStrength(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		env     string
		wantErr bool
	}{
		{"short in development", "tooshort", "development", true},
		{"16 chars in development", "exactly-16-chars", "development", false},
		{"16 chars in production", "exactly-16-chars", "production", true},
		{"32 chars in production", "this-secret-is-32-characters-ok!", "production", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("SESSION_SECRET", tt.secret)
			os.Setenv("DB_PASSWORD", "test")
			os.Setenv("ENV", tt.env)
			defer os.Clearenv()

			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingDBPassword(t *testing.T) {
	os.Clearenv()
	os.Setenv("SESSION_SECRET", "test-secret-32-characters-long!!")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() without DB_PASSWORD should fail")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "waypoint",
		Password: "pw",
		Name:     "waypoint",
		SSLMode:  "require",
	}

	want := "host=db.internal port=5433 user=waypoint password=pw dbname=waypoint sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
