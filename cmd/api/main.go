package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tmarsden/waypoint/internal/auth"
	"github.com/tmarsden/waypoint/internal/background"
	"github.com/tmarsden/waypoint/internal/config"
	"github.com/tmarsden/waypoint/internal/database"
	"github.com/tmarsden/waypoint/internal/handlers"
	middlewareCustom "github.com/tmarsden/waypoint/internal/middleware"
	"github.com/tmarsden/waypoint/internal/models"
	"github.com/tmarsden/waypoint/internal/repositories"
	"github.com/tmarsden/waypoint/internal/routes"
	"github.com/tmarsden/waypoint/internal/security"
	"github.com/tmarsden/waypoint/internal/services"
	"github.com/tmarsden/waypoint/internal/storage/memory"
	pkgauth "github.com/tmarsden/waypoint/pkg/auth"
	pkghttp "github.com/tmarsden/waypoint/pkg/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.Connect(context.Background(), &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)

	// Security stores
	blocker := security.NewTemporaryBlocker()
	lockout := security.NewAccountLockout(security.LockoutConfig{
		MaxAttempts:     cfg.Security.MaxLoginAttempts,
		LockoutDuration: cfg.Security.LockoutDuration,
	})
	csrfStore := security.NewCSRFTokenStore(security.CSRFConfig{
		TokenTTL: cfg.Security.CSRFTokenTTL,
	})
	limiters := map[security.TrafficClass]*security.RateLimiter{
		security.TrafficGeneral: security.NewRateLimiter(security.RateLimitConfig{
			Window:      cfg.Security.GeneralRateWindow,
			MaxRequests: cfg.Security.GeneralRateMax,
		}),
		security.TrafficAuth: security.NewRateLimiter(security.RateLimitConfig{
			Window:      cfg.Security.AuthRateWindow,
			MaxRequests: cfg.Security.AuthRateMax,
		}),
		security.TrafficForm: security.NewRateLimiter(security.RateLimitConfig{
			Window:      cfg.Security.FormRateWindow,
			MaxRequests: cfg.Security.FormRateMax,
		}),
	}

	// Alert channels
	notifier, err := buildNotifier(&cfg.Security, logger)
	if err != nil {
		logger.Error("failed to initialize alert notifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Event monitor over an in-process KV store for aggregate counters. The
	// store joins the sweep below: Metrics only reads buckets inside the
	// window, so expired ones would otherwise never be reclaimed.
	kvStore := memory.NewStore()
	monitor := security.NewMonitor(security.MonitorConfig{
		LogCapacity:     cfg.Security.EventLogCapacity,
		AlertWindow:     cfg.Security.AlertWindow,
		AlertThresholds: cfg.Security.AlertThresholds,
		AlertTimeout:    cfg.Security.AlertTimeout,
		MetricsWindow:   cfg.Security.MetricsWindow,
	}, notifier, kvStore, logger)

	guard := security.NewRequestGuard(blocker, lockout, limiters, monitor, security.GuardConfig{
		MaxBodyBytes: cfg.Security.MaxBodyBytes,
	})

	// Auth machinery
	issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Secret: cfg.Auth.SessionSecret,
		Issuer: cfg.Auth.SessionIssuer,
	})
	policy := pkgauth.NewPolicy(pkgauth.PolicyConfig{
		MinLength: cfg.Auth.PasswordMinLen,
		MaxLength: cfg.Auth.PasswordMaxLen,
	})
	totpManager := auth.NewTOTPManager(cfg.Auth.TOTPIssuer)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.TimingDelayBase,
		RandomDelay: cfg.Auth.TimingDelayJitter,
	})

	// Services
	authService := services.NewAuthService(userRepo, policy, issuer, totpManager, lockout, monitor, timingDelay, logger)
	securityService := services.NewSecurityService(monitor, blocker, cfg.Security.BlockDuration, logger)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, csrfStore, ipConfig)
	securityHandler := handlers.NewSecurityHandler(securityService)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, policy, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Background sweep over every expiring store
	sweeper := background.NewSweepManager(map[string]background.Sweepable{
		"rate_limiter_general": limiters[security.TrafficGeneral],
		"rate_limiter_auth":    limiters[security.TrafficAuth],
		"rate_limiter_form":    limiters[security.TrafficForm],
		"blocklist":            blocker,
		"lockout":              lockout,
		"csrf_tokens":          csrfStore,
		"event_counters":       kvStore,
	}, logger, cfg.Security.SweepInterval)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, securityHandler, issuer, guard, csrfStore, monitor, ipConfig)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}
		stats := db.Stats()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","database":"up","pool":{"total_conns":%d,"idle_conns":%d}}`,
			stats.TotalConns(), stats.IdleConns())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start sweep task
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// buildNotifier assembles the configured alert channels. Returns nil when
// none are configured; the monitor then only logs threshold crossings.
func buildNotifier(cfg *config.SecurityConfig, logger *slog.Logger) (security.Notifier, error) {
	var channels security.MultiNotifier

	if cfg.AlertWebhookURL != "" {
		channels = append(channels, security.NewWebhookNotifier(cfg.AlertWebhookURL, cfg.AlertTimeout))
	}

	if cfg.AlertEmailFrom != "" && cfg.AlertEmailTo != "" {
		mailer, err := services.NewSESAlertNotifier(cfg.AWSRegion, cfg.AlertEmailFrom, cfg.AlertEmailTo, logger)
		if err != nil {
			return nil, err
		}
		channels = append(channels, mailer)
	}

	switch len(channels) {
	case 0:
		return nil, nil
	case 1:
		return channels[0], nil
	default:
		return channels, nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, policy *pkgauth.Policy, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := policy.Hash(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
