package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/audit"
	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/config"
	"github.com/melontrace/melontrace-engine/pkg/database"
	"github.com/melontrace/melontrace-engine/pkg/handlers"
	"github.com/melontrace/melontrace-engine/pkg/logging"
	"github.com/melontrace/melontrace-engine/pkg/middleware"
	"github.com/melontrace/melontrace-engine/pkg/observability"
	"github.com/melontrace/melontrace-engine/pkg/repositories"
	"github.com/melontrace/melontrace-engine/pkg/retry"
	"github.com/melontrace/melontrace-engine/pkg/services"
	"github.com/melontrace/melontrace-engine/pkg/views"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	printConfig := flag.Bool("print-config", false, "print the effective configuration as YAML and exit")
	flag.Parse()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *printConfig {
		if err := config.WriteExample(os.Stdout, cfg); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		return
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsLocal() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger.With(zap.String("version", cfg.Version))
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.ResolveServiceHosts()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("redis", cfg.Redis.Addr()),
		zap.Bool("tracing", cfg.Tracing.Enabled))

	shutdownTracing, err := observability.InitTracing(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
		Retry:          retry.StartupConfig(),
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("run migrations: %w", err)
	}
	_ = sqlDB.Close()

	rdb, err := database.NewRedisClient(ctx, &cfg.Redis, retry.StartupConfig())
	if err != nil {
		return err
	}
	var cache interface {
		views.Cache
		views.Invalidator
	}
	if rdb != nil {
		defer rdb.Close()
		cache = views.NewRedisCache(rdb, cfg.Redis.ViewTTL(), logger)
	} else {
		logger.Info("Redis not configured, view invalidations are logged only")
		cache = views.NewLogCache(logger)
	}

	validator, err := auth.NewJWTValidator(ctx, &auth.ValidatorConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		Secret:             []byte(cfg.Auth.JWTSecret),
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		return fmt.Errorf("init token validator: %w", err)
	}
	defer validator.Close()

	auditor := audit.NewSecurityAuditor(logger)
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(validator, logger), auditor, logger)
	issuer := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	cookieSettings := auth.DeriveCookieSettings(cfg.BaseURL, "")

	// Repositories
	batchRepo := repositories.NewBatchRepository()
	recordRepo := repositories.NewFarmingRecordRepository()
	inspectionRepo := repositories.NewInspectionRepository()
	logisticsRepo := repositories.NewLogisticsRepository()
	feedbackRepo := repositories.NewFeedbackRepository()
	alertRepo := repositories.NewAlertRepository()
	disposalRepo := repositories.NewDisposalRepository()
	triggerRepo := repositories.NewAlertTriggerRepository(batchRepo, inspectionRepo, feedbackRepo, logisticsRepo)

	// Services
	trigger := services.NewAlertTriggerService(alertRepo, triggerRepo, cfg.AlertRules.Rules(), logger)
	alertService := services.NewAlertService(alertRepo, disposalRepo, batchRepo, trigger, cache, logger)
	batchService := services.NewBatchService(batchRepo, cache, logger)
	recordService := services.NewFarmingRecordService(recordRepo, batchRepo, cache, logger)
	inspectionService := services.NewInspectionService(inspectionRepo, batchRepo, alertService, cache, logger)
	logisticsService := services.NewLogisticsService(logisticsRepo, batchRepo, cache, logger)
	feedbackService := services.NewFeedbackService(feedbackRepo, batchRepo, alertService, cache, auditor, logger)
	viewService := services.NewViewService(batchRepo, recordRepo, inspectionRepo, logisticsRepo, feedbackRepo, alertRepo, cache, logger)

	mux := http.NewServeMux()
	scope := database.WithScopeContext(db, logger)

	checks := map[string]handlers.Pinger{"postgres": db.Pool}
	if rdb != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	handlers.NewHealthHandler(cfg, checks, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(issuer, cookieSettings, auditor, logger).RegisterRoutes(mux, authMiddleware, cfg.IsLocal())
	handlers.NewBatchHandler(batchService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewFarmingRecordHandler(recordService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewInspectionHandler(inspectionService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewLogisticsHandler(logisticsService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewFeedbackHandler(feedbackService, logger).RegisterRoutes(mux, scope)
	handlers.NewAlertHandler(alertService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewViewHandler(viewService, logger).RegisterRoutes(mux, authMiddleware, scope)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.Recoverer(logger)(middleware.RequestLogger(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting melontrace-engine",
			zap.String("addr", server.Addr),
			zap.Bool("tls", cfg.TLSCertPath != ""))
		var err error
		if cfg.TLSCertPath != "" {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
