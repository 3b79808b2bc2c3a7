package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reportvault/api/internal/api/handlers"
	"reportvault/api/internal/api/middleware"
	"reportvault/api/internal/api/router"
	"reportvault/api/internal/config"
	"reportvault/api/internal/core/domain"
	"reportvault/api/internal/core/services"
	"reportvault/api/internal/db/memory"
	"reportvault/api/internal/db/postgres"
	"reportvault/api/internal/infrastructure/crypto"
	"reportvault/api/internal/infrastructure/metrics"
	"reportvault/api/internal/infrastructure/ratelimit"
	"reportvault/api/internal/infrastructure/storage"
	"reportvault/api/internal/workers"
)

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("🚀 Booting report vault...")

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("FATAL: configuration rejected", "error", err)
		os.Exit(1)
	}

	// --- 2. Outbound Infrastructure ---
	cryptoService, err := crypto.NewAESCryptoServiceFromSecret(cfg.EncryptionKey, cfg.EncryptionSalt)
	if err != nil {
		logger.Error("FATAL: cipher init failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewReportStore(cfg.ReportsDir, logger)
	if err != nil {
		logger.Error("FATAL: report directory unusable", "dir", cfg.ReportsDir, "error", err)
		os.Exit(1)
	}

	var (
		assessmentRepo domain.AssessmentRepository
		attemptLog     domain.DownloadAttemptLog
	)
	if cfg.DatabaseURL != "" {
		bootCtx, cancelBoot := context.WithTimeout(context.Background(), 15*time.Second)
		dbPool, err := postgres.NewPool(bootCtx, cfg.DatabaseURL)
		if err != nil {
			cancelBoot()
			logger.Error("FATAL: DB failed", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := postgres.Migrate(bootCtx, dbPool); err != nil {
			cancelBoot()
			logger.Error("FATAL: schema migration failed", "error", err)
			os.Exit(1)
		}

		sqlDB, err := postgres.NewSQLX(bootCtx, cfg.DatabaseURL)
		cancelBoot()
		if err != nil {
			logger.Error("FATAL: sqlx link failed", "error", err)
			os.Exit(1)
		}
		defer sqlDB.Close()

		assessmentRepo = postgres.NewAssessmentRepository(sqlDB)
		attemptLog = postgres.NewDownloadAttemptRepository(dbPool)
	} else {
		logger.Warn("DATABASE_URL unset, assessments and download attempts are held in memory")
		assessmentRepo = memory.NewAssessmentRepository()
		attemptLog = memory.NewAttemptLog(1024)
	}

	// --- 3. Dependency Injection ---
	promMetrics := metrics.NewProm("reportvault")

	tokens, err := services.NewDownloadTokenService(cfg.DownloadSecret, cfg.DownloadTokenTTL)
	if err != nil {
		logger.Error("FATAL: download token service", "error", err)
		os.Exit(1)
	}
	throttle := ratelimit.NewAttemptThrottle(ratelimit.Policy{
		MaxPerWindow: cfg.DownloadLimit,
		Window:       cfg.DownloadWindow,
	})
	apiLimiter := middleware.NewAPILimiter(cfg.APILimit, cfg.APIWindow)

	authService := services.NewAuthService(cfg.JWTSecret)
	assessmentService := services.NewAssessmentService(assessmentRepo, cryptoService, logger)
	reportService := services.NewReportService(store, tokens, throttle, attemptLog, assessmentRepo, promMetrics, logger)

	reportHandler := handlers.NewReportHandler(reportService, tokens, throttle, cfg.MaxReportBytes)
	assessmentHandler := handlers.NewAssessmentHandler(assessmentService)
	healthHandler := handlers.NewHealthHandler(store, storage.DirMode)
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)

	// --- 4. Background Workers ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	sweeper := workers.NewRetentionSweeper(store, promMetrics, logger, cfg.SweepInterval, cfg.ReportMaxAge)
	go sweeper.Start(workerCtx)
	go throttle.StartPruning(workerCtx, cfg.DownloadWindow)
	go apiLimiter.StartCleanup(workerCtx, cfg.APIWindow)

	// --- 5. HTTP Gateway ---
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		ReportHandler:     reportHandler,
		AssessmentHandler: assessmentHandler,
		HealthHandler:     healthHandler,
		AuthMiddleware:    authMiddleware,
		APILimiter:        apiLimiter,
		MetricsHandler:    promMetrics.Handler(),
		Logger:            logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	// --- 6. Graceful Exit ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("🌐 Report vault active", "port", cfg.Port, "env", cfg.Environment, "reports_dir", store.Dir())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("CRITICAL: Server crashed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("🛑 Shutting down...")
	cancelWorkers()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", "error", err)
	}
	logger.Info("✅ Report vault shutdown complete")
}
