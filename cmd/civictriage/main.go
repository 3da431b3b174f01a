package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/opencivic/civictriage/config"
	"github.com/opencivic/civictriage/internal/api"
	"github.com/opencivic/civictriage/internal/database"
	"github.com/opencivic/civictriage/internal/dedupe"
	"github.com/opencivic/civictriage/internal/logger"
	"github.com/opencivic/civictriage/internal/metrics"
	middlewares "github.com/opencivic/civictriage/internal/middleware"
	"github.com/opencivic/civictriage/internal/ratelimit"
	"github.com/opencivic/civictriage/internal/store"
	"github.com/opencivic/civictriage/internal/sweep"
	"github.com/opencivic/civictriage/internal/triage"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env if present, real environment wins
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting CivicTriage application",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close(ctx)

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure database schema", "error", err)
	}

	// Initialize store
	ticketStore := store.New(db)

	// Initialize scoring engines
	triageEngine, err := newTriageEngine(cfg.Engine)
	if err != nil {
		logger.Fatal("Failed to load triage rules", "error", err)
	}
	dedupeEngine := dedupe.New()

	// Initialize background sweeper
	sweeper := sweep.New(ticketStore, dedupeEngine, cfg.Sweep)
	if cfg.Sweep.Enabled {
		go func() {
			if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("Sweeper error", "error", err)
			}
		}()
	}

	// Initialize submission rate limiter (optional, requires Redis)
	var limiter *ratelimit.Manager
	if cfg.RateLimit.Enabled && cfg.Redis.URL != "" {
		limiter, err = ratelimit.NewManager(cfg.Redis.URL, cfg.RateLimit.SubmissionsPerDay, cfg.RateLimit.Window)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}
		defer limiter.Close()
		logger.Info("Submission rate limiting enabled", "quota", cfg.RateLimit.SubmissionsPerDay)
	}

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.SubmissionLimit(limiter))

	// Initialize API handlers
	apiHandler := api.NewHandler(ticketStore, triageEngine, dedupeEngine, Version, BuildTime, GitCommit)
	apiHandler.RegisterRoutes(r)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

// newTriageEngine builds the triage engine, applying a YAML keyword
// override when one is configured.
func newTriageEngine(cfg config.EngineConfig) (*triage.Engine, error) {
	if cfg.RulesPath == "" {
		return triage.New(), nil
	}
	keywords, err := triage.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded triage keyword rules", "path", cfg.RulesPath)
	return triage.NewWithKeywords(keywords), nil
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
