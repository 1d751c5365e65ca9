package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/akivmoovex/fuelx-crm-sub001/pkg/access"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/audit"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/config"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/directory"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/httputil"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/observability"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(parseLogLevel(cfg.Logging.Level), os.Stdout)
	logger.Info("starting fuelx-access")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Error("database connection failed")
		os.Exit(1)
	}
	defer db.Close()

	if err := access.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("migrations failed")
		os.Exit(1)
	}
	logger.Info("migrations applied")

	var auditLogger audit.Logger = audit.NewNopLogger()
	if cfg.Audit.Enabled {
		dbLogger, err := audit.NewDBLogger(ctx, db)
		if err != nil {
			logger.WithError(err).Error("audit store initialization failed")
			os.Exit(1)
		}
		auditLogger = dbLogger
	}
	defer auditLogger.Close()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	engine := access.NewEngine(db, access.Options{
		Audit:   auditLogger,
		Logger:  logger,
		Metrics: metrics,
	})

	router := mux.NewRouter()
	router.Use(httputil.RequestIDMiddleware)
	router.Use(httputil.LoggingMiddleware(logger))
	router.Use(httputil.RecoveryMiddleware(logger))
	router.Use(access.UserHeaderMiddleware)
	if metrics != nil {
		router.Use(metrics.HTTPMiddleware)
	}

	access.NewHandlers(engine).RegisterRoutes(router)
	directory.NewHandlers(directory.NewStore(db), auditLogger).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	healthChecker := observability.NewHealthChecker(db)
	healthRouter := mux.NewRouter()
	healthRouter.HandleFunc("/healthz", healthChecker.LivenessHandler()).Methods("GET")
	healthRouter.HandleFunc("/readyz", healthChecker.ReadinessHandler()).Methods("GET")
	if metrics != nil {
		healthRouter.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	healthServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthRouter,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.WithField("addr", server.Addr).Info("api server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("api server shutdown failed")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("health server shutdown failed")
	}
	logger.Info("stopped")
}

func parseLogLevel(level string) observability.LogLevel {
	switch level {
	case "debug":
		return observability.DebugLevel
	case "warn":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}
