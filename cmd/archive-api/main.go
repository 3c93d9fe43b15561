// Package main provides the entry point for the archive API server.
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sipico/archive-api/internal/admin"
	"github.com/sipico/archive-api/internal/config"
	"github.com/sipico/archive-api/internal/credential"
	"github.com/sipico/archive-api/internal/metrics"
	"github.com/sipico/archive-api/internal/middleware"
	"github.com/sipico/archive-api/internal/schema"
	"github.com/sipico/archive-api/internal/storage"
)

const (
	version               = "2026.10.1"
	serverShutdownTimeout = 30 * time.Second
	healthCheckURL        = "http://localhost:8080/health"
)

// serverComponents holds everything run wires together.
type serverComponents struct {
	logger       *slog.Logger
	logLevel     *slog.LevelVar
	store        *storage.SQLiteStorage
	registry     *schema.Registry
	issuer       *credential.Issuer
	bootstrapper *credential.Bootstrapper
	apiRouter    chi.Router
	mainRouter   http.Handler
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthCheck())
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	components, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.store.Close(); err != nil {
			components.logger.Error("failed to close storage", "error", err)
		}
	}()

	metrics.Version = version
	if err := metrics.Init(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if cfg.BootstrapUsername != "" {
		if err := bootstrap(context.Background(), components, cfg.BootstrapUsername); err != nil {
			return err
		}
	}

	metricsServer := createMetricsServer(cfg)
	go func() {
		components.logger.Info("Metrics listener starting", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			components.logger.Error("metrics listener failed", "error", err)
		}
	}()
	defer func() {
		//nolint:errcheck // Best effort on the way out
		metricsServer.Close()
	}()

	components.logger.Info("Archive API starting",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"database", cfg.DatabasePath,
		"schema_refs", components.registry.Len(),
	)

	return startServerAndWaitForShutdown(components.logger, createServer(cfg, components.mainRouter))
}

// parseLogLevel maps LOG_LEVEL to a slog level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", level)
}

// initializeComponents builds storage, the credential issuer and the routers.
func initializeComponents(cfg *config.Config) (*serverComponents, error) {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logLevel := new(slog.LevelVar)
	logLevel.Set(level)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	registry := schema.Default()
	for _, ref := range cfg.SchemaExtraRefs {
		if err := registry.Register(schema.Kind{Ref: ref}); err != nil {
			return nil, fmt.Errorf("failed to register schema ref %q: %w", ref, err)
		}
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	issuer := credential.NewIssuer(store, credential.Options{
		MaxAttempts: cfg.TokenMaxAttempts,
		Backoff:     cfg.TokenBackoff,
		Logger:      logger,
	})

	handler, err := admin.NewHandler(store, issuer, registry, logLevel, logger)
	if err != nil {
		_ = store.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to create API handler: %w", err)
	}
	apiRouter := handler.NewRouter()

	mainRouter := chi.NewRouter()
	mainRouter.Use(middleware.RequestID)
	mainRouter.Use(metrics.Middleware)
	mainRouter.Use(middleware.MaxBodySize(middleware.DefaultMaxBodySize))
	mainRouter.Use(middleware.DebugLogging(logger, middleware.APIBodyFields))
	mainRouter.Mount("/", apiRouter)

	return &serverComponents{
		logger:       logger,
		logLevel:     logLevel,
		store:        store,
		registry:     registry,
		issuer:       issuer,
		bootstrapper: credential.NewBootstrapper(store, issuer),
		apiRouter:    apiRouter,
		mainRouter:   mainRouter,
	}, nil
}

// bootstrap ensures the configured user exists and, on first start, prints
// its token. The secret is shown on stderr once and never logged.
func bootstrap(ctx context.Context, c *serverComponents, username string) error {
	user, token, err := c.bootstrapper.Run(ctx, username)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	if token == nil {
		c.logger.Info("bootstrap user already has a token", "username", user.Username)
		return nil
	}

	c.logger.Warn("issued bootstrap API token", "username", user.Username, "token", token)
	fmt.Fprintf(os.Stderr, "\nBootstrap API token for %q (shown once):\n\n    %s\n\n", user.Username, token.Token)
	return nil
}

// createServer creates an HTTP server with the API timeouts.
func createServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// createMetricsServer serves Prometheus metrics on their own listener.
func createMetricsServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              cfg.MetricsListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// startServerAndWaitForShutdown serves until SIGINT/SIGTERM, then drains
// in-flight requests for up to serverShutdownTimeout.
func startServerAndWaitForShutdown(logger *slog.Logger, server *http.Server) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("Received signal, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server shut down gracefully")
	return nil
}

// runHealthCheck probes the local server; used as the container health check.
func runHealthCheck() int {
	return doHealthCheck(healthCheckURL)
}

// doHealthCheck returns 0 when url answers 200 and 1 otherwise.
func doHealthCheck(url string) int {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
