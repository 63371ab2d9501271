package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thenielthevis/capstone-project-sub006/internal/bootstrap"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/config"
	grpcpresentation "github.com/thenielthevis/capstone-project-sub006/internal/presentation/grpc"
	"github.com/thenielthevis/capstone-project-sub006/internal/presentation/rest"
	"github.com/thenielthevis/capstone-project-sub006/pkg/auth"
	"github.com/thenielthevis/capstone-project-sub006/pkg/observability"
	pgutil "github.com/thenielthevis/capstone-project-sub006/pkg/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("riskd exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg := config.Load()

	// Initialize structured logger via shared observability package.
	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.Telemetry.ServiceName,
	})
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting riskd",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"environment", cfg.Environment,
	)

	// Initialize tracing.
	if cfg.Telemetry.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Insecure:    true,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer flushCancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	// Wire adapters and use cases.
	buildCtx, buildCancel := context.WithTimeout(ctx, 30*time.Second)
	app, err := bootstrap.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		return err
	}

	jwtService, err := bootstrap.TokenService(cfg.Auth, time.Hour)
	if err != nil {
		_ = app.Close(context.Background())
		return fmt.Errorf("failed to configure authentication: %w", err)
	}
	var validator auth.TokenValidator
	if jwtService != nil {
		validator = jwtService
	}

	// gRPC server.
	grpcHandler := grpcpresentation.NewPredictionServiceHandler(app.Predictions, cfg.Auth.Enabled, logger)
	grpcServer, err := grpcpresentation.NewServer(grpcHandler, grpcpresentation.ServerConfig{
		Address:     cfg.GRPCAddress(),
		Validator:   validator,
		TLSCertFile: cfg.TLS.CertFile,
		TLSKeyFile:  cfg.TLS.KeyFile,
		Reflection:  cfg.GRPCReflection,
	}, logger)
	if err != nil {
		_ = app.Close(context.Background())
		return err
	}

	// HTTP server.
	checks := map[string]rest.ReadinessCheck{
		"database": func(ctx context.Context) error { return pgutil.HealthCheck(ctx, app.Pool) },
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}
	router := rest.NewRouter(rest.RouterConfig{
		Predictions: rest.NewPredictionHandler(app.Predictions, cfg.Auth.Enabled, logger),
		Health:      rest.NewHealthHandler(logger, checks),
		Metrics:     app.MetricsHandler,
		Validator:   validator,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Inference.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start servers.
	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info("riskd started",
		"grpc_address", cfg.GRPCAddress(),
		"http_address", cfg.HTTPAddress(),
	)

	// Wait for shutdown signal.
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error("server error", "error", serveErr)
	}

	// Graceful shutdown: stop accepting requests, then drain enrichment.
	logger.Info("shutting down riskd")

	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Enrichment.DrainTimeout)
	defer drainCancel()
	if err := app.Close(drainCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}

	logger.Info("riskd stopped")
	return serveErr
}
