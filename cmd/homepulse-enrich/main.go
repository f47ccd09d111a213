// homepulse-enrich — enrichment service: HTTP intake, validation and
// enrichment pipeline, batch writes to the time-series store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/homepulse/homepulse/pkg/api"
	"github.com/homepulse/homepulse/pkg/batch"
	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/pipeline"
	"github.com/homepulse/homepulse/pkg/providers"
	"github.com/homepulse/homepulse/pkg/store"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		slog.Error("Invalid logging configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("Starting homepulse-enrich",
		"listen_addr", cfg.Enrich.ListenAddr,
		"config_dir", *configDir)

	// 2. Store client and batch writer
	storeClient := store.NewClient(cfg.Store)
	if err := storeClient.Ping(ctx); err != nil {
		slog.Warn("Store not reachable at startup, continuing", "error", err)
	}

	writer := batch.NewWriter(storeClient, cfg.Enrich, logger)

	// 3. Enrichment providers
	registry := providers.NewRegistry(cfg.Providers, logger)
	registry.Start(ctx)
	defer registry.Stop()
	slog.Info("Providers started", "providers", registry.Names())

	// 4. Pipeline workers (before the HTTP intake opens)
	writer.Start()
	service := pipeline.NewService(cfg.Enrich, writer, registry, logger)
	service.Start()

	// 5. HTTP server
	httpServer := api.NewServer(cfg.Enrich, cfg.Logging.CorrelationHeader,
		service, writer, registry, storeClient, logger)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Enrich.ListenAddr)
		if err := httpServer.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("homepulse-enrich started successfully",
		"workers", cfg.Enrich.Workers,
		"batch_size", cfg.Enrich.BatchSize)

	// 6. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 7. Graceful shutdown: close the intake first so nothing new enters,
	// then drain the pipeline, then flush the writer.
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	drainCtx, drainCancel := context.WithTimeout(ctx, cfg.Enrich.GracefulDrainTimeout.Std())
	defer drainCancel()

	done := make(chan struct{})
	go func() {
		service.Stop()
		writer.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Pipeline drained")
	case <-drainCtx.Done():
		slog.Warn("Drain timeout exceeded, undelivered points remain in queue")
	}

	slog.Info("Shutdown complete")
}
