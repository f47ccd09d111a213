// homepulse-retention — retention engine: downsampling, tier movement,
// archival to object storage, materialized views, and storage
// analytics.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/retention"
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

	slog.Info("Starting homepulse-retention", "config_dir", *configDir)

	storeClient := store.NewClient(cfg.Store)
	if err := storeClient.Ping(ctx); err != nil {
		slog.Warn("Store not reachable at startup, continuing", "error", err)
	}

	// The archive job is inert without a configured bucket.
	var objects retention.ObjectStore
	if cfg.Retention.Archive != nil && cfg.Retention.Archive.Bucket != "" {
		s3Store, err := retention.NewS3Store(ctx, cfg.Retention.Archive)
		if err != nil {
			slog.Error("Failed to initialize archive object store", "error", err)
			os.Exit(1)
		}
		objects = s3Store
	} else {
		slog.Warn("No archive bucket configured, archive job disabled")
	}

	engine := retention.NewEngine(cfg.Retention, storeClient, objects, logger)
	engine.Start(ctx)

	e := echo.New()
	e.GET("/health", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, engine.Health())
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	healthAddr := getEnv("HEALTH_ADDR", ":8082")
	healthServer := &http.Server{
		Addr:              healthAddr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Health server listening", "addr", healthAddr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "error", err)
		}
	}()

	slog.Info("homepulse-retention started successfully",
		"views", len(cfg.Retention.Views))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Health server shutdown error", "error", err)
	}

	engine.Stop()
	slog.Info("Shutdown complete")
}
