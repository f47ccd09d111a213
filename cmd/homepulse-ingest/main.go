// homepulse-ingest — ingestion client: subscribes to the home hub's
// WebSocket event stream and forwards state changes to the enrichment
// service.
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
	"github.com/homepulse/homepulse/pkg/hub"
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

	slog.Info("Starting homepulse-ingest",
		"hub_url", cfg.Hub.URL,
		"enrich_url", cfg.Ingest.EnrichURL,
		"config_dir", *configDir)

	client := hub.NewClient(cfg.Hub, cfg.Ingest, cfg.Logging.CorrelationHeader, logger)
	if err := client.Start(ctx); err != nil {
		slog.Error("Failed to start hub client", "error", err)
		os.Exit(1)
	}

	// Health and metrics surface.
	e := echo.New()
	e.GET("/health", func(c *echo.Context) error {
		h := client.Health()
		status := http.StatusOK
		if !h.Connected {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, h)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	healthAddr := getEnv("HEALTH_ADDR", ":8081")
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

	slog.Info("homepulse-ingest started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Health server shutdown error", "error", err)
	}

	client.Stop()
	slog.Info("Shutdown complete")
}
