// Package api is the enrichment service's HTTP surface: the event
// intake, the health endpoints, per-provider inspection, and metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homepulse/homepulse/pkg/batch"
	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/pipeline"
	"github.com/homepulse/homepulse/pkg/providers"
)

// EventPipeline accepts inbound events, normally *pipeline.Service.
type EventPipeline interface {
	Submit(raw models.RawEvent, correlationID string) error
	Health() pipeline.Health
}

// WriterStatus exposes the batch writer's health.
type WriterStatus interface {
	Health() batch.Health
}

// ProviderSet is the slice of the provider registry the API reads.
type ProviderSet interface {
	Get(name string) (providers.Provider, bool)
	Health() map[string]providers.Health
}

// StorePinger checks store reachability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Server is the enrichment HTTP server.
type Server struct {
	echo     *echo.Echo
	srv      *http.Server
	pipe     EventPipeline
	writer   WriterStatus
	registry ProviderSet
	store    StorePinger
	logger   *slog.Logger
}

// NewServer wires the routes and middleware.
func NewServer(cfg *config.EnrichConfig, header string, pipe EventPipeline, writer WriterStatus, registry ProviderSet, store StorePinger, logger *slog.Logger) *Server {
	s := &Server{
		echo:     echo.New(),
		pipe:     pipe,
		writer:   writer,
		registry: registry,
		store:    store,
		logger:   logger.With("component", "api"),
	}

	s.echo.Use(securityHeaders())
	s.echo.Use(correlationID(header))
	s.echo.Use(requestLogger(s.logger))

	s.echo.POST("/events", s.eventsHandler)
	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/providers/:name/health", s.providerHealthHandler)
	s.echo.GET("/providers/:name/latest", s.providerLatestHandler)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves HTTP until Shutdown. Blocks.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight
// requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.srv.Shutdown(ctx)
}
