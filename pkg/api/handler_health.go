package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health. Stale providers degrade the
// status but keep the service up; only an unreachable store makes it
// unhealthy, because accepted events can then no longer be made
// durable.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status := healthStatusHealthy
	storeCheck := HealthCheck{Status: healthStatusHealthy}
	if err := s.store.Ping(reqCtx); err != nil {
		status = healthStatusUnhealthy
		storeCheck = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	}

	providerHealth := s.registry.Health()
	for _, ph := range providerHealth {
		if !ph.Healthy && status == healthStatusHealthy {
			status = healthStatusDegraded
		}
	}

	writerHealth := s.writer.Health()
	if writerHealth.LastFlushError != "" && status == healthStatusHealthy {
		status = healthStatusDegraded
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:     status,
		Store:      storeCheck,
		Pipeline:   s.pipe.Health(),
		BatchQueue: writerHealth,
		Providers:  providerHealth,
	})
}
