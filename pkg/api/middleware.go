package api

import (
	"log/slog"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/homepulse/homepulse/pkg/correlation"
)

// securityHeaders returns middleware that sets security response
// headers. The API is machine-to-machine; no-store keeps health and
// provider snapshots out of intermediary caches.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}

// correlationID returns middleware that propagates the inbound
// correlation id (or mints one) into the request context and echoes it
// on the response, so every log line and the caller agree on the id.
func correlationID(header string) echo.MiddlewareFunc {
	if header == "" {
		header = correlation.DefaultHeader
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := c.Request().Header.Get(header)
			if id == "" {
				id = correlation.New()
			}
			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(header, id)
			return next(c)
		}
	}
}

// requestLogger returns middleware that logs one line per request with
// its correlation id.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()
			err := next(c)

			status := 0
			if resp, respErr := echo.UnwrapResponse(c.Response()); respErr == nil {
				status = resp.Status
			}
			logger.Debug("Request handled",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				correlation.Attr(correlation.FromContext(c.Request().Context())))
			return err
		}
	}
}
