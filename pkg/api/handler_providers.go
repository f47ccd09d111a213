package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// providerHealthHandler handles GET /providers/:name/health.
func (s *Server) providerHealthHandler(c *echo.Context) error {
	p, ok := s.registry.Get(c.Param("name"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown_provider"})
	}
	return c.JSON(http.StatusOK, p.Health())
}

// providerLatestHandler handles GET /providers/:name/latest, for manual
// inspection of the cached reading.
func (s *Server) providerLatestHandler(c *echo.Context) error {
	p, ok := s.registry.Get(c.Param("name"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown_provider"})
	}
	reading, ok := p.Latest()
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no_reading"})
	}
	return c.JSON(http.StatusOK, latestResponse(reading))
}
