package api

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/homepulse/homepulse/pkg/correlation"
	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/pipeline"
)

// eventsHandler handles POST /events. A 202 means the event is safely
// enqueued for write, not that it has been flushed.
func (s *Server) eventsHandler(c *echo.Context) error {
	var raw models.RawEvent
	if err := c.Bind(&raw); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed_body"})
	}

	corrID := correlation.FromContext(c.Request().Context())

	if err := s.pipe.Submit(raw, corrID); err != nil {
		var ve *pipeline.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Code, Field: ve.Field})
		}
		if errors.Is(err, pipeline.ErrSaturated) {
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "saturated"})
		}
		s.logger.Error("Event submit failed",
			"error", err,
			correlation.Attr(corrID))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal"})
	}

	return c.JSON(http.StatusAccepted, AcceptedResponse{
		Status:        "accepted",
		CorrelationID: corrID,
	})
}
