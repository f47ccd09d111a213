package api

import (
	"time"

	"github.com/homepulse/homepulse/pkg/batch"
	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/pipeline"
	"github.com/homepulse/homepulse/pkg/providers"
)

// AcceptedResponse is returned by POST /events on success.
type AcceptedResponse struct {
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
}

// ErrorResponse is the error body for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string                      `json:"status"`
	Store      HealthCheck                 `json:"store"`
	Pipeline   pipeline.Health             `json:"pipeline"`
	BatchQueue batch.Health                `json:"batch_writer"`
	Providers  map[string]providers.Health `json:"providers"`
}

// HealthCheck is one subsystem's status.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ProviderLatestResponse is returned by GET /providers/:name/latest.
type ProviderLatestResponse struct {
	Provider string         `json:"provider"`
	At       time.Time      `json:"at"`
	Stale    bool           `json:"stale"`
	Fields   map[string]any `json:"fields"`
}

func latestResponse(r models.ProviderReading) ProviderLatestResponse {
	return ProviderLatestResponse{
		Provider: r.Provider,
		At:       r.At,
		Stale:    r.Stale,
		Fields:   r.Fields,
	}
}
