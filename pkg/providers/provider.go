// Package providers implements the enrichment providers: polling
// workers that each own a single-slot TTL cache of an external signal
// (weather, carbon intensity, electricity pricing, air quality,
// calendar occupancy, smart-meter power) and serve it to the
// enrichment pipeline without blocking.
package providers

import (
	"context"
	"time"

	"github.com/homepulse/homepulse/pkg/models"
)

// Provider is the narrow contract every enrichment provider satisfies.
// Latest never blocks on network I/O; it only reads the cached
// snapshot.
type Provider interface {
	Name() string

	// Start begins the periodic refresh loop. It returns after the
	// first poll attempt so callers can inspect initial health.
	Start(ctx context.Context)

	// Stop terminates the refresh loop and waits for it to exit.
	Stop()

	// Latest returns the cached reading and whether one exists. The
	// reading's Stale flag is true when the last successful poll is
	// older than the TTL.
	Latest() (models.ProviderReading, bool)

	Health() Health
}

// Health is a provider's self-reported status.
type Health struct {
	Name                string    `json:"name"`
	Healthy             bool      `json:"healthy"`
	Stale               bool      `json:"stale"`
	LastSuccessAt       time.Time `json:"last_success_at,omitzero"`
	LastError           string    `json:"last_error,omitempty"`
	PollCount           int64     `json:"poll_count"`
	FailureCount        int64     `json:"failure_count"`
	ConsecutiveFailures int64     `json:"consecutive_failures"`
	CacheHitRate        float64   `json:"cache_hit_rate"`
	TTLSeconds          float64   `json:"ttl_seconds"`
}
