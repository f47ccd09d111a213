package pipeline

import (
	"log/slog"

	"github.com/homepulse/homepulse/pkg/models"
)

// Enrich attaches the current provider snapshots to a normalized
// event. Readings arrive as copies from the registry, so enrichment is
// a pure in-memory step: no locks held, no network touched. Providers
// with no reading yet are simply absent.
func Enrich(ev models.NormalizedEvent, readings map[string]models.ProviderReading, logger *slog.Logger) models.EnrichedEvent {
	enriched := models.EnrichedEvent{
		NormalizedEvent: ev,
		Readings:        make(map[string]models.ProviderReading, len(readings)),
	}
	for name, r := range readings {
		if r.Stale {
			logger.Debug("Enriching with stale reading",
				"provider", name,
				"reading_at", r.At,
				"correlation_id", ev.CorrelationID)
		}
		enriched.Readings[name] = r
	}
	return enriched
}
