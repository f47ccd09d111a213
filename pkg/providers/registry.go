package providers

import (
	"context"
	"log/slog"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

// Registry holds the enabled providers. The enricher reads snapshots
// from it; the health surface reads per-provider status.
type Registry struct {
	providers map[string]Provider
	order     []string
	logger    *slog.Logger
}

// NewRegistry builds the enabled providers from configuration.
// Disabled providers are not constructed at all; the enricher skips
// them silently.
func NewRegistry(cfg *config.ProvidersConfig, logger *slog.Logger) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		logger:    logger,
	}

	add := func(name string, pc *config.ProviderConfig, build func() Provider) {
		if pc == nil || !pc.Enabled {
			return
		}
		r.providers[name] = build()
		r.order = append(r.order, name)
	}

	add(config.ProviderWeather, cfg.Weather, func() Provider { return NewWeather(cfg.Weather, logger) })
	add(config.ProviderCarbon, cfg.Carbon, func() Provider { return NewCarbon(cfg.Carbon, logger) })
	add(config.ProviderPricing, cfg.Pricing, func() Provider { return NewPricing(cfg.Pricing, logger) })
	add(config.ProviderAirQuality, cfg.AirQuality, func() Provider { return NewAirQuality(cfg.AirQuality, logger) })
	add(config.ProviderCalendar, cfg.Calendar, func() Provider { return NewCalendar(cfg.Calendar, logger) })
	add(config.ProviderSmartMeter, cfg.SmartMeter, func() Provider { return NewSmartMeter(cfg.SmartMeter, logger) })

	return r
}

// Register adds a provider directly. Used by tests and for wiring
// custom providers.
func (r *Registry) Register(p Provider) {
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Start starts every provider.
func (r *Registry) Start(ctx context.Context) {
	for _, name := range r.order {
		r.providers[name].Start(ctx)
	}
	r.logger.Info("Providers started", "count", len(r.order))
}

// Stop stops every provider.
func (r *Registry) Stop() {
	for _, name := range r.order {
		r.providers[name].Stop()
	}
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the enabled provider names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Readings snapshots every provider's latest reading. Providers with
// no reading yet are omitted. Never blocks on network I/O.
func (r *Registry) Readings() map[string]models.ProviderReading {
	out := make(map[string]models.ProviderReading, len(r.order))
	for _, name := range r.order {
		if reading, ok := r.providers[name].Latest(); ok {
			out[name] = reading
		}
	}
	return out
}

// Health reports every provider's status keyed by name.
func (r *Registry) Health() map[string]Health {
	out := make(map[string]Health, len(r.order))
	for _, name := range r.order {
		out[name] = r.providers[name].Health()
	}
	return out
}
