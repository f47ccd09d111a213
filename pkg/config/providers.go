package config

import "time"

// Provider names, used as registry keys, health route segments, and the
// prefix of non-weather enrichment fields.
const (
	ProviderWeather    = "weather"
	ProviderCarbon     = "carbon"
	ProviderPricing    = "pricing"
	ProviderAirQuality = "airquality"
	ProviderCalendar   = "calendar"
	ProviderSmartMeter = "smartmeter"
)

// ProviderConfig configures one enrichment provider's poll loop and
// upstream. Not every key applies to every provider (Location is for
// weather/air quality, Region for carbon, CalendarID for calendar).
type ProviderConfig struct {
	Enabled bool `yaml:"enabled"`

	// RefreshEvery is the poll interval.
	RefreshEvery Duration `yaml:"refresh_every"`

	// TTL is how long a reading is served as fresh. Past the TTL the
	// reading is still served, flagged stale.
	TTL Duration `yaml:"ttl"`

	// RateLimitPerMinute caps upstream requests (token bucket).
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// PollTimeout bounds one upstream fetch.
	PollTimeout Duration `yaml:"poll_timeout"`

	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Location   string `yaml:"location"`
	Region     string `yaml:"region"`
	CalendarID string `yaml:"calendar_id"`
}

// ProvidersConfig holds the per-provider configuration blocks.
type ProvidersConfig struct {
	Weather    *ProviderConfig `yaml:"weather"`
	Carbon     *ProviderConfig `yaml:"carbon"`
	Pricing    *ProviderConfig `yaml:"pricing"`
	AirQuality *ProviderConfig `yaml:"airquality"`
	Calendar   *ProviderConfig `yaml:"calendar"`
	SmartMeter *ProviderConfig `yaml:"smartmeter"`
}

// DefaultProvidersConfig returns per-provider defaults. Refresh cadences
// follow each upstream's update rate; TTL defaults to twice the refresh
// interval. All providers start disabled until given an upstream URL.
func DefaultProvidersConfig() *ProvidersConfig {
	mk := func(refresh time.Duration) *ProviderConfig {
		return &ProviderConfig{
			RefreshEvery:       Duration(refresh),
			TTL:                Duration(2 * refresh),
			RateLimitPerMinute: 10,
			PollTimeout:        Duration(30 * time.Second),
		}
	}
	return &ProvidersConfig{
		Weather:    mk(10 * time.Minute),
		Carbon:     mk(15 * time.Minute),
		Pricing:    mk(60 * time.Minute),
		AirQuality: mk(60 * time.Minute),
		Calendar:   mk(15 * time.Minute),
		SmartMeter: mk(5 * time.Minute),
	}
}

// ByName returns the provider blocks keyed by provider name. Nil blocks
// are omitted.
func (c *ProvidersConfig) ByName() map[string]*ProviderConfig {
	all := map[string]*ProviderConfig{
		ProviderWeather:    c.Weather,
		ProviderCarbon:     c.Carbon,
		ProviderPricing:    c.Pricing,
		ProviderAirQuality: c.AirQuality,
		ProviderCalendar:   c.Calendar,
		ProviderSmartMeter: c.SmartMeter,
	}
	out := make(map[string]*ProviderConfig, len(all))
	for name, pc := range all {
		if pc != nil {
			out[name] = pc
		}
	}
	return out
}
