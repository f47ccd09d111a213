package config

import "time"

// Endpoint is one hub connection target. Lower priority connects first.
type Endpoint struct {
	URL      string `yaml:"url"`
	Token    string `yaml:"token"`
	Priority int    `yaml:"priority"`
}

// HubConfig describes the home-automation hub the ingestion client
// subscribes to, plus failover behavior.
type HubConfig struct {
	// URL is the primary hub WebSocket endpoint (hub_url).
	URL string `yaml:"url"`

	// Token is the long-lived access token for the primary endpoint.
	Token string `yaml:"token"`

	// FallbackURL/FallbackToken describe an optional secondary hub used
	// when the primary fails hard (auth_invalid, repeated connect errors).
	FallbackURL   string `yaml:"fallback_url"`
	FallbackToken string `yaml:"fallback_token"`

	// ReconnectToPrimaryInterval is how often to retry the primary
	// endpoint while running on a lower-priority fallback.
	ReconnectToPrimaryInterval Duration `yaml:"reconnect_to_primary_interval"`
}

// DefaultHubConfig returns the built-in hub defaults. URL and Token have
// no defaults; startup fails without them.
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		ReconnectToPrimaryInterval: Duration(60 * time.Second),
	}
}

// Endpoints returns the configured endpoints in priority order.
func (c *HubConfig) Endpoints() []Endpoint {
	eps := []Endpoint{{URL: c.URL, Token: c.Token, Priority: 0}}
	if c.FallbackURL != "" {
		eps = append(eps, Endpoint{URL: c.FallbackURL, Token: c.FallbackToken, Priority: 1})
	}
	return eps
}
