package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validTestConfig returns defaults plus the required fields that have no
// built-in values.
func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Hub.URL = "wss://hub.local:8123/api/websocket"
	cfg.Hub.Token = "token"
	cfg.Store.URL = "http://influx.local:8086"
	cfg.Store.Token = "token"
	cfg.Store.Org = "home"
	cfg.Store.Bucket = "events"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing hub url",
			mutate:  func(c *Config) { c.Hub.URL = "" },
			wantErr: "url",
		},
		{
			name:    "non-websocket hub url",
			mutate:  func(c *Config) { c.Hub.URL = "http://hub.local" },
			wantErr: "must be ws:// or wss://",
		},
		{
			name:    "missing hub token",
			mutate:  func(c *Config) { c.Hub.Token = "" },
			wantErr: "token",
		},
		{
			name: "fallback url without token",
			mutate: func(c *Config) {
				c.Hub.FallbackURL = "wss://backup.local/api/websocket"
			},
			wantErr: "fallback_token",
		},
		{
			name:    "dispatch workers out of range",
			mutate:  func(c *Config) { c.Ingest.DispatchWorkers = 65 },
			wantErr: "must be between 1 and 64",
		},
		{
			name:    "zero queue capacity",
			mutate:  func(c *Config) { c.Ingest.QueueCapacity = 0 },
			wantErr: "queue_capacity",
		},
		{
			name:    "batch size out of range",
			mutate:  func(c *Config) { c.Enrich.BatchSize = 0 },
			wantErr: "batch_size",
		},
		{
			name:    "missing dead letter path",
			mutate:  func(c *Config) { c.Enrich.DeadLetterPath = "" },
			wantErr: "dead_letter_path",
		},
		{
			name: "enabled provider without url",
			mutate: func(c *Config) {
				c.Providers.Weather.Enabled = true
			},
			wantErr: "provider 'weather'",
		},
		{
			name:    "missing store bucket",
			mutate:  func(c *Config) { c.Store.Bucket = "" },
			wantErr: "bucket",
		},
		{
			name:    "warm tier without downsample window",
			mutate:  func(c *Config) { c.Retention.Warm.DownsampleWindow = 0 },
			wantErr: "downsample_window",
		},
		{
			name: "view with unknown aggregate",
			mutate: func(c *Config) {
				c.Retention.Views = []ViewConfig{{
					Name: "bad", Source: "a", Destination: "b",
					Window: Duration(1), Aggregate: "median",
				}}
			},
			wantErr: "aggregate",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHubEndpoints(t *testing.T) {
	hub := &HubConfig{URL: "wss://a", Token: "ta"}
	eps := hub.Endpoints()
	require.Len(t, eps, 1)
	assert.Equal(t, 0, eps[0].Priority)

	hub.FallbackURL = "wss://b"
	hub.FallbackToken = "tb"
	eps = hub.Endpoints()
	require.Len(t, eps, 2)
	assert.Equal(t, "wss://b", eps[1].URL)
	assert.Equal(t, 1, eps[1].Priority)
}

func TestHighWaterMark(t *testing.T) {
	en := DefaultEnrichConfig()
	assert.Equal(t, 9000, en.HighWaterMark())
}
