package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a homepulse.yaml into a temp dir and returns the dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
	return dir
}

const minimalConfig = `
hub:
  url: ws://hub.local:8123/api/websocket
  token: test-token
store:
  url: http://influx.local:8086
  token: store-token
  org: home
  bucket: events
`

func TestInitialize(t *testing.T) {
	t.Run("minimal config gets defaults merged", func(t *testing.T) {
		dir := writeConfig(t, minimalConfig)

		cfg, err := Initialize(context.Background(), dir)
		require.NoError(t, err)

		// Explicit values survive.
		assert.Equal(t, "ws://hub.local:8123/api/websocket", cfg.Hub.URL)
		assert.Equal(t, "events", cfg.Store.Bucket)

		// Defaults fill the rest.
		assert.Equal(t, 10000, cfg.Ingest.QueueCapacity)
		assert.Equal(t, 4, cfg.Ingest.DispatchWorkers)
		assert.Equal(t, 100, cfg.Enrich.BatchSize)
		assert.Equal(t, 5*time.Second, cfg.Enrich.BatchTimeout.Std())
		assert.Equal(t, 60*time.Second, cfg.Hub.ReconnectToPrimaryInterval.Std())
		assert.Equal(t, 10*time.Minute, cfg.Providers.Weather.RefreshEvery.Std())
		assert.Equal(t, "home_assistant_events", cfg.Retention.Hot.MeasurementName)
	})

	t.Run("durations accept seconds and duration strings", func(t *testing.T) {
		dir := writeConfig(t, minimalConfig+`
ingest:
  event_silence_threshold: 90
enrich:
  batch_timeout: 2s
`)
		cfg, err := Initialize(context.Background(), dir)
		require.NoError(t, err)

		assert.Equal(t, 90*time.Second, cfg.Ingest.EventSilenceThreshold.Std())
		assert.Equal(t, 2*time.Second, cfg.Enrich.BatchTimeout.Std())
	})

	t.Run("env expansion", func(t *testing.T) {
		t.Setenv("TEST_HUB_TOKEN", "expanded-secret")
		dir := writeConfig(t, `
hub:
  url: ws://hub.local:8123/api/websocket
  token: "{{.TEST_HUB_TOKEN}}"
store:
  url: http://influx.local:8086
  token: store-token
  org: home
  bucket: events
`)
		cfg, err := Initialize(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, "expanded-secret", cfg.Hub.Token)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Initialize(context.Background(), t.TempDir())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("invalid YAML", func(t *testing.T) {
		dir := writeConfig(t, "hub:\n  url: [unclosed")
		_, err := Initialize(context.Background(), dir)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidYAML)
	})

	t.Run("validation failure surfaces", func(t *testing.T) {
		dir := writeConfig(t, `
hub:
  url: http://not-a-websocket
  token: t
store:
  url: http://influx.local:8086
  token: store-token
  org: home
  bucket: events
`)
		_, err := Initialize(context.Background(), dir)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestStats(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0, cfg.Stats().EnabledProviders)

	cfg.Providers.Weather.Enabled = true
	cfg.Providers.SmartMeter.Enabled = true
	cfg.Retention.Views = []ViewConfig{{Name: "daily-energy"}}

	s := cfg.Stats()
	assert.Equal(t, 2, s.EnabledProviders)
	assert.Equal(t, 1, s.Views)
}
