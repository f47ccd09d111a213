package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

func TestShape(t *testing.T) {
	t.Run("kitchen light state change", func(t *testing.T) {
		raw := validEvent()
		ev, err := Normalize(&raw, "corr-1", testLogger())
		require.NoError(t, err)

		p := Shape(models.EnrichedEvent{NormalizedEvent: ev})

		assert.Equal(t, "home_assistant_events", p.Measurement)
		assert.Equal(t, "light.kitchen", p.Tags["entity_id"])
		assert.Equal(t, "light", p.Tags["domain"])
		assert.Equal(t, "light", p.Tags["device_class"])
		assert.Equal(t, "state_changed", p.Tags["event_type"])
		assert.Equal(t, "night", p.Tags["time_of_day"])
		assert.Equal(t, "regular", p.Tags["entity_category"])

		assert.Equal(t, "on", p.Fields["state"])
		assert.Equal(t, "off", p.Fields["old_state"])
		assert.Equal(t, 245.0, p.Fields["duration_in_state_seconds"])
		assert.Equal(t, "ctx-1", p.Fields["context_id"])
		assert.Equal(t, "Kitchen", p.Fields["friendly_name"])
		assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), p.Time)
	})

	t.Run("unbounded strings never become tags", func(t *testing.T) {
		raw := validEvent()
		ev, err := Normalize(&raw, "corr-1", testLogger())
		require.NoError(t, err)

		p := Shape(models.EnrichedEvent{NormalizedEvent: ev})
		assert.NotContains(t, p.Tags, "friendly_name")
		assert.NotContains(t, p.Tags, "context_id")
	})

	t.Run("attributes flattened preserving type", func(t *testing.T) {
		raw := validEvent()
		raw.Data.NewState.Attributes["brightness"] = 128.0
		raw.Data.NewState.Attributes["is_dimmable"] = true
		raw.Data.NewState.Attributes["color_mode"] = "brightness"
		raw.Data.NewState.Attributes["rgb_color"] = []any{255.0, 200.0, 100.0}
		ev, err := Normalize(&raw, "corr-1", testLogger())
		require.NoError(t, err)

		p := Shape(models.EnrichedEvent{NormalizedEvent: ev})

		assert.Equal(t, 128.0, p.Fields["attr_brightness"])
		assert.Equal(t, true, p.Fields["attr_is_dimmable"])
		assert.Equal(t, "brightness", p.Fields["attr_color_mode"])
		// Nested values have no field representation.
		assert.NotContains(t, p.Fields, "attr_rgb_color")
		// Promoted attributes are not duplicated.
		assert.NotContains(t, p.Fields, "attr_device_class")
		assert.NotContains(t, p.Fields, "attr_friendly_name")
	})

	t.Run("weather reading mapped to canonical fields", func(t *testing.T) {
		raw := validEvent()
		ev, err := Normalize(&raw, "corr-1", testLogger())
		require.NoError(t, err)

		enriched := models.EnrichedEvent{
			NormalizedEvent: ev,
			Readings: map[string]models.ProviderReading{
				config.ProviderWeather: {
					Provider: config.ProviderWeather,
					At:       time.Now().UTC(),
					Fields: map[string]any{
						"temperature_c": 14.2,
						"humidity_pct":  81.0,
						"pressure_hpa":  1016.0,
						"wind_speed_ms": 5.7,
						"condition":     "Clouds",
						"description":   "broken clouds",
					},
				},
			},
		}

		p := Shape(enriched)
		assert.Equal(t, "Clouds", p.Tags["weather_condition"])
		assert.Equal(t, 14.2, p.Fields["weather_temp"])
		assert.Equal(t, 81.0, p.Fields["weather_humidity"])
		assert.Equal(t, 1016.0, p.Fields["weather_pressure"])
		assert.Equal(t, 5.7, p.Fields["wind_speed"])
		assert.Equal(t, "broken clouds", p.Fields["weather_description"])
		assert.NotContains(t, p.Fields, "condition")
	})

	t.Run("other providers flattened under their name", func(t *testing.T) {
		raw := validEvent()
		ev, err := Normalize(&raw, "corr-1", testLogger())
		require.NoError(t, err)

		enriched := models.EnrichedEvent{
			NormalizedEvent: ev,
			Readings: map[string]models.ProviderReading{
				config.ProviderCarbon: {
					Provider: config.ProviderCarbon,
					Fields:   map[string]any{"intensity_gco2_kwh": 187.5},
				},
				config.ProviderSmartMeter: {
					Provider: config.ProviderSmartMeter,
					Fields:   map[string]any{"power_w": 842.5},
				},
			},
		}

		p := Shape(enriched)
		assert.Equal(t, 187.5, p.Fields["carbon_intensity_gco2_kwh"])
		assert.Equal(t, 842.5, p.Fields["smartmeter_power_w"])
	})
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "night"},
		{4, "night"},
		{5, "morning"},
		{11, "morning"},
		{12, "afternoon"},
		{16, "afternoon"},
		{17, "evening"},
		{20, "evening"},
		{21, "night"},
		{23, "night"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, timeOfDay(tt.hour), "hour %d", tt.hour)
	}
}
