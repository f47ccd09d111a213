package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepulse/homepulse/pkg/models"
)

func TestEncodePoints(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("tags sorted, fields typed, ns timestamp", func(t *testing.T) {
		points := []models.Point{{
			Measurement: "home_assistant_events",
			Tags: map[string]string{
				"entity_id": "light.kitchen",
				"domain":    "light",
			},
			Fields: map[string]any{
				"state":                     "on",
				"duration_in_state_seconds": 245.0,
				"attr_brightness":           int64(128),
				"attr_is_on":                true,
			},
			Time: ts,
		}}

		out, err := EncodePoints(points)
		require.NoError(t, err)

		line := string(out)
		assert.Equal(t,
			"home_assistant_events,domain=light,entity_id=light.kitchen "+
				"attr_brightness=128i,attr_is_on=true,duration_in_state_seconds=245,state=\"on\" "+
				"1735787045000000000\n",
			line)
	})

	t.Run("empty tag values skipped", func(t *testing.T) {
		out, err := EncodePoints([]models.Point{{
			Measurement: "m",
			Tags:        map[string]string{"device_id": "", "domain": "sensor"},
			Fields:      map[string]any{"state": "1"},
			Time:        ts,
		}})
		require.NoError(t, err)
		assert.NotContains(t, string(out), "device_id")
		assert.Contains(t, string(out), "domain=sensor")
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		p := models.Point{
			Measurement: "m",
			Tags:        map[string]string{"a": "1", "b": "2", "c": "3"},
			Fields:      map[string]any{"x": 1.5, "y": "v", "z": int64(9)},
			Time:        ts,
		}
		first, err := EncodePoints([]models.Point{p})
		require.NoError(t, err)
		for range 10 {
			again, err := EncodePoints([]models.Point{p})
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("unsupported field type", func(t *testing.T) {
		_, err := EncodePoints([]models.Point{{
			Measurement: "m",
			Fields:      map[string]any{"bad": []string{"x"}},
			Time:        ts,
		}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported field type")
	})
}
