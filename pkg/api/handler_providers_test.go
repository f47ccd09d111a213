package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/providers"
)

func getProviderRoute(t *testing.T, s *Server, handler echo.HandlerFunc, name string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/providers/:name", handler)

	req := httptest.NewRequest(http.MethodGet, "/providers/"+name, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProviderHealthHandler(t *testing.T) {
	p := &fakeProvider{
		name:   "weather",
		health: providers.Health{Name: "weather", Healthy: true, PollCount: 12},
	}
	s := testServer(&fakePipeline{}, &fakeWriter{}, fakeRegistry{"weather": p}, &fakeStore{})

	t.Run("known provider", func(t *testing.T) {
		rec := getProviderRoute(t, s, s.providerHealthHandler, "weather")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp providers.Health
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "weather", resp.Name)
		assert.Equal(t, int64(12), resp.PollCount)
	})

	t.Run("unknown provider", func(t *testing.T) {
		rec := getProviderRoute(t, s, s.providerHealthHandler, "nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProviderLatestHandler(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withReading := &fakeProvider{
		name:    "weather",
		hasRead: true,
		reading: models.ProviderReading{
			Provider: "weather",
			At:       at,
			Fields:   map[string]any{"temperature_c": 14.2},
		},
	}
	empty := &fakeProvider{name: "carbon"}
	s := testServer(&fakePipeline{}, &fakeWriter{},
		fakeRegistry{"weather": withReading, "carbon": empty}, &fakeStore{})

	t.Run("returns cached reading", func(t *testing.T) {
		rec := getProviderRoute(t, s, s.providerLatestHandler, "weather")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ProviderLatestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "weather", resp.Provider)
		assert.Equal(t, at, resp.At)
		assert.Equal(t, 14.2, resp.Fields["temperature_c"])
	})

	t.Run("no reading yet", func(t *testing.T) {
		rec := getProviderRoute(t, s, s.providerLatestHandler, "carbon")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown provider", func(t *testing.T) {
		rec := getProviderRoute(t, s, s.providerLatestHandler, "nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
