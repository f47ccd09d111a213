package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.StoreConfig{
		URL:          srv.URL,
		Token:        "test-token",
		Org:          "home",
		Bucket:       "events",
		WriteTimeout: config.Duration(2 * time.Second),
		QueryTimeout: config.Duration(2 * time.Second),
	})
}

func TestWritePoints(t *testing.T) {
	point := models.Point{
		Measurement: "home_assistant_events",
		Tags:        map[string]string{"entity_id": "light.kitchen"},
		Fields:      map[string]any{"state": "on"},
		Time:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	t.Run("success", func(t *testing.T) {
		var gotBody, gotAuth, gotQuery string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			gotAuth = r.Header.Get("Authorization")
			gotQuery = r.URL.RawQuery
			w.WriteHeader(http.StatusNoContent)
		})

		require.NoError(t, c.WritePoints(context.Background(), []models.Point{point}))
		assert.Equal(t, "Token test-token", gotAuth)
		assert.Contains(t, gotQuery, "precision=ns")
		assert.Contains(t, gotQuery, "bucket=events")
		assert.Contains(t, gotBody, "entity_id=light.kitchen")
	})

	t.Run("4xx is terminal", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad line", http.StatusBadRequest)
		})
		err := c.WritePoints(context.Background(), []models.Point{point})
		require.Error(t, err)
		assert.False(t, IsRetryable(err))
	})

	t.Run("5xx is retryable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		})
		err := c.WritePoints(context.Background(), []models.Point{point})
		require.Error(t, err)
		assert.True(t, IsRetryable(err))
	})

	t.Run("network error is retryable", func(t *testing.T) {
		c := NewClient(&config.StoreConfig{
			URL: "http://127.0.0.1:1", Token: "t", Org: "o", Bucket: "b",
			WriteTimeout: config.Duration(500 * time.Millisecond),
			QueryTimeout: config.Duration(500 * time.Millisecond),
		})
		err := c.WritePoints(context.Background(), []models.Point{point})
		require.Error(t, err)
		assert.True(t, IsRetryable(err))
	})
}

func TestQuery(t *testing.T) {
	csvBody := strings.Join([]string{
		"#datatype,string,long,dateTime:RFC3339,double,string,string",
		"#group,false,false,false,false,true,true",
		"#default,_result,,,,,",
		",result,table,_time,_value,entity_id,domain",
		",_result,0,2025-01-02T03:00:00Z,245,light.kitchen,light",
		",_result,0,2025-01-02T04:00:00Z,12,sensor.power,sensor",
		"",
	}, "\r\n")

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/query", r.URL.Path)
		w.Header().Set("Content-Type", "application/csv")
		_, _ = w.Write([]byte(csvBody))
	})

	records, err := c.Query(context.Background(), `from(bucket:"events")`)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "245", records[0].Value())
	assert.Equal(t, "light.kitchen", records[0].Tag("entity_id"))
	assert.Equal(t, "sensor", records[1].Tag("domain"))
}

func TestDelete(t *testing.T) {
	var gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/delete", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stop := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Delete(context.Background(), start, stop, `_measurement="home_assistant_events_daily"`))
	assert.Contains(t, gotBody, "2024-01-01T00:00:00Z")
	assert.Contains(t, gotBody, "home_assistant_events_daily")
}

func TestPing(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		assert.NoError(t, c.Ping(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		c := NewClient(&config.StoreConfig{
			URL: "http://127.0.0.1:1", Token: "t", Org: "o", Bucket: "b",
			WriteTimeout: config.Duration(time.Second),
			QueryTimeout: config.Duration(time.Second),
		})
		assert.Error(t, c.Ping(context.Background()))
	})
}
