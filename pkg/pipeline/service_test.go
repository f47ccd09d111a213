package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

type captureSink struct {
	mu     sync.Mutex
	points []models.Point
}

func (c *captureSink) Enqueue(p models.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = append(c.points, p)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.points)
}

type staticReadings map[string]models.ProviderReading

func (r staticReadings) Readings() map[string]models.ProviderReading {
	return map[string]models.ProviderReading(r)
}

func newTestService(sink PointSink, readings ReadingsSource, queueSize int) *Service {
	cfg := config.DefaultEnrichConfig()
	cfg.IntakeQueue = queueSize
	cfg.Workers = 2
	return NewService(cfg, sink, readings, testLogger())
}

func TestServiceProcessesEvent(t *testing.T) {
	sink := &captureSink{}
	readings := staticReadings{
		config.ProviderWeather: {
			Provider: config.ProviderWeather,
			Fields:   map[string]any{"temperature_c": 14.2, "condition": "Clear"},
		},
	}

	svc := newTestService(sink, readings, 100)
	svc.Start()

	require.NoError(t, svc.Submit(validEvent(), "corr-1"))

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	svc.Stop()

	require.Equal(t, 1, sink.count())
	p := sink.points[0]
	assert.Equal(t, "light.kitchen", p.Tags["entity_id"])
	assert.Equal(t, "Clear", p.Tags["weather_condition"])
	assert.Equal(t, 14.2, p.Fields["weather_temp"])

	h := svc.Health()
	assert.Equal(t, int64(1), h.EventsReceived)
	assert.Equal(t, int64(1), h.EventsProcessed)
}

func TestServiceRejectsInvalidEvent(t *testing.T) {
	sink := &captureSink{}
	svc := newTestService(sink, staticReadings{}, 100)

	bad := validEvent()
	bad.TimeFired = "not-a-date"
	err := svc.Submit(bad, "corr-1")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeMalformedTimestamp, ve.Code)
	assert.Equal(t, int64(1), svc.Health().ValidationErrors)
	assert.Equal(t, 0, sink.count())
}

func TestServiceSaturation(t *testing.T) {
	sink := &captureSink{}
	// Workers not started, so the queue only fills. High water for a
	// 10-slot queue is 9.
	svc := newTestService(sink, staticReadings{}, 10)

	for range 9 {
		require.NoError(t, svc.Submit(validEvent(), "corr-1"))
	}
	err := svc.Submit(validEvent(), "corr-1")
	assert.ErrorIs(t, err, ErrSaturated)
	assert.Equal(t, int64(1), svc.Health().SaturationRejects)
}

func TestServiceDrainsOnStop(t *testing.T) {
	sink := &captureSink{}
	svc := newTestService(sink, staticReadings{}, 100)

	for range 5 {
		require.NoError(t, svc.Submit(validEvent(), "corr-1"))
	}
	svc.Start()
	svc.Stop()

	assert.Equal(t, 5, sink.count())
	assert.ErrorIs(t, svc.Submit(validEvent(), "corr-1"), ErrSaturated)
}
