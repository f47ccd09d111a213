package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/store"
)

type deleteCall struct {
	start, stop time.Time
	predicate   string
}

// fakeStore answers queries from a canned function and records writes
// and deletes.
type fakeStore struct {
	mu      sync.Mutex
	queryFn func(flux string) ([]store.Record, error)
	written [][]models.Point
	deletes []deleteCall

	writeErr error
}

func (f *fakeStore) Bucket() string { return "events" }

func (f *fakeStore) Query(_ context.Context, flux string) ([]store.Record, error) {
	if f.queryFn == nil {
		return nil, nil
	}
	return f.queryFn(flux)
}

func (f *fakeStore) WritePoints(_ context.Context, points []models.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, points)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, start, stop time.Time, predicate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, deleteCall{start: start, stop: stop, predicate: predicate})
	return nil
}

func (f *fakeStore) writes() [][]models.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

func (f *fakeStore) deleted() []deleteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

func rec(at time.Time, value, entityID, domain, field string) store.Record {
	return store.Record{
		"_time":     at.UTC().Format(time.RFC3339Nano),
		"_value":    value,
		"_field":    field,
		"entity_id": entityID,
		"domain":    domain,
	}
}

func newTestEngine(t *testing.T, st *fakeStore, objects ObjectStore, now time.Time) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	e := NewEngine(config.DefaultRetentionConfig(), st, objects, logger)
	e.now = func() time.Time { return now }
	return e
}

// hourData serves the previous full hour: three kitchen light events
// with no numeric state, three temperature readings.
func hourData(windowStart time.Time) func(string) ([]store.Record, error) {
	return func(flux string) ([]store.Record, error) {
		switch {
		case strings.Contains(flux, `"state"`):
			return []store.Record{
				rec(windowStart.Add(5*time.Minute), "on", "light.kitchen", "light", "state"),
				rec(windowStart.Add(15*time.Minute), "off", "light.kitchen", "light", "state"),
				rec(windowStart.Add(25*time.Minute), "on", "light.kitchen", "light", "state"),
				rec(windowStart.Add(10*time.Minute), "20", "sensor.temp", "sensor", "state"),
				rec(windowStart.Add(20*time.Minute), "22", "sensor.temp", "sensor", "state"),
				rec(windowStart.Add(50*time.Minute), "21", "sensor.temp", "sensor", "state"),
			}, nil
		case strings.Contains(flux, `"state_numeric"`):
			return []store.Record{
				rec(windowStart.Add(10*time.Minute), "20", "sensor.temp", "sensor", "state_numeric"),
				rec(windowStart.Add(20*time.Minute), "22", "sensor.temp", "sensor", "state_numeric"),
				rec(windowStart.Add(50*time.Minute), "21", "sensor.temp", "sensor", "state_numeric"),
			}, nil
		default:
			return nil, nil
		}
	}
}

func TestDownsampleAggregates(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)
	windowStart := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	st := &fakeStore{queryFn: hourData(windowStart)}
	e := newTestEngine(t, st, nil, now)

	require.NoError(t, e.runDownsample(context.Background()))

	writes := st.writes()
	require.Len(t, writes, 1)
	points := writes[0]
	require.Len(t, points, 2)

	light := points[0]
	assert.Equal(t, "home_assistant_events_hourly", light.Measurement)
	assert.Equal(t, "light.kitchen", light.Tags["entity_id"])
	assert.Equal(t, windowStart, light.Time)
	assert.Equal(t, map[string]any{"count": int64(3)}, light.Fields)

	temp := points[1]
	assert.Equal(t, "sensor.temp", temp.Tags["entity_id"])
	assert.Equal(t, windowStart, temp.Time)
	assert.Equal(t, int64(3), temp.Fields["count"])
	assert.InDelta(t, 21.0, temp.Fields["mean"], 1e-9)
	assert.Equal(t, 20.0, temp.Fields["min"])
	assert.Equal(t, 22.0, temp.Fields["max"])
	assert.Equal(t, 21.0, temp.Fields["last"])
}

func TestDownsampleIdempotence(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)
	windowStart := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	st := &fakeStore{queryFn: hourData(windowStart)}
	e := newTestEngine(t, st, nil, now)

	require.NoError(t, e.runDownsample(context.Background()))
	require.NoError(t, e.runDownsample(context.Background()))

	writes := st.writes()
	require.Len(t, writes, 2)
	first, err := store.EncodePoints(writes[0])
	require.NoError(t, err)
	second, err := store.EncodePoints(writes[1])
	require.NoError(t, err)
	assert.Equal(t, first, second, "replaying a window must produce identical rows")
}

func TestTierMoveExpiresHotAndWarm(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 30, 0, 0, time.UTC)
	windowStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	st := &fakeStore{queryFn: hourData(windowStart)}
	e := newTestEngine(t, st, nil, now)

	require.NoError(t, e.runTierMove(context.Background()))

	writes := st.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "home_assistant_events_daily", writes[0][0].Measurement)
	assert.Equal(t, windowStart, writes[0][0].Time)

	deletes := st.deleted()
	require.Len(t, deletes, 2)
	assert.Contains(t, deletes[0].predicate, "home_assistant_events")
	assert.Equal(t, now.Add(-7*24*time.Hour), deletes[0].stop)
	assert.Contains(t, deletes[1].predicate, "home_assistant_events_hourly")
	assert.Equal(t, now.Add(-90*24*time.Hour), deletes[1].stop)
}

func TestTierMoveSkipsExpiryOnWriteFailure(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 30, 0, 0, time.UTC)
	windowStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	st := &fakeStore{
		queryFn:  hourData(windowStart),
		writeErr: errors.New("store down"),
	}
	e := newTestEngine(t, st, nil, now)

	require.Error(t, e.runTierMove(context.Background()))
	assert.Empty(t, st.deleted())
}

func TestRunJobRetriesUntilSuccess(t *testing.T) {
	st := &fakeStore{}
	e := newTestEngine(t, st, nil, time.Now())

	attempts := 0
	e.runJob(context.Background(), jobDownsample, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("attempt %d failed", attempts)
		}
		return nil
	})

	assert.Equal(t, 3, attempts)
	status := e.Health()[jobDownsample]
	assert.Equal(t, int64(1), status.Runs)
	assert.Equal(t, int64(0), status.Failures)
	assert.Empty(t, status.LastError)
}

func TestRunJobRecordsFailure(t *testing.T) {
	st := &fakeStore{}
	e := newTestEngine(t, st, nil, time.Now())
	e.cfg.JobRetries = 1

	e.runJob(context.Background(), jobArchive, func(context.Context) error {
		return errors.New("bucket unreachable")
	})

	status := e.Health()[jobArchive]
	assert.Equal(t, int64(1), status.Runs)
	assert.Equal(t, int64(1), status.Failures)
	assert.Equal(t, "bucket unreachable", status.LastError)
}

func TestRunJobSkipsWhenAlreadyRunning(t *testing.T) {
	st := &fakeStore{}
	e := newTestEngine(t, st, nil, time.Now())

	e.jobs[jobViews].running.Store(true)
	ran := false
	e.runJob(context.Background(), jobViews, func(context.Context) error {
		ran = true
		return nil
	})

	assert.False(t, ran)
	assert.Equal(t, int64(0), e.Health()[jobViews].Runs)
}
