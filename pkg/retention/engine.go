// Package retention maintains storage cost and query performance:
// scheduled jobs downsample raw events into warm and cold tiers,
// archive expired cold rows to object storage, refresh materialized
// views, and sample storage analytics.
package retention

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/store"
)

// Store is the slice of the store client the retention jobs use.
type Store interface {
	Query(ctx context.Context, flux string) ([]store.Record, error)
	WritePoints(ctx context.Context, points []models.Point) error
	Delete(ctx context.Context, start, stop time.Time, predicate string) error
	Bucket() string
}

// ObjectStore receives archive objects, normally S3.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Job names.
const (
	jobDownsample = "downsample"
	jobTierMove   = "tier_move"
	jobArchive    = "archive"
	jobViews      = "views"
	jobAnalytics  = "analytics"
)

// JobStatus is one job's last outcome.
type JobStatus struct {
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
}

type jobState struct {
	running atomic.Bool

	mu       sync.Mutex
	lastRun  time.Time
	lastErr  string
	runs     int64
	failures int64
}

// Engine schedules the retention jobs. Each job holds a singleton flag
// so a slow run is skipped rather than overlapped.
type Engine struct {
	cfg     *config.RetentionConfig
	store   Store
	objects ObjectStore
	logger  *slog.Logger
	now     func() time.Time

	jobs map[string]*jobState

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEngine creates the retention engine. objects may be nil when no
// archive target is configured; the archive job then reports an error
// instead of deleting anything.
func NewEngine(cfg *config.RetentionConfig, st Store, objects ObjectStore, logger *slog.Logger) *Engine {
	jobs := make(map[string]*jobState)
	for _, name := range []string{jobDownsample, jobTierMove, jobArchive, jobViews, jobAnalytics} {
		jobs[name] = &jobState{}
	}
	return &Engine{
		cfg:     cfg,
		store:   st,
		objects: objects,
		logger:  logger.With("component", "retention"),
		now:     time.Now,
		jobs:    jobs,
		stopCh:  make(chan struct{}),
	}
}

// Start launches one scheduler goroutine per job.
func (e *Engine) Start(ctx context.Context) {
	e.schedule(ctx, jobDownsample, e.cfg.DownsampleInterval.Std(), e.runDownsample)
	e.schedule(ctx, jobTierMove, e.cfg.TierMoveInterval.Std(), e.runTierMove)
	e.schedule(ctx, jobArchive, e.cfg.ArchiveInterval.Std(), e.runArchive)
	e.schedule(ctx, jobViews, e.cfg.ViewRefreshInterval.Std(), e.runViews)
	e.schedule(ctx, jobAnalytics, e.cfg.AnalyticsInterval.Std(), e.runAnalytics)
	e.logger.Info("Retention engine started")
}

// Stop terminates the schedulers. A job in flight finishes its current
// attempt.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
	e.logger.Info("Retention engine stopped")
}

// Health reports per-job status keyed by job name.
func (e *Engine) Health() map[string]JobStatus {
	out := make(map[string]JobStatus, len(e.jobs))
	for name, st := range e.jobs {
		st.mu.Lock()
		out[name] = JobStatus{
			LastRun:   st.lastRun,
			LastError: st.lastErr,
			Runs:      st.runs,
			Failures:  st.failures,
		}
		st.mu.Unlock()
	}
	return out
}

func (e *Engine) schedule(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.runJob(ctx, name, fn)
			case <-e.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// runJob runs one job with retries. The singleton flag skips a tick
// when the previous run of the same job is still going.
func (e *Engine) runJob(ctx context.Context, name string, fn func(context.Context) error) {
	st := e.jobs[name]
	if !st.running.CompareAndSwap(false, true) {
		e.logger.Warn("Previous run still in progress, skipping", "job", name)
		return
	}
	defer st.running.Store(false)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	retries := uint64(0)
	if e.cfg.JobRetries > 1 {
		retries = uint64(e.cfg.JobRetries - 1)
	}

	start := e.now()
	err := backoff.Retry(func() error {
		if jobErr := fn(ctx); jobErr != nil {
			e.logger.Warn("Retention job attempt failed", "job", name, "error", jobErr)
			return jobErr
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx))

	st.mu.Lock()
	st.lastRun = start
	st.runs++
	if err != nil {
		st.failures++
		st.lastErr = err.Error()
	} else {
		st.lastErr = ""
	}
	st.mu.Unlock()

	if err != nil {
		e.logger.Error("Retention job failed", "job", name, "error", err)
		return
	}
	e.logger.Info("Retention job completed", "job", name, "duration", e.now().Sub(start))
}
