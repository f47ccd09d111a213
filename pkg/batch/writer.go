// Package batch accumulates enriched points and writes them to the
// time-series store in size- or time-bounded batches, with retry and a
// dead-letter file for batches the store will not accept.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/store"
)

// StoreWriter is the slice of the store client the writer needs.
type StoreWriter interface {
	WritePoints(ctx context.Context, points []models.Point) error
}

// Health is a point-in-time snapshot of the writer.
type Health struct {
	QueueDepth     int       `json:"queue_depth"`
	QueueCapacity  int       `json:"queue_capacity"`
	LastFlush      time.Time `json:"last_flush,omitzero"`
	LastFlushError string    `json:"last_flush_error,omitempty"`
	DeadLettered   int64     `json:"dead_lettered_points"`
}

// Writer batches points and flushes them to the store. A single flusher
// goroutine preserves write order; producers enqueue concurrently.
//
// A batch is flushed when it reaches the configured size or when the
// oldest point has waited the batch timeout. A failed flush is retried
// with exponential backoff against the same batch; only after the
// retries are exhausted (or the store rejects the payload outright) is
// the batch dead-lettered and the writer moves on.
type Writer struct {
	store      StoreWriter
	dead       *DeadLetter
	logger     *slog.Logger
	batchSize  int
	batchWait  time.Duration
	flushWait  time.Duration
	drainWait  time.Duration
	maxRetries uint64

	in       chan models.Point
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu             sync.Mutex
	lastFlush      time.Time
	lastFlushError string
}

const flushAttempts = 5

// NewWriter creates a batch writer. The queue capacity and flush tuning
// come from the enrichment service configuration.
func NewWriter(st StoreWriter, cfg *config.EnrichConfig, logger *slog.Logger) *Writer {
	return &Writer{
		store:      st,
		dead:       NewDeadLetter(cfg.DeadLetterPath),
		logger:     logger.With("component", "batch_writer"),
		batchSize:  cfg.BatchSize,
		batchWait:  cfg.BatchTimeout.Std(),
		flushWait:  cfg.FlushTimeout.Std(),
		drainWait:  cfg.GracefulDrainTimeout.Std(),
		maxRetries: flushAttempts - 1,
		in:         make(chan models.Point, cfg.IntakeQueue),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the flusher goroutine.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.run()
	w.logger.Info("Batch writer started",
		"batch_size", w.batchSize,
		"batch_timeout", w.batchWait)
}

// Stop drains the queue, flushes the remainder, and waits for the
// flusher to exit. Bounded by the graceful drain timeout.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.logger.Info("Batch writer stopped")
}

// Enqueue hands a point to the writer. Blocks while the queue is full;
// returns an error once the writer is stopping.
func (w *Writer) Enqueue(p models.Point) error {
	select {
	case <-w.stopCh:
		return fmt.Errorf("batch writer is stopping")
	default:
	}
	select {
	case w.in <- p:
		metricQueueDepth.Set(float64(len(w.in)))
		return nil
	case <-w.stopCh:
		return fmt.Errorf("batch writer is stopping")
	}
}

// Health reports queue depth and last-flush status.
func (w *Writer) Health() Health {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Health{
		QueueDepth:     len(w.in),
		QueueCapacity:  cap(w.in),
		LastFlush:      w.lastFlush,
		LastFlushError: w.lastFlushError,
		DeadLettered:   w.dead.Written(),
	}
}

func (w *Writer) run() {
	defer w.wg.Done()

	buf := make([]models.Point, 0, w.batchSize)
	timer := time.NewTimer(w.batchWait)
	defer timer.Stop()

	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.batchWait)
	}

	for {
		select {
		case p := <-w.in:
			metricQueueDepth.Set(float64(len(w.in)))
			if len(buf) == 0 {
				resetTimer()
			}
			buf = append(buf, p)
			if len(buf) >= w.batchSize {
				w.flush(context.Background(), buf)
				buf = buf[:0]
			}

		case <-timer.C:
			if len(buf) > 0 {
				w.flush(context.Background(), buf)
				buf = buf[:0]
			}
			timer.Reset(w.batchWait)

		case <-w.stopCh:
			w.drain(buf)
			return
		}
	}
}

// drain empties the queue and flushes everything that remains, bounded
// by the graceful drain timeout.
func (w *Writer) drain(buf []models.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainWait)
	defer cancel()

	for {
		select {
		case p := <-w.in:
			buf = append(buf, p)
			if len(buf) >= w.batchSize {
				w.flush(ctx, buf)
				buf = buf[:0]
			}
			continue
		default:
		}
		break
	}
	if len(buf) > 0 {
		w.flush(ctx, buf)
	}
	metricQueueDepth.Set(0)
}

// flush writes one batch, retrying retryable failures. On exhaustion or
// a terminal rejection the batch goes to the dead-letter file.
func (w *Writer) flush(ctx context.Context, points []models.Point) {
	b := models.WriteBatch{
		ID:            uuid.New().String(),
		FirstEnqueued: time.Now().UTC(),
		Points:        append([]models.Point(nil), points...),
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.MaxInterval = 8 * time.Second
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		writeCtx, cancel := context.WithTimeout(ctx, w.flushWait)
		defer cancel()

		writeErr := w.store.WritePoints(writeCtx, b.Points)
		if writeErr == nil {
			return nil
		}
		if !store.IsRetryable(writeErr) {
			return backoff.Permanent(writeErr)
		}
		w.logger.Warn("Batch flush failed, will retry",
			"batch_id", b.ID,
			"attempt", attempt,
			"points", len(b.Points),
			"error", writeErr)
		return writeErr
	}, backoff.WithContext(backoff.WithMaxRetries(bo, w.maxRetries), ctx))

	w.mu.Lock()
	w.lastFlush = time.Now().UTC()
	if err != nil {
		w.lastFlushError = err.Error()
	} else {
		w.lastFlushError = ""
	}
	w.mu.Unlock()

	if err == nil {
		metricFlushes.WithLabelValues("ok").Inc()
		metricPointsWritten.Add(float64(len(b.Points)))
		w.logger.Debug("Batch flushed", "batch_id", b.ID, "points", len(b.Points))
		return
	}

	metricFlushes.WithLabelValues("failed").Inc()
	w.logger.Error("Batch flush exhausted, dead-lettering",
		"batch_id", b.ID,
		"points", len(b.Points),
		"error", err)

	n, dlErr := w.dead.Append(b)
	if dlErr != nil {
		w.logger.Error("Dead-letter write failed, points lost",
			"batch_id", b.ID,
			"points", len(b.Points),
			"error", dlErr)
		return
	}
	metricPointsDeadLettered.Add(float64(n))
}
