// Package pipeline is the enrichment core: validate, normalize, enrich,
// and shape inbound hub events, then hand the resulting points to the
// batch writer. Intake is a bounded queue drained by a worker pool.
package pipeline

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

// PointSink receives shaped points, normally the batch writer.
type PointSink interface {
	Enqueue(p models.Point) error
}

// ReadingsSource supplies the current provider snapshots, normally the
// provider registry.
type ReadingsSource interface {
	Readings() map[string]models.ProviderReading
}

// Health is a point-in-time snapshot of the pipeline.
type Health struct {
	QueueDepth        int   `json:"queue_depth"`
	QueueCapacity     int   `json:"queue_capacity"`
	HighWater         int   `json:"high_water"`
	Workers           int   `json:"workers"`
	EventsReceived    int64 `json:"events_received"`
	EventsProcessed   int64 `json:"events_processed"`
	ValidationErrors  int64 `json:"validation_errors"`
	SaturationRejects int64 `json:"saturation_rejects"`
}

type job struct {
	raw           models.RawEvent
	correlationID string
}

// Service runs the enrichment pipeline. Submit validates synchronously
// so the caller gets a precise rejection; everything after validation
// happens on the worker pool.
type Service struct {
	queue     chan job
	highWater int
	workers   int
	sink      PointSink
	readings  ReadingsSource
	logger    *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	received     atomic.Int64
	processed    atomic.Int64
	invalid      atomic.Int64
	saturated    atomic.Int64
	processFails atomic.Int64
}

// NewService creates the pipeline service.
func NewService(cfg *config.EnrichConfig, sink PointSink, readings ReadingsSource, logger *slog.Logger) *Service {
	return &Service{
		queue:     make(chan job, cfg.IntakeQueue),
		highWater: cfg.HighWaterMark(),
		workers:   cfg.Workers,
		sink:      sink,
		readings:  readings,
		logger:    logger.With("component", "pipeline"),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the worker pool.
func (s *Service) Start() {
	for i := range s.workers {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.logger.Info("Pipeline started",
		"workers", s.workers,
		"queue_capacity", cap(s.queue),
		"high_water", s.highWater)
}

// Stop stops intake and waits for the workers to drain the queue.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("Pipeline stopped")
}

// Submit validates an event and enqueues it for processing. Returns a
// *ValidationError on malformed input and ErrSaturated when the queue
// is past its high-water mark; the event is enqueued in neither case.
func (s *Service) Submit(raw models.RawEvent, correlationID string) error {
	s.received.Add(1)
	metricEventsReceived.Inc()

	if err := Validate(&raw); err != nil {
		s.invalid.Add(1)
		var ve *ValidationError
		if errors.As(err, &ve) {
			metricValidationErrors.WithLabelValues(ve.Code).Inc()
		}
		return err
	}

	select {
	case <-s.stopCh:
		return ErrSaturated
	default:
	}

	if len(s.queue) >= s.highWater {
		s.saturated.Add(1)
		metricSaturationRejects.Inc()
		return ErrSaturated
	}

	select {
	case s.queue <- job{raw: raw, correlationID: correlationID}:
		metricQueueDepth.Set(float64(len(s.queue)))
		return nil
	default:
		s.saturated.Add(1)
		metricSaturationRejects.Inc()
		return ErrSaturated
	}
}

// Health reports queue depth and pipeline counters.
func (s *Service) Health() Health {
	return Health{
		QueueDepth:        len(s.queue),
		QueueCapacity:     cap(s.queue),
		HighWater:         s.highWater,
		Workers:           s.workers,
		EventsReceived:    s.received.Load(),
		EventsProcessed:   s.processed.Load(),
		ValidationErrors:  s.invalid.Load(),
		SaturationRejects: s.saturated.Load(),
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	logger := s.logger.With("worker", id)

	for {
		select {
		case j := <-s.queue:
			metricQueueDepth.Set(float64(len(s.queue)))
			s.process(j, logger)
		case <-s.stopCh:
			// Drain whatever was accepted before intake closed.
			for {
				select {
				case j := <-s.queue:
					s.process(j, logger)
				default:
					return
				}
			}
		}
	}
}

// process runs normalize → enrich → shape for one event and hands the
// point to the sink.
func (s *Service) process(j job, logger *slog.Logger) {
	ev, err := Normalize(&j.raw, j.correlationID, logger)
	if err != nil {
		// Validation runs before enqueue, so this is unexpected input
		// drift rather than a caller error.
		s.processFails.Add(1)
		logger.Error("Normalization failed",
			"entity_id", j.raw.Data.EntityID,
			"correlation_id", j.correlationID,
			"error", err)
		return
	}

	enriched := Enrich(ev, s.readings.Readings(), logger)
	point := Shape(enriched)

	if err := s.sink.Enqueue(point); err != nil {
		s.processFails.Add(1)
		logger.Error("Point handoff failed",
			"entity_id", ev.EntityID,
			"correlation_id", ev.CorrelationID,
			"error", err)
		return
	}

	s.processed.Add(1)
	metricEventsProcessed.Inc()
	logger.Debug("Event processed",
		"entity_id", ev.EntityID,
		"domain", ev.Domain,
		"correlation_id", ev.CorrelationID)
}
