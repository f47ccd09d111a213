package providers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/homepulse/homepulse/pkg/config"
	"github.com/homepulse/homepulse/pkg/models"
)

// fetchFunc performs one upstream fetch and returns the flat reading
// fields.
type fetchFunc func(ctx context.Context) (map[string]any, error)

// snapshot is the single cache slot. Swapped atomically on successful
// refresh; kept in place on failure so readers fall back to a stale
// reading.
type snapshot struct {
	reading   models.ProviderReading
	fetchedAt time.Time
}

// poller is the shared refresh machinery behind every provider: one
// poll loop (single writer), an atomic snapshot (many readers), a
// token bucket against the upstream, and single-flight collapsing of
// forced refreshes.
type poller struct {
	name         string
	refreshEvery time.Duration
	ttl          time.Duration
	pollTimeout  time.Duration
	fetch        fetchFunc
	limiter      *rate.Limiter
	logger       *slog.Logger

	current atomic.Pointer[snapshot]
	group   singleflight.Group

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	pollCount    atomic.Int64
	failureCount atomic.Int64
	consecutive  atomic.Int64
	reads        atomic.Int64
	freshReads   atomic.Int64

	errMu   sync.Mutex
	lastErr string
}

func newPoller(name string, cfg *config.ProviderConfig, fetch fetchFunc, logger *slog.Logger) *poller {
	perMinute := cfg.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	return &poller{
		name:         name,
		refreshEvery: cfg.RefreshEvery.Std(),
		ttl:          cfg.TTL.Std(),
		pollTimeout:  cfg.PollTimeout.Std(),
		fetch:        fetch,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		logger:       logger.With("provider", name),
		stopCh:       make(chan struct{}),
	}
}

func (p *poller) Name() string { return p.name }

// Start performs the initial poll synchronously, then launches the
// refresh loop.
func (p *poller) Start(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn("Initial provider poll failed", "error", err)
	}
	p.wg.Add(1)
	go p.run(ctx)
	p.logger.Info("Provider started",
		"refresh_every", p.refreshEvery,
		"ttl", p.ttl)
}

// Stop terminates the refresh loop.
func (p *poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Warn("Provider poll failed", "error", err)
			}
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Refresh performs one upstream fetch. Concurrent callers collapse
// into a single in-flight request. On success the snapshot is swapped;
// on failure the previous snapshot stays in place.
func (p *poller) Refresh(ctx context.Context) error {
	_, err, _ := p.group.Do("refresh", func() (any, error) {
		return nil, p.poll(ctx)
	})
	return err
}

func (p *poller) poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	p.pollCount.Add(1)
	fields, err := p.fetch(ctx)
	if err != nil {
		p.failureCount.Add(1)
		p.consecutive.Add(1)
		p.setLastError(err.Error())
		metricPolls.WithLabelValues(p.name, "failed").Inc()
		return err
	}

	now := time.Now().UTC()
	p.current.Store(&snapshot{
		reading: models.ProviderReading{
			Provider: p.name,
			At:       now,
			Fields:   fields,
		},
		fetchedAt: now,
	})
	p.consecutive.Store(0)
	p.setLastError("")
	metricPolls.WithLabelValues(p.name, "ok").Inc()
	return nil
}

// Latest returns a copy of the cached reading. The second return is
// false until the first successful poll.
func (p *poller) Latest() (models.ProviderReading, bool) {
	s := p.current.Load()
	if s == nil {
		return models.ProviderReading{}, false
	}

	r := s.reading.Clone()
	r.Stale = time.Since(s.fetchedAt) > p.ttl

	p.reads.Add(1)
	if !r.Stale {
		p.freshReads.Add(1)
	}
	return r, true
}

// Health reports poll counters and staleness.
func (p *poller) Health() Health {
	h := Health{
		Name:                p.name,
		PollCount:           p.pollCount.Load(),
		FailureCount:        p.failureCount.Load(),
		ConsecutiveFailures: p.consecutive.Load(),
		TTLSeconds:          p.ttl.Seconds(),
	}
	p.errMu.Lock()
	h.LastError = p.lastErr
	p.errMu.Unlock()

	if s := p.current.Load(); s != nil {
		h.LastSuccessAt = s.fetchedAt
		h.Stale = time.Since(s.fetchedAt) > p.ttl
	} else {
		h.Stale = true
	}
	// Healthy means a reading exists and is within its TTL. A provider
	// serving stale data degrades enrichment but not the service.
	h.Healthy = !h.Stale

	if reads := p.reads.Load(); reads > 0 {
		h.CacheHitRate = float64(p.freshReads.Load()) / float64(reads)
	}
	return h
}

func (p *poller) setLastError(msg string) {
	p.errMu.Lock()
	p.lastErr = msg
	p.errMu.Unlock()
}
