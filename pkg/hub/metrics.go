package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricForwardedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_ingest_forwarded_events_total",
		Help: "Events accepted by the enrichment service.",
	})

	metricDroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_ingest_dropped_events_total",
		Help: "Events dropped because the dispatch channel was full.",
	})

	metricDispatchFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_ingest_dispatch_failed_events_total",
		Help: "Events whose dispatch retries were exhausted.",
	})
)
