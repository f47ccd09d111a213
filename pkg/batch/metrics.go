package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homepulse_batch_flushes_total",
		Help: "Batch flush attempts by final result.",
	}, []string{"result"})

	metricPointsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_points_written_total",
		Help: "Points accepted by the store.",
	})

	metricPointsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_points_dead_lettered_total",
		Help: "Points appended to the dead-letter file.",
	})

	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "homepulse_batch_queue_depth",
		Help: "Points waiting in the batch writer queue.",
	})
)
