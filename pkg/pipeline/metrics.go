package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_events_received_total",
		Help: "Events submitted to the intake, valid or not.",
	})

	metricEventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_events_processed_total",
		Help: "Events that made it through the pipeline to a point.",
	})

	metricValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homepulse_validation_errors_total",
		Help: "Rejected events by validation error code.",
	}, []string{"code"})

	metricSaturationRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_saturation_rejects_total",
		Help: "Events rejected because the intake queue was saturated.",
	})

	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "homepulse_intake_queue_depth",
		Help: "Events waiting in the intake queue.",
	})
)
