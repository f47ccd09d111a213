package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricPolls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "homepulse_provider_polls_total",
	Help: "Provider poll attempts by provider and result.",
}, []string{"provider", "result"})
