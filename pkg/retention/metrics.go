package retention

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricWindowsAggregated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homepulse_retention_windows_aggregated_total",
		Help: "Downsample windows written, by destination measurement.",
	}, []string{"measurement"})

	metricRowsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homepulse_retention_rows_archived_total",
		Help: "Cold rows uploaded to the archive object store.",
	})

	metricViewRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homepulse_retention_view_refreshes_total",
		Help: "Successful materialized view refreshes, by view.",
	}, []string{"view"})
)
