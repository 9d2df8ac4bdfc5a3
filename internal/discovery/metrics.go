package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshDurationSeconds tracks full multi-venue discovery cycle latency.
	RefreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketarb_discovery_refresh_duration_seconds",
		Help:    "Duration of a full multi-venue discovery refresh cycle",
		Buckets: prometheus.DefBuckets,
	})

	// RefreshErrorsTotal tracks per-venue catalog fetch failures.
	RefreshErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketarb_discovery_refresh_errors_total",
		Help: "Total number of per-venue catalog fetch failures",
	}, []string{"venue"})

	// CatalogSizeGauge tracks the size of each venue's filtered catalog.
	CatalogSizeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "marketarb_discovery_catalog_size",
		Help: "Number of binary markets returned by the most recent catalog fetch, per venue",
	}, []string{"venue"})
)
