package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks arbitrage opportunities detected.
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketarb_scanner_opportunities_detected_total",
		Help: "Total number of arbitrage opportunities detected",
	})

	// OpportunityProfitBPS tracks profit margins in basis points.
	OpportunityProfitBPS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketarb_scanner_opportunity_spread_bps",
		Help:    "Arbitrage opportunity spread in basis points",
		Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000},
	})

	// OpportunitySizeUSD tracks estimated profit per opportunity.
	OpportunitySizeUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketarb_scanner_opportunity_profit_usdt",
		Help:    "Arbitrage opportunity estimated profit in USDT",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	// DetectionDurationSeconds tracks scan loop latency.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketarb_scanner_scan_duration_seconds",
		Help:    "Duration of one arbitrage scan pass",
		Buckets: prometheus.DefBuckets,
	})

	// OpportunitiesRejectedTotal tracks rejected opportunities by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketarb_scanner_opportunities_rejected_total",
			Help: "Total number of candidate opportunities rejected, by reason",
		},
		[]string{"reason"},
	)
)
