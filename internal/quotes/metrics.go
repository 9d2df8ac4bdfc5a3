package quotes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotesFetchedTotal tracks quotes successfully fetched, per venue.
	QuotesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketarb_quotes_fetched_total",
		Help: "Total number of market quotes fetched per venue",
	}, []string{"venue"})

	// QuotesSkippedTotal tracks markets dropped from a fetch cycle, per venue.
	QuotesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketarb_quotes_skipped_total",
		Help: "Total number of markets skipped during a quote fetch cycle",
	}, []string{"venue"})

	// FetchDurationSeconds tracks per-venue fetch-cycle latency.
	FetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketarb_quotes_fetch_duration_seconds",
		Help:    "Duration of a full quote fetch cycle",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})

	// StoreStaleReadsTotal tracks reads that filtered out a stale quote.
	StoreStaleReadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketarb_quotes_store_stale_reads_total",
		Help: "Total number of quote reads that encountered a stale entry",
	})
)
