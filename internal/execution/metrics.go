package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesReceived tracks opportunities handed to the executor.
	OpportunitiesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketarb_executor_opportunities_received_total",
		Help: "Total number of arbitrage opportunities received for execution",
	})

	// OpportunitiesExecuted tracks opportunities where both legs filled.
	OpportunitiesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketarb_executor_opportunities_executed_total",
		Help: "Total number of opportunities where both legs filled",
	})

	// OpportunitiesSkippedTotal tracks opportunities skipped before any leg was placed.
	OpportunitiesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketarb_executor_opportunities_skipped_total",
			Help: "Total number of opportunities skipped before placing a leg, by reason",
		},
		[]string{"reason"},
	)

	// LegsPlacedTotal tracks leg placements by venue and fill outcome.
	LegsPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketarb_executor_legs_placed_total",
			Help: "Total number of leg orders placed, by venue and fill outcome",
		},
		[]string{"venue", "outcome"},
	)

	// PartialFillsTotal tracks incidents where one leg filled and the other did not.
	PartialFillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketarb_executor_partial_fills_total",
		Help: "Total number of two-leg executions left with a stranded leg",
	})

	// ExecutionDurationSeconds tracks total two-leg execution latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketarb_executor_execution_duration_seconds",
		Help:    "Duration of a full two-leg execution attempt",
		Buckets: prometheus.DefBuckets,
	})

	// FillPollDurationSeconds tracks time spent polling a single leg to a terminal status.
	FillPollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketarb_executor_fill_poll_duration_seconds",
		Help:    "Duration of the getOrderStatus poll loop for one leg",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60},
	})

	// RealizedProfitUSDT tracks cumulative realized profit across closed positions.
	RealizedProfitUSDT = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketarb_executor_realized_profit_usdt",
		Help: "Cumulative realized profit in USDT across fully closed two-leg positions",
	})

	// ExecutionErrorsByType tracks execution failures by error type.
	ExecutionErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketarb_executor_errors_by_type_total",
			Help: "Total number of execution errors classified by type",
		},
		[]string{"error_type"},
	)
)
