package execution

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if OpportunitiesReceived == nil {
		t.Error("OpportunitiesReceived not registered")
	}
	if OpportunitiesExecuted == nil {
		t.Error("OpportunitiesExecuted not registered")
	}
	if OpportunitiesSkippedTotal == nil {
		t.Error("OpportunitiesSkippedTotal not registered")
	}
	if LegsPlacedTotal == nil {
		t.Error("LegsPlacedTotal not registered")
	}
	if PartialFillsTotal == nil {
		t.Error("PartialFillsTotal not registered")
	}
	if ExecutionDurationSeconds == nil {
		t.Error("ExecutionDurationSeconds not registered")
	}
	if FillPollDurationSeconds == nil {
		t.Error("FillPollDurationSeconds not registered")
	}
	if RealizedProfitUSDT == nil {
		t.Error("RealizedProfitUSDT not registered")
	}
	if ExecutionErrorsByType == nil {
		t.Error("ExecutionErrorsByType not registered")
	}
}

// TestMetrics_CounterIncrement tests counters can be incremented
func TestMetrics_CounterIncrement(t *testing.T) {
	OpportunitiesReceived.Inc()
	OpportunitiesExecuted.Inc()
	OpportunitiesSkippedTotal.WithLabelValues("breaker_tripped").Inc()
	LegsPlacedTotal.WithLabelValues("Predict", "filled").Inc()
	PartialFillsTotal.Inc()
	RealizedProfitUSDT.Add(1.5)
	ExecutionErrorsByType.WithLabelValues("config").Inc()
}

// TestMetrics_HistogramObserve tests histograms can observe values
func TestMetrics_HistogramObserve(t *testing.T) {
	ExecutionDurationSeconds.Observe(0.1)
	FillPollDurationSeconds.Observe(5)
}

// TestMetrics_Labels tests label values are accepted
func TestMetrics_Labels(t *testing.T) {
	LegsPlacedTotal.WithLabelValues("Probable", "partial").Inc()
	LegsPlacedTotal.WithLabelValues("Opinion", "cancelled").Inc()
	OpportunitiesSkippedTotal.WithLabelValues("below_min_spread").Inc()
}
