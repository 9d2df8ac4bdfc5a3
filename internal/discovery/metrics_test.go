package discovery

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if RefreshDurationSeconds == nil {
		t.Error("RefreshDurationSeconds not registered")
	}

	if RefreshErrorsTotal == nil {
		t.Error("RefreshErrorsTotal not registered")
	}

	if CatalogSizeGauge == nil {
		t.Error("CatalogSizeGauge not registered")
	}
}

// TestMetrics_HistogramObserve tests histogram can observe values
func TestMetrics_HistogramObserve(t *testing.T) {
	RefreshDurationSeconds.Observe(0.5)
}

// TestMetrics_CounterIncrement tests per-venue counters and gauges can be
// incremented/set without panicking.
func TestMetrics_CounterIncrement(t *testing.T) {
	RefreshErrorsTotal.WithLabelValues("predict").Inc()
	CatalogSizeGauge.WithLabelValues("predict").Set(42)
}
