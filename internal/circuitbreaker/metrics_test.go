package circuitbreaker

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if CircuitBreakerEnabled == nil {
		t.Error("CircuitBreakerEnabled not registered")
	}

	if CircuitBreakerLossToday == nil {
		t.Error("CircuitBreakerLossToday not registered")
	}

	if CircuitBreakerStateChanges == nil {
		t.Error("CircuitBreakerStateChanges not registered")
	}
}

// TestMetrics_GaugeSet tests gauge can be set
func TestMetrics_GaugeSet(t *testing.T) {
	CircuitBreakerEnabled.Set(1.0)
	CircuitBreakerLossToday.Set(100.0)
}

// TestMetrics_CounterIncrement tests counter can be incremented
func TestMetrics_CounterIncrement(t *testing.T) {
	CircuitBreakerStateChanges.Inc()
}

// TestMetrics_StateTransitions tests state transitions
func TestMetrics_StateTransitions(t *testing.T) {
	// Enabled state
	CircuitBreakerEnabled.Set(1.0)

	// Disabled state
	CircuitBreakerEnabled.Set(0.0)

	// Track state change
	CircuitBreakerStateChanges.Inc()
}
