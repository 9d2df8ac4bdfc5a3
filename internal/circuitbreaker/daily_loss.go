package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/fixedpoint"
)

// DailyLossBreaker tracks running net failure cost against a configured
// daily limit, generalizing BalanceCircuitBreaker's atomic-enabled /
// hysteresis pattern from an on-chain balance check to the two-leg
// executor's partial-fill loss accounting (spec.md §4.11 point 6): once
// the UTC day's accumulated loss crosses DailyLossLimit, the breaker
// trips and stays tripped until the day rolls over.
type DailyLossBreaker struct {
	paused atomic.Bool

	limit  fixedpoint.USDT6
	logger *zap.Logger

	mu        sync.Mutex
	day       string
	lossToday fixedpoint.USDT6
}

// DailyLossConfig configures a DailyLossBreaker.
type DailyLossConfig struct {
	DailyLossLimit fixedpoint.USDT6
	Logger         *zap.Logger
}

// NewDailyLoss builds a breaker that starts unpaused.
func NewDailyLoss(cfg DailyLossConfig) *DailyLossBreaker {
	return &DailyLossBreaker{
		limit:  cfg.DailyLossLimit,
		logger: cfg.Logger,
		day:    utcDay(time.Now()),
	}
}

// IsEnabled returns true if new opportunities may be executed. Lock-free,
// safe to call from the agent loop's hot path.
func (b *DailyLossBreaker) IsEnabled() bool {
	return !b.paused.Load()
}

// RecordLoss adds a realized loss (e.g. a PartialFillError's stranded
// first-leg cost) to the running daily total, resetting the counter on a
// UTC day rollover, and trips the breaker if the new total exceeds the
// configured limit.
func (b *DailyLossBreaker) RecordLoss(loss fixedpoint.USDT6) {
	if !loss.IsPositive() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	today := utcDay(time.Now())
	if today != b.day {
		b.day = today
		b.lossToday = fixedpoint.ZeroUSDT()
		if b.paused.CompareAndSwap(true, false) {
			CircuitBreakerEnabled.Set(1)
			CircuitBreakerStateChanges.Inc()
			b.logger.Info("daily-loss-breaker-reset", zap.String("day", today))
		}
	}

	b.lossToday = b.lossToday.Add(loss)
	CircuitBreakerLossToday.Set(b.lossToday.Float64())

	if b.lossToday.GreaterThan(b.limit) && b.paused.CompareAndSwap(false, true) {
		CircuitBreakerEnabled.Set(0)
		CircuitBreakerStateChanges.Inc()
		b.logger.Warn("daily-loss-breaker-tripped",
			zap.String("loss-today", b.lossToday.String()),
			zap.String("limit", b.limit.String()))
	}
}

// Status returns the day's running loss and limit for inspection (e.g. an
// HTTP health route).
func (b *DailyLossBreaker) Status() (lossToday, limit fixedpoint.USDT6, paused bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lossToday, b.limit, b.paused.Load()
}

func utcDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
