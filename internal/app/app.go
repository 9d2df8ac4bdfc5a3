// Package app wires the agent's components together into the running
// cross-venue arbitrage loop (C11): discovery, quote providers, the
// spread scanner, and the two-leg executor, plus the supporting
// state/storage/health surface.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/marketarb/agent/internal/arbitrage"
	"github.com/marketarb/agent/internal/circuitbreaker"
	"github.com/marketarb/agent/internal/discovery"
	"github.com/marketarb/agent/internal/execution"
	"github.com/marketarb/agent/internal/quotes"
	"github.com/marketarb/agent/internal/state"
	"github.com/marketarb/agent/internal/storage"
	"github.com/marketarb/agent/pkg/config"
	"github.com/marketarb/agent/pkg/healthprobe"
	"github.com/marketarb/agent/pkg/httpserver"
	"github.com/marketarb/agent/pkg/types"
	"github.com/marketarb/agent/pkg/wallet"
)

// Options tunes a single run without mutating the loaded Config.
type Options struct {
	// DryRunOverride, when non-nil, takes precedence over cfg.DryRun.
	DryRunOverride *bool
}

// App owns every long-running component and the goroutines that drive
// them, the generalized form of the teacher's single-venue App.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	dryRun bool

	pipeline   *discovery.Pipeline // nil when AutoDiscover is false
	providers  map[types.Venue]quotes.Provider
	quoteStore *quotes.Store
	scanner    *arbitrage.Scanner
	resolver   execution.MarketResolver
	staticFP   map[types.Venue]map[string]types.DiscoveredMarket // nil when AutoDiscover is true

	executor      *execution.Executor
	breaker       *circuitbreaker.DailyLossBreaker
	stateStore    *state.Store
	storage       storage.Storage
	health        *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	walletTracker *wallet.Tracker

	persistMu      sync.Mutex
	tradesExecuted int
	positions      []types.Position

	cancel context.CancelFunc
	wg     sync.WaitGroup
}
