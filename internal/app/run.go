package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/types"
)

// maxTradesPerSession caps how many executions one process lifetime will
// attempt, a safety backstop against a runaway loop rather than a
// documented config option (spec.md §6 does not list it).
const maxTradesPerSession = 500

// Run starts every background goroutine — discovery polling, the HTTP
// surface, the wallet tracker, and the scan/execute agent loop — and
// blocks until ctx-independent shutdown is requested via Shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.health.SetReady(false)

	if a.pipeline != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.pipeline.Run(runCtx, a.cfg.DiscoveryInterval); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("discovery-pipeline-exited", zap.Error(err))
			}
		}()
	}

	if a.walletTracker != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.walletTracker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("wallet-tracker-exited", zap.Error(err))
			}
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http-server-exited", zap.Error(err))
		}
	}()

	a.health.SetReady(true)
	a.logger.Info("agent-loop-starting",
		zap.Duration("scan-interval", a.cfg.ScanInterval),
		zap.Bool("dry-run", a.dryRun),
		zap.Bool("auto-discover", a.cfg.AutoDiscover))

	a.loop(runCtx)
	return runCtx.Err()
}

// loop runs the C11 agent tick until ctx is cancelled.
func (a *App) loop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick runs one scan/execute cycle: refresh quotes, scan, and — if the
// top opportunity clears every gate — execute it.
func (a *App) tick(ctx context.Context) {
	a.refreshQuotes(ctx)

	opportunities := a.scanner.Scan(ctx, a.polarityFlips())

	lastScan := time.Now().UnixMilli()
	defer a.persistState(lastScan)

	if len(opportunities) == 0 {
		return
	}

	top := opportunities[0]

	if !a.breaker.IsEnabled() {
		a.logger.Debug("tick-idle", zap.String("reason", "breaker-tripped"))
		return
	}

	a.persistMu.Lock()
	executed := a.tradesExecuted
	a.persistMu.Unlock()
	if executed >= maxTradesPerSession {
		a.logger.Warn("session-trade-limit-reached", zap.Int("limit", maxTradesPerSession))
		return
	}

	if top.SpreadBps < a.cfg.MinSpreadBps {
		a.logger.Debug("tick-idle", zap.String("reason", "below-min-spread"), zap.Int("spread-bps", top.SpreadBps))
		return
	}

	pos, err := a.executor.Execute(ctx, top)
	if err != nil {
		a.logger.Error("execution-failed", zap.Error(err), zap.String("fingerprint", top.MarketID))
	}
	if pos.PositionID == "" {
		return
	}

	if serr := a.storage.StorePosition(ctx, pos); serr != nil {
		a.logger.Error("store-position-failed", zap.Error(serr))
	}

	a.persistMu.Lock()
	a.tradesExecuted++
	a.positions = append(a.positions, pos)
	a.persistMu.Unlock()
}

// refreshQuotes fans out one FetchQuotes call per enabled venue against
// its currently matched fingerprint set and writes every result into the
// shared store (C6 -> C7).
func (a *App) refreshQuotes(ctx context.Context) {
	markets := a.marketsByVenue()

	for v, provider := range a.providers {
		set, ok := markets[v]
		if !ok || len(set) == 0 {
			continue
		}
		quoteList, err := provider.FetchQuotes(ctx, set)
		if err != nil {
			a.logger.Warn("quote-fetch-failed", zap.String("venue", string(v)), zap.Error(err))
			continue
		}
		a.quoteStore.Put(quoteList)
	}
}

// marketsByVenue returns the currently matched fingerprint set per venue,
// either from the discovery pipeline's last result or the static config
// maps, whichever mode is active.
func (a *App) marketsByVenue() map[types.Venue]map[string]types.DiscoveredMarket {
	if a.pipeline == nil {
		return a.staticFP
	}

	result := a.pipeline.LastResult()
	if result == nil {
		return nil
	}
	return map[types.Venue]map[string]types.DiscoveredMarket{
		types.VenuePredict:  result.PredictMarketMap,
		types.VenueProbable: result.ProbableMarketMap,
		types.VenueOpinion:  result.OpinionMarketMap,
	}
}

// polarityFlips returns the discovery pipeline's per-fingerprint
// polarityFlip verdicts, or nil when running off static config maps
// (no match record exists to report from in that mode).
func (a *App) polarityFlips() map[string]bool {
	if a.pipeline == nil {
		return nil
	}
	result := a.pipeline.LastResult()
	if result == nil {
		return nil
	}
	return result.PolarityFlip
}

// persistState atomically snapshots the running ledger, generalizing the
// teacher's periodic state save to the cross-venue Position shape.
func (a *App) persistState(lastScanMs int64) {
	a.persistMu.Lock()
	snapshot := types.PersistedState{
		TradesExecuted: a.tradesExecuted,
		Positions:      append([]types.Position(nil), a.positions...),
		LastScanMs:     lastScanMs,
	}
	a.persistMu.Unlock()

	if err := a.stateStore.Save(snapshot); err != nil {
		a.logger.Error("state-save-failed", zap.Error(err))
	}
}
