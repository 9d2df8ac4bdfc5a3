package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/marketarb/agent/internal/matching"
	"github.com/marketarb/agent/pkg/types"
)

// DiscoveryResult is the output of one pipeline refresh cycle: three
// priority-ordered fingerprint maps, one per venue, holding only markets
// that matched a counterpart on at least one other enabled venue.
type DiscoveryResult struct {
	PredictMarketMap  map[string]types.DiscoveredMarket
	ProbableMarketMap map[string]types.DiscoveredMarket
	OpinionMarketMap  map[string]types.DiscoveredMarket
	// PolarityFlip carries the matching engine's polarityFlip verdict for
	// the match that produced each fingerprint, for the scanner (C8) to
	// attach to the ArbitOpportunity it emits. It is informational only:
	// C8 already tries both complementary-buy directions independently of
	// this flag, so a wrong or missing entry never changes which
	// opportunities get found, only how they're reported.
	PolarityFlip map[string]bool
	FetchedAtMs  int64
}

// Pipeline is the generalized form of the teacher's discovery Service: a
// per-venue catalog fetch, binary filter, dedup, and cross-venue pairing,
// assembled into priority-ordered fingerprint maps.
type Pipeline struct {
	clients     map[types.Venue]VenueCatalogClient
	engine      *matching.Engine
	logger      *zap.Logger
	resultCh    chan *DiscoveryResult
	mu          sync.RWMutex
	lastResult  *DiscoveryResult
}

// Config configures a Pipeline. Any of Predict/Probable/Opinion may be
// omitted (nil) to disable that venue; the pipeline still runs with the
// remaining ones and the disabled venue always contributes an empty list.
type Config struct {
	Predict  VenueCatalogClient
	Probable VenueCatalogClient
	Opinion  VenueCatalogClient
	Engine   *matching.Engine
	Logger   *zap.Logger
}

func New(cfg *Config) *Pipeline {
	clients := make(map[types.Venue]VenueCatalogClient)
	if cfg.Predict != nil {
		clients[types.VenuePredict] = cfg.Predict
	}
	if cfg.Probable != nil {
		clients[types.VenueProbable] = cfg.Probable
	}
	if cfg.Opinion != nil {
		clients[types.VenueOpinion] = cfg.Opinion
	}

	return &Pipeline{
		clients:  clients,
		engine:   cfg.Engine,
		logger:   cfg.Logger,
		resultCh: make(chan *DiscoveryResult, 1),
	}
}

// Run schedules Refresh on a seconds-precision cron job at the given
// interval and blocks until ctx is cancelled. Catalog refresh is a slow,
// independent cadence from the fast arbitrage scan tick (internal/app's
// time.Ticker loop), so it gets its own scheduler rather than sharing one.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("discovery-pipeline-starting", zap.Duration("interval", interval))

	if _, err := p.Refresh(ctx); err != nil {
		p.logger.Error("initial-discovery-refresh-failed", zap.Error(err))
	}

	sched := cron.New(cron.WithSeconds())
	_, err := sched.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if _, err := p.Refresh(ctx); err != nil {
			p.logger.Error("discovery-refresh-failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule discovery refresh: %w", err)
	}

	p.logger.Info("discovery-cron-started")
	sched.Start()
	<-ctx.Done()

	stopCtx := sched.Stop()
	<-stopCtx.Done()
	p.logger.Info("discovery-pipeline-stopping")
	return ctx.Err()
}

// ResultChan returns the channel new DiscoveryResults are published on.
func (p *Pipeline) ResultChan() <-chan *DiscoveryResult {
	return p.resultCh
}

// LastResult returns the most recently computed result, or nil before the
// first successful refresh.
func (p *Pipeline) LastResult() *DiscoveryResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastResult
}

// Refresh fetches every enabled venue's catalog (tolerating individual
// venue failures), pairs markets across venues, and assembles the
// priority-ordered output maps.
func (p *Pipeline) Refresh(ctx context.Context) (*DiscoveryResult, error) {
	start := time.Now()
	defer func() {
		RefreshDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	catalogs := make(map[types.Venue][]types.DiscoveredMarket)
	for venue, client := range p.clients {
		markets, err := client.FetchCatalog(ctx)
		if err != nil {
			RefreshErrorsTotal.WithLabelValues(string(venue)).Inc()
			p.logger.Warn("venue-catalog-fetch-failed",
				zap.String("venue", string(venue)), zap.Error(err))
			catalogs[venue] = nil
			continue
		}
		catalogs[venue] = markets
		CatalogSizeGauge.WithLabelValues(string(venue)).Set(float64(len(markets)))
	}

	result := p.pair(catalogs)
	result.FetchedAtMs = time.Now().UnixMilli()

	p.mu.Lock()
	p.lastResult = result
	p.mu.Unlock()

	select {
	case p.resultCh <- result:
	default:
		p.logger.Warn("discovery-result-channel-full")
	}

	p.logger.Info("discovery-refresh-complete",
		zap.Int("predict-matched", len(result.PredictMarketMap)),
		zap.Int("probable-matched", len(result.ProbableMarketMap)),
		zap.Int("opinion-matched", len(result.OpinionMarketMap)),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// pair runs up to three matching passes — (Probable, Predict),
// (Opinion, Predict), (Opinion, Probable) — and assembles the three
// priority-ordered maps per the fingerprint precedence rule: a Predict
// side always anchors the fingerprint when present, and the
// Opinion<->Probable pass never overwrites an entry already anchored by
// Predict.
func (p *Pipeline) pair(catalogs map[types.Venue][]types.DiscoveredMarket) *DiscoveryResult {
	predict := catalogs[types.VenuePredict]
	probable := catalogs[types.VenueProbable]
	opinion := catalogs[types.VenueOpinion]

	predictByID := indexByID(predict)
	probableByID := indexByID(probable)
	opinionByID := indexByID(opinion)

	result := &DiscoveryResult{
		PredictMarketMap:  make(map[string]types.DiscoveredMarket),
		ProbableMarketMap: make(map[string]types.DiscoveredMarket),
		OpinionMarketMap:  make(map[string]types.DiscoveredMarket),
		PolarityFlip:      make(map[string]bool),
	}

	predictAnchoredProbable := make(map[string]bool)
	predictAnchoredOpinion := make(map[string]bool)

	if len(predict) > 0 && len(probable) > 0 {
		for _, m := range p.engine.Match(toInputs(probable), toInputs(predict)) {
			pm := predictByID[m.MarketB.ID]
			bm := probableByID[m.MarketA.ID]
			fp := matching.Fingerprint(pm.ConditionID, "", "")
			result.PredictMarketMap[fp] = pm
			result.ProbableMarketMap[fp] = bm
			result.PolarityFlip[fp] = m.PolarityFlip
			predictAnchoredProbable[bm.ID] = true
		}
	}

	if len(predict) > 0 && len(opinion) > 0 {
		for _, m := range p.engine.Match(toInputs(opinion), toInputs(predict)) {
			pm := predictByID[m.MarketB.ID]
			om := opinionByID[m.MarketA.ID]
			fp := matching.Fingerprint(pm.ConditionID, "", "")
			result.PredictMarketMap[fp] = pm
			result.OpinionMarketMap[fp] = om
			result.PolarityFlip[fp] = m.PolarityFlip
			predictAnchoredOpinion[om.ID] = true
		}
	}

	if len(opinion) > 0 && len(probable) > 0 {
		for _, m := range p.engine.Match(toInputs(opinion), toInputs(probable)) {
			om := opinionByID[m.MarketA.ID]
			bm := probableByID[m.MarketB.ID]
			if predictAnchoredOpinion[om.ID] || predictAnchoredProbable[bm.ID] {
				continue
			}
			fp := matching.Fingerprint("", bm.ConditionID, om.ID)
			result.OpinionMarketMap[fp] = om
			result.PolarityFlip[fp] = m.PolarityFlip
			result.ProbableMarketMap[fp] = bm
		}
	}

	return result
}

func indexByID(markets []types.DiscoveredMarket) map[string]types.DiscoveredMarket {
	out := make(map[string]types.DiscoveredMarket, len(markets))
	for _, m := range markets {
		out[m.ID] = m
	}
	return out
}

func toInputs(markets []types.DiscoveredMarket) []matching.MarketInput {
	out := make([]matching.MarketInput, len(markets))
	for i, m := range markets {
		out[i] = matching.MarketInput{
			ID:          m.ID,
			Title:       m.Title,
			ConditionID: m.ConditionID,
			Category:    m.Category,
			ResolvesAt:  m.ResolvesAt,
			Outcomes:    []string{m.OutcomeLabels[0], m.OutcomeLabels[1]},
		}
	}
	return out
}
