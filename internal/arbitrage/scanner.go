// Package arbitrage holds the cross-venue spread scanner (C8): for each
// fingerprint with enough fresh quotes, it looks for a complementary-buy
// pair whose combined cost undercuts the guaranteed $1 payout by more
// than the configured fee and threshold.
package arbitrage

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/marketarb/agent/internal/quotes"
	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/types"
)

// minFillUSDT is the minimum liquidity each leg must offer before an
// opportunity is considered fillable. Not part of the externally
// documented config surface (spec.md §6 does not list it), so it stays
// a package default rather than a new Config field.
var minFillUSDT = fixedpoint.NewUSDTFromFloat(10)

// Config bounds which opportunities the scanner will emit.
type Config struct {
	MinSpreadBps    int
	MaxSpreadBps    int
	MaxPositionSize fixedpoint.USDT6
	FreshnessMaxMs  int64
	Logger          *zap.Logger
}

// Scanner reads the quote store every time Scan is invoked (driven by
// the agent loop's scan tick, C11) and emits ranked ArbitOpportunity
// values, one winning candidate per fingerprint.
type Scanner struct {
	store  *quotes.Store
	cfg    Config
	logger *zap.Logger

	opportunityChan chan types.ArbitOpportunity
}

// New builds a Scanner reading from store.
func New(store *quotes.Store, cfg Config) *Scanner {
	if cfg.FreshnessMaxMs == 0 {
		cfg.FreshnessMaxMs = quotes.FreshnessMaxMs
	}
	return &Scanner{
		store:           store,
		cfg:             cfg,
		logger:          cfg.Logger,
		opportunityChan: make(chan types.ArbitOpportunity, 1024),
	}
}

// OpportunityChan exposes a non-blocking feed of every opportunity Scan
// emits, mirroring the teacher's push-channel style for consumers that
// want to observe opportunities without calling Scan themselves.
func (s *Scanner) OpportunityChan() <-chan types.ArbitOpportunity {
	return s.opportunityChan
}

// Scan evaluates every tracked fingerprint and returns opportunities
// ranked by estimated profit descending (ties: spreadBps desc, then
// quotedAt descending — newest wins). polarityFlips carries the matching
// engine's per-fingerprint polarityFlip verdict (discovery.DiscoveryResult.PolarityFlip);
// pass nil when running off static config maps, where no match record
// exists to report from.
func (s *Scanner) Scan(ctx context.Context, polarityFlips map[string]bool) []types.ArbitOpportunity {
	start := time.Now()
	defer func() { DetectionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	nowMs := time.Now().UnixMilli()
	var out []types.ArbitOpportunity

	for _, fp := range s.store.Fingerprints() {
		fresh := s.store.GetFresh(fp, nowMs, s.cfg.FreshnessMaxMs)
		if len(fresh) < 2 {
			continue
		}

		for i := 0; i < len(fresh); i++ {
			for j := i + 1; j < len(fresh); j++ {
				opp, ok := s.evaluate(fp, fresh[i], fresh[j], nowMs, polarityFlips[fp])
				if !ok {
					continue
				}
				out = append(out, opp)
				OpportunitiesDetectedTotal.Inc()
				OpportunityProfitBPS.Observe(float64(opp.SpreadBps))
				select {
				case s.opportunityChan <- opp:
				default:
					// Consumer is slow; Scan's return value is the
					// source of truth for the agent loop, so a full
					// buffer here only drops the secondary feed.
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EstProfit.LessThan(out[j].EstProfit) && !out[j].EstProfit.LessThan(out[i].EstProfit) {
			if out[i].SpreadBps != out[j].SpreadBps {
				return out[i].SpreadBps > out[j].SpreadBps
			}
			return out[i].QuotedAtMs > out[j].QuotedAtMs
		}
		return out[j].EstProfit.LessThan(out[i].EstProfit)
	})

	return out
}

// evaluate picks the better of the two complementary-buy directions
// for a quote pair and applies the filters from spec.md §4.9 point 2.
func (s *Scanner) evaluate(fingerprint string, qA, qB types.MarketQuote, nowMs int64, polarityFlip bool) (types.ArbitOpportunity, bool) {
	candA := s.direction(fingerprint, qA, qB, true)
	candB := s.direction(fingerprint, qA, qB, false)

	best := candA
	if candB.ok && (!candA.ok || candB.spreadBps > candA.spreadBps) {
		best = candB
	}
	if !best.ok {
		OpportunitiesRejectedTotal.WithLabelValues("no_arbitrage").Inc()
		return types.ArbitOpportunity{}, false
	}

	if best.spreadBps < s.cfg.MinSpreadBps {
		OpportunitiesRejectedTotal.WithLabelValues("below_min_spread").Inc()
		return types.ArbitOpportunity{}, false
	}
	if best.spreadBps > s.cfg.MaxSpreadBps {
		OpportunitiesRejectedTotal.WithLabelValues("above_max_spread").Inc()
		return types.ArbitOpportunity{}, false
	}

	// Per-leg liquidity is the depth of the side actually being traded
	// (spec.md §4.9 point 3), not the venue's combined YES+NO depth —
	// those can differ sharply on venues like Probable that book YES and
	// NO independently.
	liquidityA, liquidityB := qA.YesLiquidity, qB.NoLiquidity
	if !best.buyYesOnA {
		liquidityA, liquidityB = qA.NoLiquidity, qB.YesLiquidity
	}
	minLiquidity := fixedpoint.Min(liquidityA, liquidityB)
	if minLiquidity.LessThan(minFillUSDT) {
		OpportunitiesRejectedTotal.WithLabelValues("insufficient_liquidity").Inc()
		return types.ArbitOpportunity{}, false
	}

	oldestQuoteMs := qA.QuotedAtMs
	if qB.QuotedAtMs < oldestQuoteMs {
		oldestQuoteMs = qB.QuotedAtMs
	}
	if nowMs-oldestQuoteMs > s.cfg.FreshnessMaxMs {
		OpportunitiesRejectedTotal.WithLabelValues("stale").Inc()
		return types.ArbitOpportunity{}, false
	}

	maxPrice := best.yesPriceA
	if best.noPriceB.GreaterThan(maxPrice) {
		maxPrice = best.noPriceB
	}
	maxShares := fixedpoint.DivUSDT(minLiquidity, maxPrice)
	sharesFromPosition := fixedpoint.DivUSDT(s.cfg.MaxPositionSize, best.totalCost)
	shares := fixedpoint.Min(maxShares, sharesFromPosition)
	if !shares.IsPositive() {
		OpportunitiesRejectedTotal.WithLabelValues("zero_size").Inc()
		return types.ArbitOpportunity{}, false
	}

	estProfit := fixedpoint.One().Sub(best.totalCost).MulUSDT(shares)
	if !estProfit.IsPositive() {
		OpportunitiesRejectedTotal.WithLabelValues("non_positive_profit").Inc()
		return types.ArbitOpportunity{}, false
	}
	OpportunitySizeUSD.Observe(estProfit.Float64())

	return types.ArbitOpportunity{
		MarketID:         fingerprint,
		ProtocolA:        qA.Protocol,
		ProtocolB:        qB.Protocol,
		BuyYesOnA:        best.buyYesOnA,
		YesPriceA:        best.yesPriceA,
		NoPriceB:         best.noPriceB,
		TotalCost:        best.totalCost,
		GuaranteedPayout: fixedpoint.One(),
		SpreadBps:        best.spreadBps,
		GrossSpreadBps:   best.grossSpreadBps,
		FeesDeducted:     best.feesDeducted,
		EstProfit:        estProfit,
		LiquidityA:       liquidityA,
		LiquidityB:       liquidityB,
		PolarityFlip:     polarityFlip,
		QuotedAtMs:       oldestQuoteMs,
		Shares:           shares,
	}, true
}

type candidate struct {
	ok             bool
	buyYesOnA      bool
	yesPriceA      fixedpoint.Price18
	noPriceB       fixedpoint.Price18
	totalCost      fixedpoint.Price18
	grossSpreadBps int
	feesDeducted   fixedpoint.Price18
	spreadBps      int
}

// direction evaluates one of the two complementary-buy configurations:
// buyYes=true means "buy YES on A, NO on B"; false means the inverse.
func (s *Scanner) direction(fingerprint string, qA, qB types.MarketQuote, buyYesOnA bool) candidate {
	var priceA, priceB fixedpoint.Price18
	if buyYesOnA {
		priceA, priceB = qA.YesPrice, qB.NoPrice
	} else {
		priceA, priceB = qA.NoPrice, qB.YesPrice
	}

	totalCost := priceA.Add(priceB)
	if !totalCost.LessThan(fixedpoint.One()) {
		return candidate{ok: false}
	}

	grossSpreadBps := fixedpoint.One().Sub(totalCost).BasisPoints()
	feeBps := qA.FeeBps + qB.FeeBps
	spreadBps := grossSpreadBps - feeBps
	feesDeducted := fixedpoint.NewPriceFromFloat(float64(feeBps) / 10000.0)

	return candidate{
		ok:             true,
		buyYesOnA:      buyYesOnA,
		yesPriceA:      priceA,
		noPriceB:       priceB,
		totalCost:      totalCost,
		grossSpreadBps: grossSpreadBps,
		feesDeducted:   feesDeducted,
		spreadBps:      spreadBps,
	}
}
