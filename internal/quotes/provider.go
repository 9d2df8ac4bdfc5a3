package quotes

import (
	"context"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/types"
)

// Provider fetches fresh quotes for a set of fingerprinted markets on one
// venue. Implementations must produce at most one MarketQuote per
// marketId and tolerate individual-market failures without aborting the
// whole cycle.
type Provider interface {
	Venue() types.Venue
	FetchQuotes(ctx context.Context, markets map[string]types.DiscoveredMarket) ([]types.MarketQuote, error)
}

// SlippageWindowBps bounds the depth-aggregation window used by every
// provider: only book levels within this distance of the touch count
// toward liquidity.
const SlippageWindowBps = 200

// MinLiquidityUSDT6 is the minimum per-side depth (1 USDT, 6dp) below
// which a provider drops the market from its output rather than publish
// an unusable quote.
const MinLiquidityUSDT6 = 1_000_000

// MaxConcurrentFetches bounds the number of in-flight HTTP calls per
// provider.
const MaxConcurrentFetches = 10

// BookLevel is one price/size rung of an order book, already decimal
// decoded.
type BookLevel struct {
	Price fixedpoint.Price18
	Size  fixedpoint.USDT6
}

// depthWithinSlippage sums level sizes whose price lies within
// SlippageWindowBps of touch, the common aggregation used by every
// provider's depth calculation.
func depthWithinSlippage(levels []BookLevel, touch fixedpoint.Price18, bps int) fixedpoint.USDT6 {
	total := fixedpoint.ZeroUSDT()
	for _, lvl := range levels {
		diffBps := priceDiffBps(touch, lvl.Price)
		if diffBps > bps {
			continue
		}
		total = total.Add(lvl.Size)
	}
	return total
}

// priceDiffBps returns the absolute distance between a and b in basis
// points of one payout unit.
func priceDiffBps(a, b fixedpoint.Price18) int {
	var diff fixedpoint.Price18
	if a.GreaterThanEq(b) {
		diff = a.Sub(b)
	} else {
		diff = b.Sub(a)
	}
	return diff.BasisPoints()
}
