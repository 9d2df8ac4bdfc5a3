package app

import (
	"strings"

	"github.com/marketarb/agent/internal/discovery"
	"github.com/marketarb/agent/pkg/types"
)

// pipelineResolver implements execution.MarketResolver off the discovery
// pipeline's last published result, used whenever AutoDiscover is on.
type pipelineResolver struct {
	pipeline *discovery.Pipeline
}

func (r *pipelineResolver) Resolve(fingerprint string, v types.Venue) (yesTokenID, noTokenID string, ok bool) {
	result := r.pipeline.LastResult()
	if result == nil {
		return "", "", false
	}

	var m types.DiscoveredMarket
	switch v {
	case types.VenuePredict:
		m, ok = result.PredictMarketMap[fingerprint]
	case types.VenueProbable:
		m, ok = result.ProbableMarketMap[fingerprint]
	case types.VenueOpinion:
		m, ok = result.OpinionMarketMap[fingerprint]
	}
	if !ok {
		return "", "", false
	}
	return m.YesTokenID, m.NoTokenID, true
}

// staticResolver implements execution.MarketResolver directly off the
// config's static fingerprint maps, used when AutoDiscover is false and
// no catalog client ever runs.
type staticResolver struct {
	markets map[types.Venue]map[string]types.DiscoveredMarket
}

func (r *staticResolver) Resolve(fingerprint string, v types.Venue) (yesTokenID, noTokenID string, ok bool) {
	m, ok := r.markets[v][fingerprint]
	if !ok {
		return "", "", false
	}
	return m.YesTokenID, m.NoTokenID, true
}

// staticMarkets parses one venue's static config map into the
// DiscoveredMarket shape the quote providers and resolver both expect.
// Each entry is "marketId:yesTokenId:noTokenId" — spec.md §6's
// "fingerprint->tokens" static maps, injected when auto-discovery is off.
func staticMarkets(raw map[string]string, platform types.Venue) map[string]types.DiscoveredMarket {
	out := make(map[string]types.DiscoveredMarket, len(raw))
	for fp, v := range raw {
		parts := strings.SplitN(v, ":", 3)
		if len(parts) != 3 {
			continue
		}
		out[fp] = types.DiscoveredMarket{
			ID:         parts[0],
			Platform:   platform,
			YesTokenID: parts[1],
			NoTokenID:  parts[2],
		}
	}
	return out
}
