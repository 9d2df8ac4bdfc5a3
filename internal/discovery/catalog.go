package discovery

import (
	"context"
	"strings"

	"github.com/marketarb/agent/pkg/types"
)

// VenueCatalogClient fetches one venue's full catalog of open markets,
// already filtered to binary Yes/No markets with populated outcome token
// identifiers. Implementations own their own pagination strategy.
type VenueCatalogClient interface {
	Venue() types.Venue
	FetchCatalog(ctx context.Context) ([]types.DiscoveredMarket, error)
}

// rawOutcome is the shape every venue's outcome list reduces to before
// the binary filter runs.
type rawOutcome struct {
	TokenID string
	Label   string
}

// classifyBinary applies the binary-market filter shared by every venue:
// exactly two outcomes whose labels case-insensitively read {yes, no},
// both with non-empty token identifiers.
func classifyBinary(outcomes []rawOutcome) (yesTokenID, noTokenID string, labels [2]string, ok bool) {
	if len(outcomes) != 2 {
		return "", "", labels, false
	}

	var yesIdx, noIdx = -1, -1
	for i, o := range outcomes {
		switch strings.ToLower(strings.TrimSpace(o.Label)) {
		case "yes":
			yesIdx = i
		case "no":
			noIdx = i
		}
	}
	if yesIdx == -1 || noIdx == -1 {
		return "", "", labels, false
	}
	if outcomes[yesIdx].TokenID == "" || outcomes[noIdx].TokenID == "" {
		return "", "", labels, false
	}

	labels[0] = outcomes[yesIdx].Label
	labels[1] = outcomes[noIdx].Label
	return outcomes[yesIdx].TokenID, outcomes[noIdx].TokenID, labels, true
}
