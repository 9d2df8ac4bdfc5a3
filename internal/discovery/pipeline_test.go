package discovery

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/marketarb/agent/internal/matching"
	"github.com/marketarb/agent/pkg/types"
)

type fakeCatalogClient struct {
	venue   types.Venue
	markets []types.DiscoveredMarket
	err     error
}

func (f *fakeCatalogClient) Venue() types.Venue { return f.venue }
func (f *fakeCatalogClient) FetchCatalog(ctx context.Context) ([]types.DiscoveredMarket, error) {
	return f.markets, f.err
}

func mkMarket(venue types.Venue, id, conditionID, title string) types.DiscoveredMarket {
	return types.DiscoveredMarket{
		ID:            id,
		Platform:      venue,
		Title:         title,
		ConditionID:   conditionID,
		Category:      "crypto",
		YesTokenID:    "yes-" + id,
		NoTokenID:     "no-" + id,
		OutcomeLabels: [2]string{"Yes", "No"},
	}
}

func newTestPipeline(predict, probable, opinion []types.DiscoveredMarket) *Pipeline {
	return New(&Config{
		Predict:  &fakeCatalogClient{venue: types.VenuePredict, markets: predict},
		Probable: &fakeCatalogClient{venue: types.VenueProbable, markets: probable},
		Opinion:  &fakeCatalogClient{venue: types.VenueOpinion, markets: opinion},
		Engine:   matching.NewEngine(2026),
		Logger:   zap.NewNop(),
	})
}

func TestPipelinePredictAnchorsFingerprint(t *testing.T) {
	predict := []types.DiscoveredMarket{mkMarket(types.VenuePredict, "p1", "0xabc", "Will BTC hit 100k?")}
	probable := []types.DiscoveredMarket{mkMarket(types.VenueProbable, "b1", "0xabc", "Bitcoin above one hundred thousand dollars")}

	pipe := newTestPipeline(predict, probable, nil)
	result, err := pipe.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.PredictMarketMap) != 1 {
		t.Fatalf("got %d predict entries, want 1", len(result.PredictMarketMap))
	}
	if len(result.ProbableMarketMap) != 1 {
		t.Fatalf("got %d probable entries, want 1", len(result.ProbableMarketMap))
	}

	var fp string
	for k := range result.PredictMarketMap {
		fp = k
	}
	if _, ok := result.ProbableMarketMap[fp]; !ok {
		t.Fatalf("probable entry not under the same fingerprint as predict")
	}
}

func TestPipelineOpinionProbableDoesNotOverwritePredictAnchored(t *testing.T) {
	// p1/b1/o1 all describe the same market, with matching conditionIds
	// between predict and probable so that pass 1 anchors the fingerprint
	// on Predict. The Opinion<->Probable pass must not create a second,
	// unanchored entry for the same probable market.
	predict := []types.DiscoveredMarket{mkMarket(types.VenuePredict, "p1", "0xabc", "Will BTC hit 100k?")}
	probable := []types.DiscoveredMarket{mkMarket(types.VenueProbable, "b1", "0xabc", "Bitcoin above one hundred thousand dollars")}
	opinion := []types.DiscoveredMarket{mkMarket(types.VenueOpinion, "o1", "", "BTC above $100,000")}

	pipe := newTestPipeline(predict, probable, opinion)
	result, err := pipe.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.ProbableMarketMap) != 1 {
		t.Fatalf("got %d probable entries, want exactly 1 (no duplicate from opinion<->probable pass)", len(result.ProbableMarketMap))
	}
}

func TestPipelineTolerateVenueFailure(t *testing.T) {
	pipe := New(&Config{
		Predict:  &fakeCatalogClient{venue: types.VenuePredict, err: context.DeadlineExceeded},
		Probable: &fakeCatalogClient{venue: types.VenueProbable, markets: nil},
		Engine:   matching.NewEngine(2026),
		Logger:   zap.NewNop(),
	})

	result, err := pipe.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh itself must not fail when one venue errors: %v", err)
	}
	if len(result.PredictMarketMap) != 0 {
		t.Fatalf("expected no predict entries when predict venue failed")
	}
}
