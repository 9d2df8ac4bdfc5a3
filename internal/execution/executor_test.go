package execution

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/marketarb/agent/internal/circuitbreaker"
	"github.com/marketarb/agent/internal/execution/venue"
	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/types"
)

// fakeClient is a scriptable venue.Client used to drive the executor
// through its fill/partial-fill/abort branches without a network call.
type fakeClient struct {
	venueName    types.Venue
	placeStatus  types.FillStatus
	placeErr     error
	pollStatuses []types.FillStatus // consumed in order by GetOrderStatus
	pollIdx      int
	openOrders   []types.OpenOrder
}

func (f *fakeClient) Venue() types.Venue                      { return f.venueName }
func (f *fakeClient) Authenticate(ctx context.Context) error   { return nil }
func (f *fakeClient) EnsureApprovals(ctx context.Context) error { return nil }
func (f *fakeClient) SetNonce(uint64)                          {}

func (f *fakeClient) PlaceOrder(ctx context.Context, params types.OrderParams) (types.OrderResult, error) {
	if f.placeErr != nil {
		return types.OrderResult{}, f.placeErr
	}
	return types.OrderResult{Success: true, OrderID: "order-1", Status: f.placeStatus}, nil
}

func (f *fakeClient) CancelOrder(ctx context.Context, orderID, tokenID string) (bool, error) {
	return true, nil
}

func (f *fakeClient) GetOrderStatus(ctx context.Context, orderID string) (types.FillStatus, error) {
	if f.pollIdx >= len(f.pollStatuses) {
		return f.pollStatuses[len(f.pollStatuses)-1], nil
	}
	s := f.pollStatuses[f.pollIdx]
	f.pollIdx++
	return s, nil
}

func (f *fakeClient) GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
	return f.openOrders, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(fingerprint string, v types.Venue) (string, string, bool) {
	return "yes-" + fingerprint, "no-" + fingerprint, true
}

func testOpportunity() types.ArbitOpportunity {
	return types.ArbitOpportunity{
		MarketID:   "fp-1",
		ProtocolA:  types.VenuePredict,
		ProtocolB:  types.VenueProbable,
		BuyYesOnA:  true,
		YesPriceA:  fixedpoint.NewPriceFromFloat(0.4),
		NoPriceB:   fixedpoint.NewPriceFromFloat(0.5),
		TotalCost:  fixedpoint.NewPriceFromFloat(0.9),
		LiquidityA: fixedpoint.NewUSDTFromFloat(100),
		LiquidityB: fixedpoint.NewUSDTFromFloat(50),
		EstProfit:  fixedpoint.NewUSDTFromFloat(1),
		Shares:     fixedpoint.NewUSDTFromFloat(10),
	}
}

func newTestExecutor(clients map[types.Venue]venue.Client, breaker *circuitbreaker.DailyLossBreaker) *Executor {
	logger, _ := zap.NewDevelopment()
	return New(&Config{
		Clients:          clients,
		Resolver:         fakeResolver{},
		Breaker:          breaker,
		FillPollInterval: time.Millisecond,
		FillPollTimeout:  10 * time.Millisecond,
		Logger:           logger,
	})
}

func TestExecute_BothLegsFilled(t *testing.T) {
	predict := &fakeClient{venueName: types.VenuePredict, placeStatus: types.FillStatusOpen, pollStatuses: []types.FillStatus{types.FillStatusFilled}}
	probable := &fakeClient{venueName: types.VenueProbable, placeStatus: types.FillStatusOpen, pollStatuses: []types.FillStatus{types.FillStatusFilled}}

	exec := newTestExecutor(map[types.Venue]venue.Client{
		types.VenuePredict:  predict,
		types.VenueProbable: probable,
	}, nil)

	pos, err := exec.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.Closed {
		t.Fatal("expected position to be closed when both legs fill")
	}
	if !pos.SharesA.GreaterThan(fixedpoint.ZeroUSDT()) || !pos.SharesB.GreaterThan(fixedpoint.ZeroUSDT()) {
		t.Fatal("expected both legs to have recorded shares")
	}
}

func TestExecute_Leg1ZeroFillAborts(t *testing.T) {
	// liquidityB < liquidityA so leg1 is Probable.
	predict := &fakeClient{venueName: types.VenuePredict}
	probable := &fakeClient{venueName: types.VenueProbable, placeStatus: types.FillStatusOpen, pollStatuses: []types.FillStatus{types.FillStatusCancelled}}

	exec := newTestExecutor(map[types.Venue]venue.Client{
		types.VenuePredict:  predict,
		types.VenueProbable: probable,
	}, nil)

	pos, err := exec.Execute(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.PositionID != "" {
		t.Fatal("expected no position recorded on a zero-fill leg 1")
	}
}

func TestExecute_Leg1PartialStrandsPosition(t *testing.T) {
	predict := &fakeClient{venueName: types.VenuePredict}
	probable := &fakeClient{venueName: types.VenueProbable, placeStatus: types.FillStatusOpen, pollStatuses: []types.FillStatus{types.FillStatusPartial}}

	breaker := circuitbreaker.NewDailyLoss(circuitbreaker.DailyLossConfig{
		DailyLossLimit: fixedpoint.NewUSDTFromFloat(1000),
		Logger:         zap.NewNop(),
	})

	exec := newTestExecutor(map[types.Venue]venue.Client{
		types.VenuePredict:  predict,
		types.VenueProbable: probable,
	}, breaker)

	pos, err := exec.Execute(context.Background(), testOpportunity())
	if err == nil {
		t.Fatal("expected a partial fill error")
	}
	if pos.Closed {
		t.Fatal("expected an open, stranded position")
	}
	if !pos.SharesB.IsZero() {
		t.Fatal("expected the unfilled leg's shares to be zero")
	}
}

func TestExecute_BreakerTrippedSkipsExecution(t *testing.T) {
	breaker := circuitbreaker.NewDailyLoss(circuitbreaker.DailyLossConfig{
		DailyLossLimit: fixedpoint.NewUSDTFromFloat(1),
		Logger:         zap.NewNop(),
	})
	breaker.RecordLoss(fixedpoint.NewUSDTFromFloat(10))

	exec := newTestExecutor(map[types.Venue]venue.Client{}, breaker)

	_, err := exec.Execute(context.Background(), testOpportunity())
	if err == nil {
		t.Fatal("expected execution to be rejected while the breaker is tripped")
	}
}

func TestExecute_MissingClientIsConfigError(t *testing.T) {
	exec := newTestExecutor(map[types.Venue]venue.Client{}, nil)
	_, err := exec.Execute(context.Background(), testOpportunity())
	if err == nil {
		t.Fatal("expected an error for a venue with no configured client")
	}
}
