package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marketarb/agent/internal/circuitbreaker"
	"github.com/marketarb/agent/internal/execution/venue"
	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/types"
)

// MarketResolver resolves the YES/NO token ids a venue client needs to
// place an order for one leg of a matched pair, given the fingerprint the
// scanner emitted and which venue that leg trades on. Kept as a narrow
// interface rather than importing internal/discovery directly, so the
// executor doesn't need to know how the catalog is assembled.
type MarketResolver interface {
	Resolve(fingerprint string, v types.Venue) (yesTokenID, noTokenID string, ok bool)
}

// Executor drives the two-leg execution sequence (C10): place the
// thinner-liquidity leg first as IOC, confirm its fill, then place the
// second leg, generalizing the teacher's paper/live Executor shape (a
// channel-driven loop wrapping a per-opportunity execute call) to the
// cross-venue complementary-buy trade instead of a single-venue
// N-outcome basket.
type Executor struct {
	clients  map[types.Venue]venue.Client
	resolver MarketResolver
	breaker  *circuitbreaker.DailyLossBreaker
	logger   *zap.Logger

	fillPollInterval time.Duration
	fillPollTimeout  time.Duration
}

// Config holds executor configuration.
type Config struct {
	Clients          map[types.Venue]venue.Client
	Resolver         MarketResolver
	Breaker          *circuitbreaker.DailyLossBreaker
	FillPollInterval time.Duration
	FillPollTimeout  time.Duration
	Logger           *zap.Logger
}

// New creates a two-leg executor.
func New(cfg *Config) *Executor {
	fillPollInterval := cfg.FillPollInterval
	if fillPollInterval <= 0 {
		fillPollInterval = 5 * time.Second
	}
	fillPollTimeout := cfg.FillPollTimeout
	if fillPollTimeout <= 0 {
		fillPollTimeout = 60 * time.Second
	}
	return &Executor{
		clients:          cfg.Clients,
		resolver:         cfg.Resolver,
		breaker:          cfg.Breaker,
		logger:           cfg.Logger,
		fillPollInterval: fillPollInterval,
		fillPollTimeout:  fillPollTimeout,
	}
}

// leg describes one side of the trade, resolved before either order is placed.
type leg struct {
	venueName   types.Venue
	client      venue.Client
	fingerprint string
	tokenID     string
	price       fixedpoint.Price18
	shares      fixedpoint.USDT6
}

// Execute runs the full two-leg sequence for one scanner-ranked
// opportunity and returns the resulting ledger entry. A nil error with a
// zero-value Position means the trade never started (breaker tripped or
// leg 1 filled zero shares) — there is nothing to record.
func (e *Executor) Execute(ctx context.Context, opp types.ArbitOpportunity) (types.Position, error) {
	start := time.Now()
	defer func() { ExecutionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	OpportunitiesReceived.Inc()

	if e.breaker != nil && !e.breaker.IsEnabled() {
		OpportunitiesSkippedTotal.WithLabelValues("breaker_tripped").Inc()
		return types.Position{}, fmt.Errorf("daily loss breaker is tripped")
	}

	legA, legB, err := e.buildLegs(opp)
	if err != nil {
		OpportunitiesSkippedTotal.WithLabelValues("resolve_failed").Inc()
		return types.Position{}, err
	}

	// Unreliable leg first: the side with the thinner liquidity.
	leg1, leg2 := legA, legB
	if opp.LiquidityB.LessThan(opp.LiquidityA) {
		leg1, leg2 = legB, legA
	}

	positionID := uuid.New().String()

	filled1, status1, err := e.placeAndConfirm(ctx, leg1)
	if err != nil {
		e.recordErrorType("leg1_place_failed")
		return types.Position{}, err
	}
	if !filled1.IsPositive() {
		// Zero fill: abort before leg 2, nothing stranded.
		LegsPlacedTotal.WithLabelValues(string(leg1.venueName), "zero_fill").Inc()
		OpportunitiesSkippedTotal.WithLabelValues("leg1_zero_fill").Inc()
		e.logger.Warn("leg1-zero-fill-aborting",
			zap.String("fingerprint", opp.MarketID), zap.String("venue", string(leg1.venueName)))
		return types.Position{}, nil
	}

	cost1 := leg1.price.MulUSDT(filled1)
	legOutcome := "filled"
	if status1 == types.FillStatusPartial {
		legOutcome = "partial"
	}
	LegsPlacedTotal.WithLabelValues(string(leg1.venueName), legOutcome).Inc()

	if status1 == types.FillStatusPartial {
		// Half-filled leg 1: record the stranded position, don't proceed to leg 2.
		pos := e.strandedPosition(positionID, opp, leg1, filled1, cost1)
		pfe := &types.PartialFillError{
			Fingerprint:  opp.MarketID,
			FilledVenue:  string(leg1.venueName),
			StrandedLeg:  string(leg2.venueName),
			FilledShares: filled1.String(),
		}
		e.recordLoss(cost1)
		PartialFillsTotal.Inc()
		e.logger.Error("leg1-partial-fill-aborting", zap.Error(pfe))
		return pos, pfe
	}

	filled2, status2, err := e.placeAndConfirm(ctx, leg2)
	if err != nil {
		// Leg 1 confirmed filled, leg 2 errored outright: stranded leg 1.
		e.recordLoss(cost1)
		PartialFillsTotal.Inc()
		pos := e.strandedPosition(positionID, opp, leg1, filled1, cost1)
		e.logger.Error("leg2-place-failed-stranding-leg1", zap.Error(err), zap.String("fingerprint", opp.MarketID))
		return pos, &types.PartialFillError{
			Fingerprint:  opp.MarketID,
			FilledVenue:  string(leg1.venueName),
			StrandedLeg:  string(leg2.venueName),
			FilledShares: filled1.String(),
		}
	}

	cost2 := leg2.price.MulUSDT(filled2)
	legOutcome2 := "filled"
	if status2 == types.FillStatusPartial {
		legOutcome2 = "partial"
	} else if !filled2.IsPositive() {
		legOutcome2 = "zero_fill"
	}
	LegsPlacedTotal.WithLabelValues(string(leg2.venueName), legOutcome2).Inc()

	if !filled2.IsPositive() {
		// Leg 2 filled nothing: leg-1 shares remain, PnL is -cost1 until resolved.
		e.recordLoss(cost1)
		PartialFillsTotal.Inc()
		pos := e.strandedPosition(positionID, opp, leg1, filled1, cost1)
		pfe := &types.PartialFillError{
			Fingerprint:  opp.MarketID,
			FilledVenue:  string(leg1.venueName),
			StrandedLeg:  string(leg2.venueName),
			FilledShares: filled1.String(),
		}
		e.logger.Error("leg2-zero-fill-stranding-leg1", zap.Error(pfe))
		return pos, pfe
	}

	// Both legs filled (fully or partially): position is closed when both
	// sides landed the full requested size.
	closed := filled1.GreaterThan(opp.Shares.Sub(epsilonShares)) && filled2.GreaterThan(opp.Shares.Sub(epsilonShares))

	pos := types.Position{
		PositionID:   positionID,
		ProtocolA:    opp.ProtocolA,
		ProtocolB:    opp.ProtocolB,
		MarketID:     opp.MarketID,
		BoughtYesOnA: opp.BuyYesOnA,
		SharesA:      filled1,
		SharesB:      filled2,
		CostA:        cost1,
		CostB:        cost2,
		OpenedAtMs:   start.UnixMilli(),
		Closed:       closed,
	}
	if leg1.venueName != opp.ProtocolA {
		pos.SharesA, pos.SharesB = filled2, filled1
		pos.CostA, pos.CostB = cost2, cost1
	}

	if closed {
		OpportunitiesExecuted.Inc()
		RealizedProfitUSDT.Add(opp.EstProfit.Float64())
	}

	e.logger.Info("two-leg-execution-complete",
		zap.String("fingerprint", opp.MarketID),
		zap.Bool("closed", closed),
		zap.String("shares-a", pos.SharesA.String()),
		zap.String("shares-b", pos.SharesB.String()))

	return pos, nil
}

// epsilonShares tolerates rounding noise in fill-size comparisons.
var epsilonShares = fixedpoint.NewUSDTFromFloat(0.000001)

func (e *Executor) buildLegs(opp types.ArbitOpportunity) (legA, legB leg, err error) {
	clientA, ok := e.clients[opp.ProtocolA]
	if !ok {
		return leg{}, leg{}, &types.ConfigError{Field: "clients", Reason: fmt.Sprintf("no client configured for venue %s", opp.ProtocolA)}
	}
	clientB, ok := e.clients[opp.ProtocolB]
	if !ok {
		return leg{}, leg{}, &types.ConfigError{Field: "clients", Reason: fmt.Sprintf("no client configured for venue %s", opp.ProtocolB)}
	}

	yesA, noA, ok := e.resolver.Resolve(opp.MarketID, opp.ProtocolA)
	if !ok {
		return leg{}, leg{}, &types.ValidationError{Venue: string(opp.ProtocolA), Field: "tokenId", Reason: "fingerprint not found in market registry"}
	}
	yesB, noB, ok := e.resolver.Resolve(opp.MarketID, opp.ProtocolB)
	if !ok {
		return leg{}, leg{}, &types.ValidationError{Venue: string(opp.ProtocolB), Field: "tokenId", Reason: "fingerprint not found in market registry"}
	}

	tokenA, tokenB := yesA, noB
	if !opp.BuyYesOnA {
		tokenA, tokenB = noA, yesB
	}

	legA = leg{venueName: opp.ProtocolA, client: clientA, fingerprint: opp.MarketID, tokenID: tokenA, price: opp.YesPriceA, shares: opp.Shares}
	legB = leg{venueName: opp.ProtocolB, client: clientB, fingerprint: opp.MarketID, tokenID: tokenB, price: opp.NoPriceB, shares: opp.Shares}
	return legA, legB, nil
}

// placeAndConfirm submits one leg as IOC and polls getOrderStatus to a
// terminal state, returning the shares it believes filled.
func (e *Executor) placeAndConfirm(ctx context.Context, l leg) (fixedpoint.USDT6, types.FillStatus, error) {
	if err := l.client.Authenticate(ctx); err != nil {
		return fixedpoint.ZeroUSDT(), types.FillStatusUnknown, err
	}

	result, err := l.client.PlaceOrder(ctx, types.OrderParams{
		MarketID: l.fingerprint,
		TokenID:  l.tokenID,
		Side:     types.OrderSideBuy,
		Price:    l.price,
		Size:     l.shares,
		IOC:      true,
	})
	if err != nil {
		return fixedpoint.ZeroUSDT(), types.FillStatusUnknown, err
	}
	if !result.Success {
		return fixedpoint.ZeroUSDT(), types.FillStatusUnknown, result.Error
	}

	status, err := e.pollFill(ctx, l.client, result.OrderID)
	if err != nil {
		return fixedpoint.ZeroUSDT(), types.FillStatusUnknown, err
	}

	switch status {
	case types.FillStatusFilled:
		return l.shares, status, nil
	case types.FillStatusPartial:
		return l.shares, status, nil // exact filled size isn't exposed by getOrderStatus; treated as a partial needing reconciliation
	default: // CANCELLED, EXPIRED, UNKNOWN(treated conservatively as cancelled)
		return fixedpoint.ZeroUSDT(), status, nil
	}
}

// pollFill polls getOrderStatus every fillPollInterval until a terminal
// status or fillPollTimeout. On timeout it consults getOpenOrders and
// conservatively classifies the order as CANCELLED if it isn't found
// resting there anymore.
func (e *Executor) pollFill(ctx context.Context, c venue.Client, orderID string) (types.FillStatus, error) {
	start := time.Now()
	defer func() { FillPollDurationSeconds.Observe(time.Since(start).Seconds()) }()

	deadline := start.Add(e.fillPollTimeout)
	ticker := time.NewTicker(e.fillPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.GetOrderStatus(ctx, orderID)
		if err != nil {
			return types.FillStatusUnknown, err
		}
		switch status {
		case types.FillStatusFilled, types.FillStatusCancelled, types.FillStatusExpired, types.FillStatusPartial:
			return status, nil
		}

		if time.Now().After(deadline) {
			open, err := c.GetOpenOrders(ctx)
			if err == nil {
				for _, o := range open {
					if o.OrderID == orderID {
						return types.FillStatusOpen, nil
					}
				}
			}
			return types.FillStatusCancelled, nil
		}

		select {
		case <-ctx.Done():
			return types.FillStatusUnknown, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Executor) strandedPosition(id string, opp types.ArbitOpportunity, filledLeg leg, filledShares fixedpoint.USDT6, cost fixedpoint.USDT6) types.Position {
	pos := types.Position{
		PositionID:   id,
		ProtocolA:    opp.ProtocolA,
		ProtocolB:    opp.ProtocolB,
		MarketID:     opp.MarketID,
		BoughtYesOnA: opp.BuyYesOnA,
		OpenedAtMs:   time.Now().UnixMilli(),
		Closed:       false,
	}
	if filledLeg.venueName == opp.ProtocolA {
		pos.SharesA, pos.CostA = filledShares, cost
		pos.SharesB, pos.CostB = fixedpoint.ZeroUSDT(), fixedpoint.ZeroUSDT()
	} else {
		pos.SharesB, pos.CostB = filledShares, cost
		pos.SharesA, pos.CostA = fixedpoint.ZeroUSDT(), fixedpoint.ZeroUSDT()
	}
	return pos
}

func (e *Executor) recordLoss(cost fixedpoint.USDT6) {
	if e.breaker != nil {
		e.breaker.RecordLoss(cost)
	}
}

func (e *Executor) recordErrorType(errType string) {
	ExecutionErrorsByType.WithLabelValues(errType).Inc()
}
