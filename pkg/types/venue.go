package types

import (
	"encoding/json"
	"fmt"

	"github.com/marketarb/agent/pkg/fixedpoint"
)

// Venue identifies one of the three supported prediction-market platforms.
type Venue string

const (
	VenuePredict  Venue = "Predict"
	VenueProbable Venue = "Probable"
	VenueOpinion  Venue = "Opinion"
)

// DiscoveredMarket is the venue-independent shape produced by the discovery
// pipeline. ID is unique within Platform only, never across venues.
type DiscoveredMarket struct {
	ID            string
	Platform      Venue
	Title         string
	ConditionID   string
	Category      string
	ResolvesAt    *int64 // unix ms
	YesTokenID    string
	NoTokenID     string
	OutcomeLabels [2]string
	Image         string
	URL           string
}

// MarketQuote is a venue's latest priced view of one fingerprinted market.
type MarketQuote struct {
	MarketID      string // fingerprint
	Protocol      Venue
	YesPrice      fixedpoint.Price18
	NoPrice       fixedpoint.Price18
	YesLiquidity  fixedpoint.USDT6
	NoLiquidity   fixedpoint.USDT6
	FeeBps        int
	QuotedAtMs    int64
	Title         string
	OutcomeLabels [2]string
}

// ArbitOpportunity is a scanner-emitted, transient candidate trade.
type ArbitOpportunity struct {
	MarketID          string
	ProtocolA         Venue
	ProtocolB         Venue
	BuyYesOnA         bool
	YesPriceA         fixedpoint.Price18
	NoPriceB          fixedpoint.Price18
	TotalCost         fixedpoint.Price18
	GuaranteedPayout  fixedpoint.Price18
	SpreadBps         int
	GrossSpreadBps    int
	FeesDeducted      fixedpoint.Price18
	EstProfit         fixedpoint.USDT6
	LiquidityA        fixedpoint.USDT6
	LiquidityB        fixedpoint.USDT6
	PolarityFlip      bool
	QuotedAtMs        int64
	Shares            fixedpoint.USDT6
}

// Position is a ledger entry of a completed or partially completed open.
type Position struct {
	PositionID   string
	ProtocolA    Venue
	ProtocolB    Venue
	MarketID     string
	BoughtYesOnA bool
	SharesA      fixedpoint.USDT6
	SharesB      fixedpoint.USDT6
	CostA        fixedpoint.USDT6
	CostB        fixedpoint.USDT6
	OpenedAtMs   int64
	Closed       bool
}

// FillStatus enumerates possible order lifecycle states across all venues.
type FillStatus string

const (
	FillStatusFilled    FillStatus = "FILLED"
	FillStatusOpen      FillStatus = "OPEN"
	FillStatusPartial   FillStatus = "PARTIAL"
	FillStatusCancelled FillStatus = "CANCELLED"
	FillStatusExpired   FillStatus = "EXPIRED"
	FillStatusUnknown   FillStatus = "UNKNOWN"
)

// OrderSide mirrors the venue-agnostic EIP-712 order side encoding.
type OrderSide int

const (
	OrderSideBuy  OrderSide = 0
	OrderSideSell OrderSide = 1
)

// OrderParams describes a single-leg order request passed to a venue client.
type OrderParams struct {
	MarketID    string // fingerprint, used to resolve the exchange contract
	TokenID     string
	Side        OrderSide
	Price       fixedpoint.Price18
	Size        fixedpoint.USDT6 // denominated in shares
	IOC         bool
	SlippageBps int
}

// OrderResult is the uniform response from placeOrder across venues.
type OrderResult struct {
	Success bool
	OrderID string
	Status  FillStatus
	Error   error
}

// OpenOrder is a single row from getOpenOrders.
type OpenOrder struct {
	OrderID string
	TokenID string
	Side    OrderSide
	Price   fixedpoint.Price18
	Size    fixedpoint.USDT6
}

// PersistedState is the JSON snapshot written atomically by the agent loop.
type PersistedState struct {
	TradesExecuted int        `json:"tradesExecuted"`
	Positions      []Position `json:"positions"`
	LastScanMs     int64      `json:"lastScan"`
}

type persistedPosition struct {
	PositionID   string `json:"positionId"`
	ProtocolA    Venue  `json:"protocolA"`
	ProtocolB    Venue  `json:"protocolB"`
	MarketID     string `json:"marketId"`
	BoughtYesOnA bool   `json:"boughtYesOnA"`
	SharesA      string `json:"sharesA"`
	SharesB      string `json:"sharesB"`
	CostA        string `json:"costA"`
	CostB        string `json:"costB"`
	OpenedAtMs   int64  `json:"openedAt"`
	Closed       bool   `json:"closed"`
}

// MarshalJSON serializes big-value fields as decimal strings so the state
// file round-trips without ever passing through a float.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(persistedPosition{
		PositionID:   p.PositionID,
		ProtocolA:    p.ProtocolA,
		ProtocolB:    p.ProtocolB,
		MarketID:     p.MarketID,
		BoughtYesOnA: p.BoughtYesOnA,
		SharesA:      p.SharesA.String(),
		SharesB:      p.SharesB.String(),
		CostA:        p.CostA.String(),
		CostB:        p.CostB.String(),
		OpenedAtMs:   p.OpenedAtMs,
		Closed:       p.Closed,
	})
}

// UnmarshalJSON reconstructs a Position from its decimal-string wire form.
func (p *Position) UnmarshalJSON(data []byte) error {
	var aux persistedPosition
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	sharesA, err := fixedpoint.NewUSDTFromString(aux.SharesA)
	if err != nil {
		return fmt.Errorf("sharesA: %w", err)
	}
	sharesB, err := fixedpoint.NewUSDTFromString(aux.SharesB)
	if err != nil {
		return fmt.Errorf("sharesB: %w", err)
	}
	costA, err := fixedpoint.NewUSDTFromString(aux.CostA)
	if err != nil {
		return fmt.Errorf("costA: %w", err)
	}
	costB, err := fixedpoint.NewUSDTFromString(aux.CostB)
	if err != nil {
		return fmt.Errorf("costB: %w", err)
	}

	*p = Position{
		PositionID:   aux.PositionID,
		ProtocolA:    aux.ProtocolA,
		ProtocolB:    aux.ProtocolB,
		MarketID:     aux.MarketID,
		BoughtYesOnA: aux.BoughtYesOnA,
		SharesA:      sharesA,
		SharesB:      sharesB,
		CostA:        costA,
		CostB:        costB,
		OpenedAtMs:   aux.OpenedAtMs,
		Closed:       aux.Closed,
	}
	return nil
}
