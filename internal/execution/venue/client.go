// Package venue holds the execution-client capability set (C9) each venue
// adapter must satisfy, and one implementation per venue (Predict,
// Probable, Opinion).
package venue

import (
	"context"

	"github.com/marketarb/agent/pkg/types"
)

// Client is the uniform capability surface the two-leg executor drives.
// Every venue adapter implements the full set; authenticate and
// ensureApprovals are idempotent and safe to call repeatedly.
type Client interface {
	// Venue identifies which platform this client talks to.
	Venue() types.Venue

	// Authenticate acquires or refreshes credentials. Concurrent callers
	// during a refresh observe the same single in-flight attempt.
	Authenticate(ctx context.Context) error

	// EnsureApprovals checks on-chain allowances for the venue's exchange
	// contract (and, for proxy-backed venues, proxy ownership/threshold
	// and funding) and submits whatever approval/sweep transactions are
	// missing.
	EnsureApprovals(ctx context.Context) error

	// PlaceOrder signs and submits a single-leg limit order.
	PlaceOrder(ctx context.Context, params types.OrderParams) (types.OrderResult, error)

	// CancelOrder cancels a resting order. In dry-run mode this returns
	// true without making a network call.
	CancelOrder(ctx context.Context, orderID string, tokenID string) (bool, error)

	// GetOrderStatus maps a venue order's lifecycle state to the uniform
	// types.FillStatus enum.
	GetOrderStatus(ctx context.Context, orderID string) (types.FillStatus, error)

	// GetOpenOrders lists the account's resting orders on this venue.
	GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error)

	// SetNonce lets the agent recover a client-tracked nonce after manual
	// intervention. A no-op on venues with server-managed (salt-based)
	// replay protection.
	SetNonce(n uint64)
}

// ExchangeAddress resolves the venue's order-settlement contract for a
// given fingerprinted market, used as the EIP-712 domain's
// verifyingContract. Vault-mode configuration overrides this per market;
// CLOB mode uses the venue's single well-known exchange address.
type ExchangeAddressResolver func(marketID string) string
