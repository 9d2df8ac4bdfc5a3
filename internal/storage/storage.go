package storage

import (
	"context"

	"github.com/marketarb/agent/pkg/types"
)

// Storage is the interface for persisting the two-leg position ledger.
type Storage interface {
	// StorePosition records a newly opened position (full or stranded).
	StorePosition(ctx context.Context, pos types.Position) error

	// MarkClosed marks a previously stored position as closed.
	MarkClosed(ctx context.Context, positionID string) error

	// Close closes the storage connection.
	Close() error
}
