package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/marketarb/agent/pkg/types"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StorePosition pretty-prints an opened position to console.
func (c *ConsoleStorage) StorePosition(ctx context.Context, pos types.Position) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("POSITION OPENED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", pos.PositionID)
	fmt.Printf("Market:   %s\n", pos.MarketID)
	fmt.Printf("Legs:     %s / %s\n", pos.ProtocolA, pos.ProtocolB)
	fmt.Printf("Opened:   %s\n", time.UnixMilli(pos.OpenedAtMs).UTC().Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  SharesA: %s  CostA: %s\n", pos.SharesA.String(), pos.CostA.String())
	fmt.Printf("  SharesB: %s  CostB: %s\n", pos.SharesB.String(), pos.CostB.String())
	if pos.Closed {
		fmt.Printf("  Status:  CLOSED\n")
	} else {
		fmt.Printf("  Status:  OPEN (stranded leg pending reconciliation)\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// MarkClosed logs a position closure to console.
func (c *ConsoleStorage) MarkClosed(ctx context.Context, positionID string) error {
	fmt.Printf("\nPOSITION CLOSED: %s\n", positionID)
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
