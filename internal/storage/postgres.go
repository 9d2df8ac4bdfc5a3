package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/marketarb/agent/pkg/types"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StorePosition persists a newly opened two-leg position in PostgreSQL.
func (p *PostgresStorage) StorePosition(ctx context.Context, pos types.Position) error {
	query := `
		INSERT INTO positions (
			id, market_id, protocol_a, protocol_b, bought_yes_on_a,
			shares_a, shares_b, cost_a, cost_b, opened_at, closed
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		pos.PositionID,
		pos.MarketID,
		string(pos.ProtocolA),
		string(pos.ProtocolB),
		pos.BoughtYesOnA,
		pos.SharesA.String(),
		pos.SharesB.String(),
		pos.CostA.String(),
		pos.CostB.String(),
		time.UnixMilli(pos.OpenedAtMs).UTC(),
		pos.Closed,
	)

	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}

	p.logger.Debug("position-stored",
		zap.String("position-id", pos.PositionID),
		zap.String("market-id", pos.MarketID),
		zap.Bool("closed", pos.Closed))

	return nil
}

// MarkClosed flips a position's closed flag in PostgreSQL.
func (p *PostgresStorage) MarkClosed(ctx context.Context, positionID string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE positions SET closed = true WHERE id = $1`, positionID)
	if err != nil {
		return fmt.Errorf("mark position closed: %w", err)
	}

	p.logger.Debug("position-closed", zap.String("position-id", positionID))
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
