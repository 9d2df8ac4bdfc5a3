package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/types"
)

func testPosition() types.Position {
	return types.Position{
		PositionID:   "pos-123",
		ProtocolA:    types.VenuePredict,
		ProtocolB:    types.VenueProbable,
		MarketID:     "fp-market-1",
		BoughtYesOnA: true,
		SharesA:      fixedpoint.NewUSDTFromFloat(10),
		SharesB:      fixedpoint.NewUSDTFromFloat(10),
		CostA:        fixedpoint.NewUSDTFromFloat(4),
		CostB:        fixedpoint.NewUSDTFromFloat(5),
		OpenedAtMs:   1700000000000,
		Closed:       true,
	}
}

func TestConsoleStorage_New(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	storage := NewConsoleStorage(logger)

	if storage == nil {
		t.Fatal("expected non-nil storage")
	}

	if storage.logger == nil {
		t.Error("expected non-nil logger")
	}
}

func TestConsoleStorage_StorePosition(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	pos := testPosition()
	ctx := context.Background()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := storage.StorePosition(ctx, pos)

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	output := buf.String()

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("POSITION OPENED")) {
		t.Error("expected output to contain 'POSITION OPENED'")
	}

	if !bytes.Contains([]byte(output), []byte(pos.PositionID)) {
		t.Errorf("expected output to contain position id %s", pos.PositionID)
	}
}

func TestConsoleStorage_MarkClosed(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	if err := storage.MarkClosed(context.Background(), "pos-123"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestConsoleStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	err := storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}

func TestPostgresStorage_StorePosition(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	pos := testPosition()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO positions").
		WithArgs(
			pos.PositionID,
			pos.MarketID,
			string(pos.ProtocolA),
			string(pos.ProtocolB),
			pos.BoughtYesOnA,
			pos.SharesA.String(),
			pos.SharesB.String(),
			pos.CostA.String(),
			pos.CostB.String(),
			sqlmock.AnyArg(),
			pos.Closed,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StorePosition(ctx, pos)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StorePosition_Error(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	pos := testPosition()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO positions").
		WithArgs(
			pos.PositionID,
			pos.MarketID,
			string(pos.ProtocolA),
			string(pos.ProtocolB),
			pos.BoughtYesOnA,
			pos.SharesA.String(),
			pos.SharesB.String(),
			pos.CostA.String(),
			pos.CostB.String(),
			sqlmock.AnyArg(),
			pos.Closed,
		).
		WillReturnError(sqlmock.ErrCancelled)

	err = storage.StorePosition(ctx, pos)
	if err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_MarkClosed(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	mock.ExpectExec("UPDATE positions SET closed").
		WithArgs("pos-123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := storage.MarkClosed(context.Background(), "pos-123"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	mock.ExpectClose()

	err = storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStorage_Interface(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	var _ Storage = NewConsoleStorage(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ Storage = &PostgresStorage{db: db, logger: logger}
}
