package state

import (
	"path/filepath"
	"testing"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/types"
)

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	snapshot := types.PersistedState{
		TradesExecuted: 3,
		LastScanMs:     1700000000000,
		Positions: []types.Position{
			{
				PositionID: "pos-1",
				ProtocolA:  types.VenuePredict,
				ProtocolB:  types.VenueOpinion,
				MarketID:   "fp-1",
				SharesA:    fixedpoint.NewUSDTFromFloat(10),
				SharesB:    fixedpoint.NewUSDTFromFloat(10),
				CostA:      fixedpoint.NewUSDTFromFloat(4),
				CostB:      fixedpoint.NewUSDTFromFloat(5),
				Closed:     true,
			},
		},
	}

	if err := s.Save(snapshot); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.TradesExecuted != 3 {
		t.Errorf("TradesExecuted = %d, want 3", loaded.TradesExecuted)
	}
	if loaded.LastScanMs != 1700000000000 {
		t.Errorf("LastScanMs = %d, want 1700000000000", loaded.LastScanMs)
	}
	if len(loaded.Positions) != 1 || loaded.Positions[0].PositionID != "pos-1" {
		t.Fatalf("unexpected positions: %+v", loaded.Positions)
	}
	if !loaded.Positions[0].CostA.Add(loaded.Positions[0].CostB).GreaterThan(fixedpoint.ZeroUSDT()) {
		t.Error("expected decimal fields to round-trip")
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nonexistent.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TradesExecuted != 0 || len(loaded.Positions) != 0 {
		t.Errorf("expected zero-value snapshot, got %+v", loaded)
	}
}

func TestSaveOverwrites(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_ = s.Save(types.PersistedState{TradesExecuted: 1})
	_ = s.Save(types.PersistedState{TradesExecuted: 2})

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TradesExecuted != 2 {
		t.Errorf("TradesExecuted = %d, want 2 (latest save)", loaded.TradesExecuted)
	}
}
