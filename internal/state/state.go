// Package state persists the agent loop's PersistedState snapshot to a
// single JSON file, using the write-tmp-then-rename pattern so a crash
// mid-save never leaves a corrupt or half-written file behind.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marketarb/agent/pkg/types"
)

// Store persists a single types.PersistedState snapshot to a JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open creates a Store backed by the given file path, creating its parent
// directory if necessary.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Save atomically writes the snapshot, replacing any prior one.
func (s *Store) Save(snapshot types.PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load restores the last saved snapshot. It returns a zero-value snapshot
// and no error if no state has been persisted yet.
func (s *Store) Load() (types.PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.PersistedState{}, nil
		}
		return types.PersistedState{}, fmt.Errorf("read state: %w", err)
	}

	var snapshot types.PersistedState
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return types.PersistedState{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return snapshot, nil
}
