package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rendita/internal/core"
	"rendita/internal/store"
)

// SeedFile is looked up in the data directory by NewFromDir.
const SeedFile = "portfolio.json"

type Store struct {
	mu    sync.Mutex
	state *core.PortfolioState
}

func New() *Store {
	return &Store{}
}

// NewWithState returns a store already holding state.
func NewWithState(state core.PortfolioState) *Store {
	s := state.Clone()
	return &Store{state: &s}
}

// NewFromDir seeds the store from base/portfolio.json when the file exists.
// A missing file yields an empty store; a malformed one is an error.
func NewFromDir(base string) (*Store, error) {
	path := filepath.Join(base, SeedFile)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var state core.PortfolioState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed %s: %w", path, err)
	}
	return NewWithState(state), nil
}

// Load returns a copy of the stored state or store.ErrNotFound.
func (s *Store) Load(_ context.Context) (core.PortfolioState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return core.PortfolioState{}, store.ErrNotFound
	}
	return s.state.Clone(), nil
}

// Save replaces the stored state.
func (s *Store) Save(_ context.Context, state core.PortfolioState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	c := state.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &c
	return nil
}

func (s *Store) Ping(_ context.Context) error { return nil }
