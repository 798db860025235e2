package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps the document in process memory behind a single mutex.
// Used in tests and for local development without Postgres. Update applies
// the callback to a deep copy and swaps it in on success, so a failing
// callback cannot leave partial writes behind.
type MemoryStore struct {
	mu    sync.Mutex
	state *State
}

// NewMemoryStore returns a store holding an empty document
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: NewState()}
}

// Update implements Store
func (m *MemoryStore) Update(ctx context.Context, fn func(*State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	draft, err := cloneState(m.state)
	if err != nil {
		return err
	}
	if err := fn(draft); err != nil {
		return err
	}
	m.state = draft
	return nil
}

// View implements Store
func (m *MemoryStore) View(ctx context.Context, fn func(*State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

// cloneState deep-copies the document through its JSON form, the same shape
// the durable store round-trips it through.
func cloneState(s *State) (*State, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}
	clone := &State{}
	if err := json.Unmarshal(raw, clone); err != nil {
		return nil, fmt.Errorf("failed to restore state snapshot: %w", err)
	}
	clone.normalize()
	return clone, nil
}
