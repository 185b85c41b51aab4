// Package memory implements an in-memory StateStore. It backs tests and
// single-process deployments that do not need durability.
package memory

import (
	"context"
	"sync"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
)

// Store keeps one serialized state blob per group in memory. Storing the
// marshaled bytes rather than the live object exercises the same wire shape
// as the durable adapters, and guarantees callers never share state with the
// store.
type Store struct {
	mu    sync.RWMutex
	blobs map[penalty.GroupID][]byte
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{blobs: make(map[penalty.GroupID][]byte)}
}

// Load returns the stored state for the group, or the default empty state
// when nothing is stored or the blob fails to parse.
func (s *Store) Load(_ context.Context, group penalty.GroupID) (*penalty.PenaltyState, error) {
	s.mu.RLock()
	data, ok := s.blobs[group]
	s.mu.RUnlock()

	if !ok {
		return penalty.NewState(), nil
	}
	state, err := penalty.UnmarshalState(data)
	if err != nil {
		return penalty.NewState(), nil
	}
	return state, nil
}

// Save stores the serialized state for the group.
func (s *Store) Save(_ context.Context, group penalty.GroupID, state *penalty.PenaltyState) error {
	data, err := state.Marshal()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.blobs[group] = data
	s.mu.Unlock()
	return nil
}

// Len returns the number of groups with a stored state.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
