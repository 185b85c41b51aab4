package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/pkg/clock"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
)

// Registry creates and caches one Engine per group, sharing a single state
// store and clock. Engines are created lazily on first access so the reset
// check naturally runs on each group's first load of a session.
type Registry struct {
	mu      sync.Mutex
	engines map[penalty.GroupID]*Engine

	store penalty.StateStore
	clock clock.Clock
	log   *logger.Logger
}

// NewRegistry creates a Registry over the given store and clock.
func NewRegistry(store penalty.StateStore, clk clock.Clock, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Default()
	}
	return &Registry{
		engines: make(map[penalty.GroupID]*Engine),
		store:   store,
		clock:   clk,
		log:     log,
	}
}

// Get returns the engine for the group, creating it on first access.
func (r *Registry) Get(ctx context.Context, group penalty.GroupID) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[group]; ok {
		return e, nil
	}

	e, err := New(ctx, group, r.store, r.clock, r.log)
	if err != nil {
		return nil, err
	}
	r.engines[group] = e
	return e, nil
}

// Groups returns the groups with a live engine, sorted for determinism.
func (r *Registry) Groups() []penalty.GroupID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]penalty.GroupID, 0, len(r.engines))
	for group := range r.engines {
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
