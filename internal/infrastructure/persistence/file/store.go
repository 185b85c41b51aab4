// Package file implements a JSON-file StateStore: one <group>.json per group
// under a base directory. This is the closest durable equivalent of the
// browser local-storage transport the engine was originally written against.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
)

// Store persists one state file per group.
type Store struct {
	dir string
	log *logger.Logger
}

// NewStore creates the base directory if needed and returns the store.
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: failed to create state directory: %w", err)
	}
	return &Store{
		dir: dir,
		log: log.With(logger.Component("file_store")),
	}, nil
}

// path returns the state file path for a group. Group IDs are restricted to
// a safe charset by the domain, so they can be used as file names directly.
func (s *Store) path(group penalty.GroupID) string {
	return filepath.Join(s.dir, group.String()+".json")
}

// Load reads the group's state file. A missing or unparseable file yields
// the default empty state.
func (s *Store) Load(_ context.Context, group penalty.GroupID) (*penalty.PenaltyState, error) {
	data, err := os.ReadFile(s.path(group))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return penalty.NewState(), nil
		}
		return nil, fmt.Errorf("file: failed to read state: %w", err)
	}

	state, err := penalty.UnmarshalState(data)
	if err != nil {
		s.log.Warn("state file is corrupt, starting from empty state",
			logger.GroupID(group.String()), logger.Err(err))
		return penalty.NewState(), nil
	}
	return state, nil
}

// Save writes the state atomically: to a temp file in the same directory,
// then rename over the target, so a crash mid-write never leaves a corrupt
// blob behind.
func (s *Store) Save(_ context.Context, group penalty.GroupID, state *penalty.PenaltyState) error {
	data, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("file: failed to serialize state: %w", err)
	}

	target := s.path(group)
	tmp, err := os.CreateTemp(s.dir, group.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("file: failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("file: failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("file: failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("file: failed to replace state file: %w", err)
	}
	return nil
}
