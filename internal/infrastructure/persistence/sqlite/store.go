// Package sqlite implements an embedded penalty state store backed by
// modernc.org/sqlite (pure Go, no cgo). Default storage backend for
// single-node deployments: no external database to run, still survives
// process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
)

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS penalty_states (
			group_id   TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_penalty_states_updated ON penalty_states(updated_at)`,
	}
}

// Store persists penalty state blobs in a local SQLite database.
// It implements penalty.StateStore.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// A single writer connection avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: migrate: %w", err)
		}
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load fetches the state blob for a group. A missing row or an undecodable
// blob yields a fresh default state.
func (s *Store) Load(ctx context.Context, group penalty.GroupID) (*penalty.PenaltyState, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM penalty_states WHERE group_id = ?`, string(group),
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return penalty.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load state for %s: %w", group, err)
	}

	state, err := penalty.UnmarshalState(blob)
	if err != nil {
		s.log.Warn("stored penalty state is not decodable, starting fresh",
			logger.GroupID(string(group)),
			logger.Err(err),
		)
		return penalty.NewState(), nil
	}
	return state, nil
}

// Save upserts the full state blob for a group.
func (s *Store) Save(ctx context.Context, group penalty.GroupID, state *penalty.PenaltyState) error {
	blob, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("sqlite: encode state for %s: %w", group, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO penalty_states (group_id, state, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(group_id) DO UPDATE SET
			state      = excluded.state,
			updated_at = datetime('now')
	`, string(group), string(blob))
	if err != nil {
		return fmt.Errorf("sqlite: save state for %s: %w", group, err)
	}
	return nil
}

// Groups returns the group IDs that have stored state, sorted by key.
func (s *Store) Groups(ctx context.Context) ([]penalty.GroupID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id FROM penalty_states ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list groups: %w", err)
	}
	defer rows.Close()

	var groups []penalty.GroupID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan group row: %w", err)
		}
		groups = append(groups, penalty.GroupID(id))
	}
	return groups, rows.Err()
}
