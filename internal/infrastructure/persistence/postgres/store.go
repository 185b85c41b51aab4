package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
	"github.com/penalty-hub/penalty-engine/pkg/retry"
)

// Store persists penalty state in the penalty_states table, one JSONB row
// per group. It implements penalty.StateStore.
type Store struct {
	conn    *Connection
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewStore creates a Store on top of an established connection.
func NewStore(conn *Connection, log *logger.Logger) *Store {
	return &Store{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
		log:     log,
	}
}

// Load fetches the state blob for a group. A missing row or an undecodable
// blob yields a fresh default state; only transport failures are errors.
func (s *Store) Load(ctx context.Context, group penalty.GroupID) (*penalty.PenaltyState, error) {
	const query = `SELECT state FROM penalty_states WHERE group_id = $1`

	var blob []byte
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		row := s.conn.QueryRow(ctx, query, string(group))
		if err := row.Scan(&blob); err != nil {
			if IsNoRows(err) {
				return retry.Permanent(errNoState)
			}
			return retry.Retryable(err)
		}
		return nil
	})
	if errors.Is(err, errNoState) {
		return penalty.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load state for %s: %w", group, err)
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
	const query = `
		INSERT INTO penalty_states (group_id, state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (group_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
	`

	blob, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("postgres: encode state for %s: %w", group, err)
	}

	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		if _, execErr := s.conn.Exec(ctx, query, string(group), blob); execErr != nil {
			return retry.Retryable(execErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres: save state for %s: %w", group, err)
	}
	return nil
}

// errNoState is an internal marker for a group that has never been saved.
var errNoState = errors.New("postgres: no stored state")
