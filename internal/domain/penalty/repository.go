package penalty

import (
	"context"
	"regexp"
)

// GroupID identifies the group a penalty state belongs to. Every group has
// exactly one state blob; independent groups never share state.
type GroupID string

// Group IDs double as storage keys (file names, row keys), so the charset is
// restricted.
var groupIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// IsValid checks if the group ID is well-formed.
func (g GroupID) IsValid() bool {
	return groupIDPattern.MatchString(string(g))
}

// String returns the string representation of the group ID.
func (g GroupID) String() string {
	return string(g)
}

// StateStore loads and saves one serializable PenaltyState blob per group.
// This interface is implemented by the infrastructure layer; the domain and
// engine never touch the physical storage medium directly.
//
// Load returns the default empty state when nothing is stored for the group
// or the stored blob fails to parse. Save replaces the stored blob; a save
// failure is reported upward and never retried by the engine itself.
type StateStore interface {
	Load(ctx context.Context, group GroupID) (*PenaltyState, error)
	Save(ctx context.Context, group GroupID, state *PenaltyState) error
}
