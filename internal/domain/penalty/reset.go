package penalty

import (
	"time"

	"github.com/penalty-hub/penalty-engine/pkg/clock"
)

// ResetPolicy decides whether an automatic monthly reset must fire. The check
// is purely reactive: there is no background timer, it runs when state is
// loaded (or explicitly re-checked) and is idempotent within a calendar month.
type ResetPolicy struct {
	Clock clock.Clock
}

// Due reports whether the automatic reset should fire for the given state:
// the feature is enabled, and either no reset has ever fired or the last one
// fired in a different calendar month than now.
func (p ResetPolicy) Due(state *PenaltyState) bool {
	if !state.MonthlyResetEnabled {
		return false
	}
	if state.LastResetAt == nil {
		return true
	}
	current := p.Clock.YearMonthOf(p.Clock.Now())
	return p.Clock.YearMonthOf(*state.LastResetAt) != current
}

// Apply clears the records and stamps LastResetAt with the clock's now, as a
// single in-memory update. It returns the stamp. The caller persists the
// state with a single save afterwards.
func (p ResetPolicy) Apply(state *PenaltyState) time.Time {
	now := p.Clock.Now()
	state.Reset(now)
	return *state.LastResetAt
}
