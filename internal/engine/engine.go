// Package engine exposes the penalty tracking operations for one group:
// rule and record CRUD, the monthly reset policy, and derived statistics.
// It owns the group's PenaltyState and is its single logical writer; every
// mutation runs validate -> mutate in memory -> save before returning.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/internal/domain/shared"
	"github.com/penalty-hub/penalty-engine/pkg/clock"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
)

// Reset trigger labels, used in logs and metrics.
const (
	ResetTriggerAuto   = "auto"
	ResetTriggerManual = "manual"
)

// Engine manages the penalty state of a single group. All exported methods
// are safe for concurrent use; a mutex serializes mutations so no two calls
// interleave on the same state.
//
// On a save failure the in-memory mutation is kept (local state is the
// source of truth between sync attempts) and the error satisfies
// shared.IsPersistence. Callers may retry the save with Flush without
// re-applying the mutation.
type Engine struct {
	mu    sync.Mutex
	group penalty.GroupID
	store penalty.StateStore
	clock clock.Clock
	log   *logger.Logger

	state *penalty.PenaltyState
	dirty bool // true when the in-memory state is ahead of the stored blob
}

// New loads the group's state and runs the automatic reset check once, the
// way the original engine evaluates the policy on every state load.
func New(ctx context.Context, group penalty.GroupID, store penalty.StateStore, clk clock.Clock, log *logger.Logger) (*Engine, error) {
	if !group.IsValid() {
		return nil, shared.NewDomainError("engine", "New", shared.ErrInvalidInput, "invalid group ID")
	}
	if log == nil {
		log = logger.Default()
	}

	state, err := store.Load(ctx, group)
	if err != nil {
		return nil, shared.WrapError("engine", "New", shared.ErrPersistence, "failed to load state", err)
	}
	state.Normalize()

	e := &Engine{
		group: group,
		store: store,
		clock: clk,
		log:   log.With(logger.Component("engine"), logger.GroupID(group.String())),
		state: state,
	}

	if _, err := e.CheckAndApplyReset(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Group returns the group this engine belongs to.
func (e *Engine) Group() penalty.GroupID {
	return e.group
}

// save persists the current state. Must be called with the mutex held.
func (e *Engine) save(ctx context.Context, domain, op string) error {
	if err := e.store.Save(ctx, e.group, e.state); err != nil {
		e.dirty = true
		e.log.Error("state save failed", logger.Operation(op), logger.Err(err))
		return shared.WrapError(domain, op, shared.ErrPersistence, "failed to save state", err)
	}
	e.dirty = false
	return nil
}

// Flush re-attempts saving the in-memory state after an earlier persistence
// failure. It is a no-op when the state is already durable.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.dirty {
		return nil
	}
	return e.save(ctx, "engine", "Flush")
}

// Dirty reports whether the in-memory state has mutations that are not yet
// durable.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// AddRule validates and appends a new violation rule, persists, and returns
// the created rule.
func (e *Engine) AddRule(ctx context.Context, violationType penalty.ViolationType, description, penaltyContent string, demerits int) (penalty.ViolationRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, err := penalty.NewRule(penalty.RuleID(uuid.NewString()), violationType, description, penaltyContent, demerits)
	if err != nil {
		return penalty.ViolationRule{}, shared.WrapError("rule", "Add", shared.ErrValidation, "invalid rule", err)
	}

	e.state.AddRule(rule)
	e.log.Info("rule added",
		logger.RuleID(rule.ID.String()),
		logger.ViolationType(rule.ViolationType.String()),
		logger.Demerits(rule.Demerits))

	if err := e.save(ctx, "rule", "Add"); err != nil {
		return rule, err
	}
	return rule, nil
}

// DeleteRule removes the rule with the given ID and reports whether a rule
// was actually removed. Deleting a rule never touches existing records.
func (e *Engine) DeleteRule(ctx context.Context, id penalty.RuleID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.RemoveRule(id) {
		return false, nil
	}
	e.log.Info("rule deleted", logger.RuleID(id.String()))

	if err := e.save(ctx, "rule", "Delete"); err != nil {
		return true, err
	}
	return true, nil
}

// Rules returns the rules in insertion order.
func (e *Engine) Rules() []penalty.ViolationRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]penalty.ViolationRule, len(e.state.Rules))
	copy(out, e.state.Rules)
	return out
}

// DefaultDemeritsFor returns the demerits of the first rule matching the
// violation type; the boolean is false when no rule matches.
func (e *Engine) DefaultDemeritsFor(violationType penalty.ViolationType) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.DefaultDemeritsFor(violationType)
}

// AddRecord validates and appends a new penalty record, persists, and
// returns the created record. The demerits value must already be resolved by
// the caller (rule default or manual entry); no implicit defaulting happens
// here.
func (e *Engine) AddRecord(ctx context.Context, memberName string, violationType penalty.ViolationType, date penalty.Date, demerits int, memo string) (penalty.PenaltyRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := penalty.NewRecord(penalty.RecordID(uuid.NewString()), memberName, violationType, date, demerits, memo, e.clock.Now())
	if err != nil {
		return penalty.PenaltyRecord{}, shared.WrapError("record", "Add", shared.ErrValidation, "invalid record", err)
	}

	e.state.AddRecord(record)
	e.log.Info("record added",
		logger.RecordID(record.ID.String()),
		logger.MemberName(record.MemberName),
		logger.ViolationType(record.ViolationType.String()),
		logger.Demerits(record.Demerits))

	if err := e.save(ctx, "record", "Add"); err != nil {
		return record, err
	}
	return record, nil
}

// DeleteRecord removes the record with the given ID and reports whether a
// record was actually removed.
func (e *Engine) DeleteRecord(ctx context.Context, id penalty.RecordID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.RemoveRecord(id) {
		return false, nil
	}
	e.log.Info("record deleted", logger.RecordID(id.String()))

	if err := e.save(ctx, "record", "Delete"); err != nil {
		return true, err
	}
	return true, nil
}

// Records returns the records in insertion order.
func (e *Engine) Records() []penalty.PenaltyRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]penalty.PenaltyRecord, len(e.state.Records))
	copy(out, e.state.Records)
	return out
}

// MonthlyResetEnabled returns the current automatic reset setting.
func (e *Engine) MonthlyResetEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.MonthlyResetEnabled
}

// SetMonthlyReset sets the automatic reset flag and persists. It performs no
// immediate reset: it only changes whether future checks are subject to the
// policy. The returned value is the new setting.
func (e *Engine) SetMonthlyReset(ctx context.Context, enabled bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.MonthlyResetEnabled = enabled
	e.log.Info("monthly reset setting changed", logger.Bool("enabled", enabled))

	if err := e.save(ctx, "reset", "Toggle"); err != nil {
		return enabled, err
	}
	return enabled, nil
}

// ToggleMonthlyReset flips the automatic reset flag and persists, returning
// the new value.
func (e *Engine) ToggleMonthlyReset(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.MonthlyResetEnabled = !e.state.MonthlyResetEnabled
	enabled := e.state.MonthlyResetEnabled
	e.log.Info("monthly reset setting changed", logger.Bool("enabled", enabled))

	if err := e.save(ctx, "reset", "Toggle"); err != nil {
		return enabled, err
	}
	return enabled, nil
}

// CheckAndApplyReset evaluates the monthly reset policy and fires the reset
// when due: clear records, stamp LastResetAt, one save. It reports whether a
// reset fired. Idempotent within a calendar month.
func (e *Engine) CheckAndApplyReset(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	policy := penalty.ResetPolicy{Clock: e.clock}
	if !policy.Due(e.state) {
		return false, nil
	}

	cleared := len(e.state.Records)
	stamp := policy.Apply(e.state)
	e.log.Info("monthly reset fired",
		logger.ResetTrigger(ResetTriggerAuto),
		logger.Int("records_cleared", cleared),
		logger.Time("last_reset_at", stamp))

	if err := e.save(ctx, "reset", "Check"); err != nil {
		return true, err
	}
	return true, nil
}

// ResetNow unconditionally clears all records and stamps LastResetAt,
// regardless of the automatic reset setting. It returns the stamp.
func (e *Engine) ResetNow(ctx context.Context) (time.Time, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cleared := len(e.state.Records)
	e.state.Reset(e.clock.Now())
	stamp := *e.state.LastResetAt
	e.log.Info("manual reset fired",
		logger.ResetTrigger(ResetTriggerManual),
		logger.Int("records_cleared", cleared),
		logger.Time("last_reset_at", stamp))

	if err := e.save(ctx, "reset", "Now"); err != nil {
		return stamp, err
	}
	return stamp, nil
}

// Stats recomputes the aggregates from the current records. Pure read: no
// caching, no side effects.
func (e *Engine) Stats() penalty.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.clock.YearMonthOf(e.clock.Now())
	return penalty.ComputeStats(e.state.Records, current)
}

// Snapshot returns a deep copy of the full state for read-only consumers.
func (e *Engine) Snapshot() *penalty.PenaltyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}
