package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/internal/domain/shared"
	"github.com/penalty-hub/penalty-engine/pkg/clock"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
)

// stubStore keeps serialized blobs in memory and can be told to fail saves.
type stubStore struct {
	blobs    map[penalty.GroupID][]byte
	failSave bool
	saves    int
}

func newStubStore() *stubStore {
	return &stubStore{blobs: make(map[penalty.GroupID][]byte)}
}

func (s *stubStore) Load(_ context.Context, group penalty.GroupID) (*penalty.PenaltyState, error) {
	data, ok := s.blobs[group]
	if !ok {
		return penalty.NewState(), nil
	}
	state, err := penalty.UnmarshalState(data)
	if err != nil {
		return penalty.NewState(), nil
	}
	return state, nil
}

func (s *stubStore) Save(_ context.Context, group penalty.GroupID, state *penalty.PenaltyState) error {
	s.saves++
	if s.failSave {
		return errors.New("disk full")
	}
	data, err := state.Marshal()
	if err != nil {
		return err
	}
	s.blobs[group] = data
	return nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

func newTestEngine(t *testing.T, store penalty.StateStore, clk clock.Clock) *Engine {
	t.Helper()
	e, err := New(context.Background(), "class-3b", store, clk, quietLogger())
	require.NoError(t, err)
	return e
}

func aprilClock() *clock.Fixed {
	return clock.NewFixed(time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC))
}

func TestNewRejectsInvalidGroup(t *testing.T) {
	_, err := New(context.Background(), "../oops", newStubStore(), aprilClock(), quietLogger())
	assert.True(t, shared.IsValidation(err))
}

func TestAddRuleAndListRules(t *testing.T) {
	e := newTestEngine(t, newStubStore(), aprilClock())
	ctx := context.Background()

	rule, err := e.AddRule(ctx, penalty.ViolationTardiness, "late to practice", "one cleaning duty", 3)
	require.NoError(t, err)
	assert.True(t, rule.ID.IsValid())

	rules := e.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, rule, rules[0])
}

func TestAddRuleValidationError(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store, aprilClock())
	savesBefore := store.saves

	_, err := e.AddRule(context.Background(), penalty.ViolationTardiness, "", "penalty", 3)
	assert.True(t, shared.IsValidation(err))
	assert.ErrorIs(t, err, penalty.ErrEmptyDescription)

	// A rejected mutation is never partially applied and never saved.
	assert.Empty(t, e.Rules())
	assert.Equal(t, savesBefore, store.saves)
}

func TestDefaultDemeritsForFirstAddedWins(t *testing.T) {
	e := newTestEngine(t, newStubStore(), aprilClock())
	ctx := context.Background()

	_, err := e.AddRule(ctx, penalty.ViolationTardiness, "first rule", "penalty", 1)
	require.NoError(t, err)
	_, err = e.AddRule(ctx, penalty.ViolationTardiness, "second rule", "penalty", 5)
	require.NoError(t, err)

	demerits, ok := e.DefaultDemeritsFor(penalty.ViolationTardiness)
	assert.True(t, ok)
	assert.Equal(t, 1, demerits)

	_, ok = e.DefaultDemeritsFor(penalty.ViolationPhoneUse)
	assert.False(t, ok)
}

func TestAddAndDeleteRecord(t *testing.T) {
	e := newTestEngine(t, newStubStore(), aprilClock())
	ctx := context.Background()
	date := penalty.NewDate(2026, time.April, 14)

	record, err := e.AddRecord(ctx, "Minji", penalty.ViolationPhoneUse, date, 2, "during lecture")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC), record.CreatedAt)

	deleted, err := e.DeleteRecord(ctx, "no-such-id")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, e.Records(), 1)

	deleted, err = e.DeleteRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, e.Records())
}

func TestStatePersistsAcrossEngines(t *testing.T) {
	store := newStubStore()
	ctx := context.Background()

	e1 := newTestEngine(t, store, aprilClock())
	rule, err := e1.AddRule(ctx, penalty.ViolationOther, "misc", "warning", 1)
	require.NoError(t, err)
	_, err = e1.AddRecord(ctx, "Hana", penalty.ViolationOther, penalty.NewDate(2026, time.April, 10), 1, "")
	require.NoError(t, err)

	e2 := newTestEngine(t, store, aprilClock())
	require.Len(t, e2.Rules(), 1)
	assert.Equal(t, rule, e2.Rules()[0])
	assert.Len(t, e2.Records(), 1)
}

func TestAutomaticResetOnLoad(t *testing.T) {
	store := newStubStore()
	ctx := context.Background()
	fixed := aprilClock()

	e1 := newTestEngine(t, store, fixed)
	_, err := e1.SetMonthlyReset(ctx, true)
	require.NoError(t, err)
	_, err = e1.AddRecord(ctx, "Minji", penalty.ViolationTardiness, penalty.NewDate(2026, time.April, 14), 3, "")
	require.NoError(t, err)

	// First check in the same session: LastResetAt is still nil, so the
	// policy fires immediately.
	fired, err := e1.CheckAndApplyReset(ctx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Empty(t, e1.Records())

	// Second consecutive check in the same month makes no further change.
	fired, err = e1.CheckAndApplyReset(ctx)
	require.NoError(t, err)
	assert.False(t, fired)

	// Next month, a fresh load fires exactly once.
	_, err = e1.AddRecord(ctx, "Minji", penalty.ViolationTardiness, penalty.NewDate(2026, time.April, 20), 3, "")
	require.NoError(t, err)
	fixed.AdvanceMonths(1)

	e2 := newTestEngine(t, store, fixed)
	assert.Empty(t, e2.Records())
	snap := e2.Snapshot()
	require.NotNil(t, snap.LastResetAt)
	assert.Equal(t, time.May, snap.LastResetAt.Month())

	fired, err = e2.CheckAndApplyReset(ctx)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestToggleDoesNotResetImmediately(t *testing.T) {
	e := newTestEngine(t, newStubStore(), aprilClock())
	ctx := context.Background()

	_, err := e.AddRecord(ctx, "Minji", penalty.ViolationTardiness, penalty.NewDate(2026, time.April, 14), 3, "")
	require.NoError(t, err)

	enabled, err := e.ToggleMonthlyReset(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Len(t, e.Records(), 1)

	enabled, err = e.ToggleMonthlyReset(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestManualResetIgnoresToggle(t *testing.T) {
	e := newTestEngine(t, newStubStore(), aprilClock())
	ctx := context.Background()

	_, err := e.AddRecord(ctx, "Minji", penalty.ViolationTardiness, penalty.NewDate(2026, time.April, 14), 3, "")
	require.NoError(t, err)
	require.False(t, e.MonthlyResetEnabled())

	stamp, err := e.ResetNow(ctx)
	require.NoError(t, err)
	assert.Empty(t, e.Records())
	assert.Equal(t, time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC), stamp)
}

func TestStatsReflectCurrentRecords(t *testing.T) {
	e := newTestEngine(t, newStubStore(), aprilClock())
	ctx := context.Background()

	_, err := e.AddRecord(ctx, "A", penalty.ViolationTardiness, penalty.NewDate(2026, time.April, 1), 3, "")
	require.NoError(t, err)
	_, err = e.AddRecord(ctx, "B", penalty.ViolationTardiness, penalty.NewDate(2026, time.March, 31), 5, "")
	require.NoError(t, err)

	stats := e.Stats()
	assert.Equal(t, 2, stats.TotalRecords)
	assert.Equal(t, 1, stats.ThisMonthRecords)
	assert.Equal(t, "B", stats.MemberRanking[0].MemberName)

	_, err = e.ResetNow(ctx)
	require.NoError(t, err)

	stats = e.Stats()
	assert.Equal(t, 0, stats.TotalRecords)
	assert.Equal(t, 1, stats.MaxViolationCount)
	assert.Empty(t, stats.MemberRanking)
}

func TestSaveFailureKeepsLocalMutation(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store, aprilClock())
	ctx := context.Background()

	store.failSave = true
	record, err := e.AddRecord(ctx, "Minji", penalty.ViolationTardiness, penalty.NewDate(2026, time.April, 14), 3, "")
	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))

	// Mutation accepted locally, durability unknown.
	assert.True(t, record.ID.IsValid())
	assert.Len(t, e.Records(), 1)
	assert.True(t, e.Dirty())

	// The caller retries the save without re-mutating.
	store.failSave = false
	require.NoError(t, e.Flush(ctx))
	assert.False(t, e.Dirty())

	reloaded := newTestEngine(t, store, aprilClock())
	assert.Len(t, reloaded.Records(), 1)
}

func TestRegistryCachesPerGroup(t *testing.T) {
	store := newStubStore()
	registry := NewRegistry(store, aprilClock(), quietLogger())
	ctx := context.Background()

	a, err := registry.Get(ctx, "class-a")
	require.NoError(t, err)
	b, err := registry.Get(ctx, "class-b")
	require.NoError(t, err)
	again, err := registry.Get(ctx, "class-a")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)

	// Groups are isolated: records in one never leak into the other.
	_, err = a.AddRecord(ctx, "Minji", penalty.ViolationOther, penalty.NewDate(2026, time.April, 1), 1, "")
	require.NoError(t, err)
	assert.Empty(t, b.Records())

	assert.Equal(t, []penalty.GroupID{"class-a", "class-b"}, registry.Groups())
}

func TestRegistryRejectsInvalidGroup(t *testing.T) {
	registry := NewRegistry(newStubStore(), aprilClock(), quietLogger())

	_, err := registry.Get(context.Background(), "bad group!")
	assert.True(t, shared.IsValidation(err))
}
