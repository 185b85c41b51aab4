package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/internal/engine"
	"github.com/penalty-hub/penalty-engine/internal/infrastructure/persistence/memory"
	"github.com/penalty-hub/penalty-engine/pkg/clock"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, time.April, 15, 12, 0, 0, 0, time.UTC))
	log := logger.New(logger.Options{Output: io.Discard})
	registry := engine.NewRegistry(memory.NewStore(), clk, log)
	return NewServer(cfg, registry, log), clk
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAddRuleAndList(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/rules", addRuleRequest{
		ViolationType:  "tardiness",
		Description:    "Late to practice",
		PenaltyContent: "Clean the studio",
		Demerits:       5,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var rule penalty.ViolationRule
	decodeInto(t, rec, &rule)
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, penalty.ViolationTardiness, rule.ViolationType)
	assert.Equal(t, 5, rule.Demerits)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/groups/dance-club/penalty/rules", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rules []penalty.ViolationRule
	decodeInto(t, rec, &rules)
	assert.Len(t, rules, 1)
}

func TestAddRuleValidationFailure(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/groups/dance-club/penalty/rules", addRuleRequest{
		ViolationType:  "tardiness",
		Description:    "",
		PenaltyContent: "Clean the studio",
		Demerits:       5,
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeInto(t, rec, &resp)
	assert.Equal(t, "validation_failed", resp.Error.Code)
}

func TestAddRuleUnknownViolationType(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/groups/dance-club/penalty/rules", addRuleRequest{
		ViolationType:  "jaywalking",
		Description:    "x",
		PenaltyContent: "y",
		Demerits:       1,
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRuleNotFound(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv.Handler(), http.MethodDelete, "/api/v1/groups/dance-club/penalty/rules/nope", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddRecordWithExplicitDemerits(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	h := srv.Handler()

	demerits := 7
	rec := doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/records", addRecordRequest{
		MemberName:    "Mina",
		ViolationType: "phone-use",
		Date:          "2026-04-10",
		Demerits:      &demerits,
		Memo:          "during rehearsal",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var record penalty.PenaltyRecord
	decodeInto(t, rec, &record)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "Mina", record.MemberName)
	assert.Equal(t, 7, record.Demerits)
}

func TestAddRecordDefaultsDemeritsFromRule(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/rules", addRuleRequest{
		ViolationType:  "tardiness",
		Description:    "Late to practice",
		PenaltyContent: "Clean the studio",
		Demerits:       5,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/records", addRecordRequest{
		MemberName:    "Yuna",
		ViolationType: "tardiness",
		Date:          "2026-04-11",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var record penalty.PenaltyRecord
	decodeInto(t, rec, &record)
	assert.Equal(t, 5, record.Demerits)
}

func TestAddRecordNoDefaultAvailable(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/groups/dance-club/penalty/records", addRecordRequest{
		MemberName:    "Yuna",
		ViolationType: "other",
		Date:          "2026-04-11",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRecordRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	h := srv.Handler()

	demerits := 3
	rec := doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/records", addRecordRequest{
		MemberName:    "Mina",
		ViolationType: "other",
		Date:          "2026-04-10",
		Demerits:      &demerits,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var record penalty.PenaltyRecord
	decodeInto(t, rec, &record)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/groups/dance-club/penalty/records/"+string(record.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/groups/dance-club/penalty/records", nil, nil)
	var records []penalty.PenaltyRecord
	decodeInto(t, rec, &records)
	assert.Empty(t, records)
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	h := srv.Handler()

	demerits := 5
	for _, member := range []string{"Mina", "Mina", "Yuna"} {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/records", addRecordRequest{
			MemberName:    member,
			ViolationType: "tardiness",
			Date:          "2026-04-10",
			Demerits:      &demerits,
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/groups/dance-club/penalty/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats penalty.Stats
	decodeInto(t, rec, &stats)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 3, stats.ThisMonthRecords)
	require.NotEmpty(t, stats.MemberRanking)
	assert.Equal(t, "Mina", stats.MemberRanking[0].MemberName)
	assert.Equal(t, 10, stats.MemberRanking[0].TotalDemerits)
}

func TestSnapshotReflectsMonthlyReset(t *testing.T) {
	srv, clk := newTestServer(t, DefaultConfig())
	h := srv.Handler()

	enabled := true
	rec := doJSON(t, h, http.MethodPut, "/api/v1/groups/dance-club/penalty/settings", settingsRequest{
		MonthlyResetEnabled: &enabled,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	demerits := 5
	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/records", addRecordRequest{
		MemberName:    "Mina",
		ViolationType: "tardiness",
		Date:          "2026-04-10",
		Demerits:      &demerits,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Stamp the current month so the next boundary crossing triggers a reset.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/reset", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/records", addRecordRequest{
		MemberName:    "Mina",
		ViolationType: "tardiness",
		Date:          "2026-04-20",
		Demerits:      &demerits,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	clk.AdvanceMonths(1)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/groups/dance-club/penalty", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot penalty.PenaltyState
	decodeInto(t, rec, &snapshot)
	assert.Empty(t, snapshot.Records)
	require.NotNil(t, snapshot.LastResetAt)
	assert.Equal(t, time.May, snapshot.LastResetAt.Month())
}

func TestManualResetClearsRecordsAndStampsTime(t *testing.T) {
	srv, clk := newTestServer(t, DefaultConfig())
	h := srv.Handler()

	demerits := 2
	rec := doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/records", addRecordRequest{
		MemberName:    "Mina",
		ViolationType: "other",
		Date:          "2026-04-10",
		Demerits:      &demerits,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/reset", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp resetResponse
	decodeInto(t, rec, &resp)
	assert.True(t, resp.ResetAt.Equal(clk.Now()))

	rec = doJSON(t, h, http.MethodGet, "/api/v1/groups/dance-club/penalty/records", nil, nil)
	var records []penalty.PenaltyRecord
	decodeInto(t, rec, &records)
	assert.Empty(t, records)
}

func TestInvalidGroupIDRejected(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/groups/..%2Fetc/penalty/rules", nil, nil)

	// chi decodes the escaped slash; the group fails domain validation either way.
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusNotFound}, rec.Code)
}

func TestAdminAuthRequiredForMutations(t *testing.T) {
	hash, err := HashAdminToken("sekrit")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.AdminTokenHash = hash
	srv, _ := newTestServer(t, cfg)
	h := srv.Handler()

	// Reads stay open.
	rec := doJSON(t, h, http.MethodGet, "/api/v1/groups/dance-club/penalty/rules", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := addRuleRequest{ViolationType: "tardiness", Description: "x", PenaltyContent: "y", Demerits: 1}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/rules", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/rules", body, map[string]string{
		AdminTokenHeader: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/rules", body, map[string]string{
		AdminTokenHeader: "sekrit",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/groups/dance-club/penalty/rules", body, map[string]string{
		"Authorization": "Bearer sekrit",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListGroups(t *testing.T) {
	srv, _ := newTestServer(t, DefaultConfig())
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/groups/alpha/penalty/rules", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/api/v1/groups/beta/penalty/rules", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/groups", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp groupsResponse
	decodeInto(t, rec, &resp)
	assert.Equal(t, []penalty.GroupID{"alpha", "beta"}, resp.Groups)
}
