package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/internal/domain/shared"
	"github.com/penalty-hub/penalty-engine/internal/engine"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

type addRuleRequest struct {
	ViolationType  string `json:"violationType"`
	Description    string `json:"description"`
	PenaltyContent string `json:"penaltyContent"`
	Demerits       int    `json:"demerits"`
}

type addRecordRequest struct {
	MemberName    string `json:"memberName"`
	ViolationType string `json:"violationType"`
	Date          string `json:"date"`
	// Demerits defaults to the first matching rule's demerits when omitted.
	Demerits *int   `json:"demerits,omitempty"`
	Memo     string `json:"memo,omitempty"`
}

type settingsRequest struct {
	MonthlyResetEnabled *bool `json:"monthlyResetEnabled"`
}

type settingsResponse struct {
	MonthlyResetEnabled bool `json:"monthlyResetEnabled"`
}

type resetResponse struct {
	ResetAt time.Time `json:"resetAt"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

type groupsResponse struct {
	Groups []penalty.GroupID `json:"groups"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// resolveEngine fetches (or lazily creates) the engine for the group in the
// URL. A nil return means the error response has already been written.
func (s *Server) resolveEngine(w http.ResponseWriter, r *http.Request) *engine.Engine {
	group := penalty.GroupID(chi.URLParam(r, "group"))

	eng, err := s.registry.Get(r.Context(), group)
	if err != nil {
		s.writeEngineError(w, err)
		return nil
	}
	return eng
}

// writeEngineError maps domain errors onto HTTP status codes. A persistence
// failure is a 502: the mutation is retained in memory, the store is the
// broken party.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsPersistence(err):
		persistenceFailures.Inc()
		writeJSONError(w, http.StatusBadGateway, "persistence_failed", err.Error())
	default:
		s.logger.Error("unhandled engine error", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND GROUPS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, groupsResponse{Groups: s.registry.Groups()})
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT AND STATS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}

	// Reads re-run the reset check so a group left idle across a month
	// boundary is cleared before its state is served.
	if applied, err := eng.CheckAndApplyReset(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	} else if applied {
		monthlyResets.WithLabelValues(engine.ResetTriggerAuto).Inc()
	}

	writeJSON(w, http.StatusOK, eng.Snapshot())
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}

	if applied, err := eng.CheckAndApplyReset(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	} else if applied {
		monthlyResets.WithLabelValues(engine.ResetTriggerAuto).Inc()
	}

	writeJSON(w, http.StatusOK, eng.Stats())
}

// ══════════════════════════════════════════════════════════════════════════════
// RULES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}
	writeJSON(w, http.StatusOK, eng.Rules())
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}

	var req addRuleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	vt, err := penalty.ParseViolationType(req.ViolationType)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	rule, err := eng.AddRule(r.Context(), vt, req.Description, req.PenaltyContent, req.Demerits)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	rulesAdded.Inc()
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}

	deleted, err := eng.DeleteRule(r.Context(), penalty.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if !deleted {
		writeJSONError(w, http.StatusNotFound, "not_found", "no rule with that id")
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true})
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}
	writeJSON(w, http.StatusOK, eng.Records())
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}

	var req addRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	vt, err := penalty.ParseViolationType(req.ViolationType)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	date, err := penalty.ParseDate(req.Date)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	demerits := 0
	if req.Demerits != nil {
		demerits = *req.Demerits
	} else {
		def, ok := eng.DefaultDemeritsFor(vt)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "validation_failed",
				"demerits omitted and no rule defines a default for this violation type")
			return
		}
		demerits = def
	}

	rec, err := eng.AddRecord(r.Context(), req.MemberName, vt, date, demerits, req.Memo)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	recordsAdded.WithLabelValues(string(vt)).Inc()
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}

	deleted, err := eng.DeleteRecord(r.Context(), penalty.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if !deleted {
		writeJSONError(w, http.StatusNotFound, "not_found", "no record with that id")
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true})
}

// ══════════════════════════════════════════════════════════════════════════════
// RESET AND SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleResetNow(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}

	resetAt, err := eng.ResetNow(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	monthlyResets.WithLabelValues(engine.ResetTriggerManual).Inc()
	writeJSON(w, http.StatusOK, resetResponse{ResetAt: resetAt})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	eng := s.resolveEngine(w, r)
	if eng == nil {
		return
	}

	var req settingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MonthlyResetEnabled == nil {
		writeJSONError(w, http.StatusBadRequest, "validation_failed", "monthlyResetEnabled is required")
		return
	}

	enabled, err := eng.SetMonthlyReset(r.Context(), *req.MonthlyResetEnabled)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{MonthlyResetEnabled: enabled})
}
