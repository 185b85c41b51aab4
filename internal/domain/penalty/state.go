package penalty

import (
	"encoding/json"
	"time"
)

// PenaltyState is the aggregate root and the unit of persistence: one blob
// per group holding rules, records, and the reset configuration. The engine
// owns and exclusively mutates it; consumers re-read a snapshot after every
// mutation rather than holding their own copy.
type PenaltyState struct {
	// Rules in insertion order. Duplicate violation types are allowed; the
	// first-added rule of a type supplies the auto-fill default.
	Rules []ViolationRule `json:"rules"`

	// Records in insertion order.
	Records []PenaltyRecord `json:"records"`

	// MonthlyResetEnabled controls whether the automatic reset check fires
	// on load.
	MonthlyResetEnabled bool `json:"monthlyResetEnabled"`

	// LastResetAt is nil if no reset has ever fired. Once set it is
	// monotonically non-decreasing: every reset stamps it with "now".
	LastResetAt *time.Time `json:"lastResetAt"`
}

// NewState returns the default empty state: no rules, no records, automatic
// reset disabled, never reset.
func NewState() *PenaltyState {
	return &PenaltyState{
		Rules:   make([]ViolationRule, 0),
		Records: make([]PenaltyRecord, 0),
	}
}

// Normalize ensures slice fields are non-nil after decoding, so the empty
// state always serializes as [] rather than null.
func (s *PenaltyState) Normalize() {
	if s.Rules == nil {
		s.Rules = make([]ViolationRule, 0)
	}
	if s.Records == nil {
		s.Records = make([]PenaltyRecord, 0)
	}
}

// Clone returns a deep copy of the state for read-only snapshots.
func (s *PenaltyState) Clone() *PenaltyState {
	out := &PenaltyState{
		Rules:               make([]ViolationRule, len(s.Rules)),
		Records:             make([]PenaltyRecord, len(s.Records)),
		MonthlyResetEnabled: s.MonthlyResetEnabled,
	}
	copy(out.Rules, s.Rules)
	copy(out.Records, s.Records)
	if s.LastResetAt != nil {
		t := *s.LastResetAt
		out.LastResetAt = &t
	}
	return out
}

// AddRule appends a rule, preserving insertion order.
func (s *PenaltyState) AddRule(rule ViolationRule) {
	s.Rules = append(s.Rules, rule)
}

// RemoveRule removes the rule with the given ID and reports whether a rule
// was actually removed. Removing a rule has no cascading effect on records.
func (s *PenaltyState) RemoveRule(id RuleID) bool {
	for i, rule := range s.Rules {
		if rule.ID == id {
			s.Rules = append(s.Rules[:i], s.Rules[i+1:]...)
			return true
		}
	}
	return false
}

// DefaultDemeritsFor returns the demerits of the first rule (insertion order)
// matching the violation type. The boolean is false if no rule matches.
// First-added wins when multiple rules share a type.
func (s *PenaltyState) DefaultDemeritsFor(violationType ViolationType) (int, bool) {
	for _, rule := range s.Rules {
		if rule.ViolationType == violationType {
			return rule.Demerits, true
		}
	}
	return 0, false
}

// AddRecord appends a record, preserving insertion order.
func (s *PenaltyState) AddRecord(record PenaltyRecord) {
	s.Records = append(s.Records, record)
}

// RemoveRecord removes the record with the given ID and reports whether a
// record was actually removed.
func (s *PenaltyState) RemoveRecord(id RecordID) bool {
	for i, record := range s.Records {
		if record.ID == id {
			s.Records = append(s.Records[:i], s.Records[i+1:]...)
			return true
		}
	}
	return false
}

// Reset clears all records and stamps LastResetAt with the given time, as a
// single in-memory update. Both the automatic and the manual reset path go
// through this primitive, so a reset is never half-applied: the caller issues
// exactly one save after it.
func (s *PenaltyState) Reset(now time.Time) {
	stamp := now.UTC()
	s.Records = make([]PenaltyRecord, 0)
	s.LastResetAt = &stamp
}

// Marshal serializes the state to its JSON wire shape.
func (s *PenaltyState) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState decodes a state blob. The result is normalized so decoded
// nil slices become empty ones.
func UnmarshalState(data []byte) (*PenaltyState, error) {
	var s PenaltyState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.Normalize()
	return &s, nil
}
