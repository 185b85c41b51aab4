package penalty

import "strings"

// Field limits for rules and records.
const (
	DescriptionMaxLen    = 100
	PenaltyContentMaxLen = 100
	MemberNameMaxLen     = 50
	MemoMaxLen           = 200
	DemeritsMin          = 1
	DemeritsMax          = 100
)

// RuleID is the opaque unique identifier of a violation rule.
type RuleID string

// IsValid checks if the rule ID is non-empty.
func (id RuleID) IsValid() bool {
	return id != ""
}

// String returns the string representation of the rule ID.
func (id RuleID) String() string {
	return string(id)
}

// ViolationRule is a reusable template used to pre-fill new penalty records.
// Rules are immutable once created; deleting a rule never touches records
// that were created using its default.
type ViolationRule struct {
	ID             RuleID        `json:"id"`
	ViolationType  ViolationType `json:"violationType"`
	Description    string        `json:"description"`
	PenaltyContent string        `json:"penaltyContent"`
	Demerits       int           `json:"demerits"`
}

// NewRule creates a validated ViolationRule. Description and penalty content
// are stored trimmed.
func NewRule(id RuleID, violationType ViolationType, description, penaltyContent string, demerits int) (ViolationRule, error) {
	if !id.IsValid() {
		return ViolationRule{}, ErrInvalidID
	}
	if !violationType.IsValid() {
		return ViolationRule{}, ErrInvalidViolationType
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return ViolationRule{}, ErrEmptyDescription
	}
	if len([]rune(description)) > DescriptionMaxLen {
		return ViolationRule{}, ErrDescriptionTooLong
	}

	penaltyContent = strings.TrimSpace(penaltyContent)
	if penaltyContent == "" {
		return ViolationRule{}, ErrEmptyPenaltyContent
	}
	if len([]rune(penaltyContent)) > PenaltyContentMaxLen {
		return ViolationRule{}, ErrPenaltyContentTooLong
	}

	if demerits < DemeritsMin || demerits > DemeritsMax {
		return ViolationRule{}, ErrDemeritsOutOfRange
	}

	return ViolationRule{
		ID:             id,
		ViolationType:  violationType,
		Description:    description,
		PenaltyContent: penaltyContent,
		Demerits:       demerits,
	}, nil
}
