package penalty

import (
	"strings"
	"time"
)

// RecordID is the opaque unique identifier of a penalty record.
type RecordID string

// IsValid checks if the record ID is non-empty.
func (id RecordID) IsValid() bool {
	return id != ""
}

// String returns the string representation of the record ID.
func (id RecordID) String() string {
	return string(id)
}

// PenaltyRecord is one demerit entry for a member. Records are append-only:
// they are never mutated after creation, only deleted individually or cleared
// en masse by a reset. Demerits are copied from the chosen rule's default (or
// entered manually) at creation time; later rule edits never change them.
type PenaltyRecord struct {
	ID            RecordID      `json:"id"`
	MemberName    string        `json:"memberName"`
	ViolationType ViolationType `json:"violationType"`
	Date          Date          `json:"date"`
	Demerits      int           `json:"demerits"`
	Memo          string        `json:"memo"`
	// CreatedAt is set at insertion and used only for ordering. The "this
	// month" classification is based on Date, not CreatedAt.
	CreatedAt time.Time `json:"createdAt"`
}

// NewRecord creates a validated PenaltyRecord. The member name is stored
// trimmed; the memo is optional.
func NewRecord(id RecordID, memberName string, violationType ViolationType, date Date, demerits int, memo string, createdAt time.Time) (PenaltyRecord, error) {
	if !id.IsValid() {
		return PenaltyRecord{}, ErrInvalidID
	}
	if !violationType.IsValid() {
		return PenaltyRecord{}, ErrInvalidViolationType
	}

	memberName = strings.TrimSpace(memberName)
	if memberName == "" {
		return PenaltyRecord{}, ErrEmptyMemberName
	}
	if len([]rune(memberName)) > MemberNameMaxLen {
		return PenaltyRecord{}, ErrMemberNameTooLong
	}

	if date.IsZero() {
		return PenaltyRecord{}, ErrInvalidDate
	}

	if demerits < DemeritsMin || demerits > DemeritsMax {
		return PenaltyRecord{}, ErrDemeritsOutOfRange
	}

	if len([]rune(memo)) > MemoMaxLen {
		return PenaltyRecord{}, ErrMemoTooLong
	}

	return PenaltyRecord{
		ID:            id,
		MemberName:    memberName,
		ViolationType: violationType,
		Date:          date,
		Demerits:      demerits,
		Memo:          memo,
		CreatedAt:     createdAt.UTC(),
	}, nil
}
