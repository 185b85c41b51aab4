package penalty

import "errors"

// Domain errors for the penalty package.
var (
	ErrInvalidID            = errors.New("penalty: invalid ID")
	ErrInvalidViolationType = errors.New("penalty: invalid violation type")
	ErrEmptyDescription     = errors.New("penalty: description cannot be empty")
	ErrDescriptionTooLong   = errors.New("penalty: description exceeds maximum length")
	ErrEmptyPenaltyContent  = errors.New("penalty: penalty content cannot be empty")
	ErrPenaltyContentTooLong = errors.New("penalty: penalty content exceeds maximum length")
	ErrDemeritsOutOfRange   = errors.New("penalty: demerits must be between 1 and 100")
	ErrEmptyMemberName      = errors.New("penalty: member name cannot be empty")
	ErrMemberNameTooLong    = errors.New("penalty: member name exceeds maximum length")
	ErrMemoTooLong          = errors.New("penalty: memo exceeds maximum length")
	ErrInvalidDate          = errors.New("penalty: invalid date")
	ErrInvalidGroupID       = errors.New("penalty: invalid group ID")
)
