// Package penalty contains domain entities and business logic for the group
// penalty tracking engine: violation rules, demerit records, the monthly
// reset policy, and derived statistics.
// This is a pure domain layer with zero external dependencies.
package penalty

// ViolationType is the closed set of violation categories. Rules and records
// both carry a ViolationType; a record's type is not required to match any
// existing rule.
type ViolationType string

const (
	ViolationTardiness        ViolationType = "tardiness"
	ViolationUnexcusedAbsence ViolationType = "unexcused-absence"
	ViolationPhoneUse         ViolationType = "phone-use"
	ViolationNonCooperation   ViolationType = "non-cooperation"
	ViolationOther            ViolationType = "other"
)

// violationOrder is the declared order of the enumeration. It is the
// deterministic tie-break for statistics sorted by count.
var violationOrder = []ViolationType{
	ViolationTardiness,
	ViolationUnexcusedAbsence,
	ViolationPhoneUse,
	ViolationNonCooperation,
	ViolationOther,
}

// AllViolationTypes returns the violation types in declared order.
func AllViolationTypes() []ViolationType {
	out := make([]ViolationType, len(violationOrder))
	copy(out, violationOrder)
	return out
}

// IsValid checks if the violation type is one of the declared values.
func (v ViolationType) IsValid() bool {
	for _, known := range violationOrder {
		if v == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the violation type.
func (v ViolationType) String() string {
	return string(v)
}

// order returns the position of the type in the declared enumeration.
// Unknown values (possible in blobs written by older builds) sort last.
func (v ViolationType) order() int {
	for i, known := range violationOrder {
		if v == known {
			return i
		}
	}
	return len(violationOrder)
}

// ParseViolationType parses a string into a ViolationType.
func ParseViolationType(s string) (ViolationType, error) {
	v := ViolationType(s)
	if !v.IsValid() {
		return "", ErrInvalidViolationType
	}
	return v, nil
}
