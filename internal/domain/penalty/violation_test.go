package penalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseViolationType(t *testing.T) {
	for _, v := range AllViolationTypes() {
		parsed, err := ParseViolationType(string(v))
		assert.NoError(t, err)
		assert.Equal(t, v, parsed)
	}

	_, err := ParseViolationType("gossip")
	assert.ErrorIs(t, err, ErrInvalidViolationType)

	_, err = ParseViolationType("")
	assert.ErrorIs(t, err, ErrInvalidViolationType)
}

func TestViolationTypeOrderIsDeclaredOrder(t *testing.T) {
	types := AllViolationTypes()
	assert.Equal(t, []ViolationType{
		ViolationTardiness,
		ViolationUnexcusedAbsence,
		ViolationPhoneUse,
		ViolationNonCooperation,
		ViolationOther,
	}, types)

	for i, v := range types {
		assert.Equal(t, i, v.order())
	}

	// Unknown values sort after every declared one.
	assert.Equal(t, len(types), ViolationType("gossip").order())
}

func TestGroupIDValidation(t *testing.T) {
	assert.True(t, GroupID("class-3b").IsValid())
	assert.True(t, GroupID("team_42").IsValid())
	assert.False(t, GroupID("").IsValid())
	assert.False(t, GroupID("../etc/passwd").IsValid())
	assert.False(t, GroupID("white space").IsValid())
}
