package penalty

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRule(t *testing.T) {
	rule, err := NewRule("r1", ViolationTardiness, "Late more than 10 minutes", "one cleaning duty", 3)
	require.NoError(t, err)

	assert.Equal(t, RuleID("r1"), rule.ID)
	assert.Equal(t, ViolationTardiness, rule.ViolationType)
	assert.Equal(t, "Late more than 10 minutes", rule.Description)
	assert.Equal(t, "one cleaning duty", rule.PenaltyContent)
	assert.Equal(t, 3, rule.Demerits)
}

func TestNewRuleTrimsFields(t *testing.T) {
	rule, err := NewRule("r1", ViolationPhoneUse, "  phone during class  ", "\tbuy snacks\n", 1)
	require.NoError(t, err)

	assert.Equal(t, "phone during class", rule.Description)
	assert.Equal(t, "buy snacks", rule.PenaltyContent)
}

func TestNewRuleDemeritsBounds(t *testing.T) {
	_, err := NewRule("r1", ViolationOther, "desc", "content", 0)
	assert.ErrorIs(t, err, ErrDemeritsOutOfRange)

	_, err = NewRule("r1", ViolationOther, "desc", "content", 101)
	assert.ErrorIs(t, err, ErrDemeritsOutOfRange)

	_, err = NewRule("r1", ViolationOther, "desc", "content", 1)
	assert.NoError(t, err)

	_, err = NewRule("r1", ViolationOther, "desc", "content", 100)
	assert.NoError(t, err)
}

func TestNewRuleRejectsEmptyFields(t *testing.T) {
	_, err := NewRule("r1", ViolationOther, "   ", "content", 5)
	assert.ErrorIs(t, err, ErrEmptyDescription)

	_, err = NewRule("r1", ViolationOther, "desc", " \n ", 5)
	assert.ErrorIs(t, err, ErrEmptyPenaltyContent)
}

func TestNewRuleRejectsOverlongFields(t *testing.T) {
	long := strings.Repeat("x", DescriptionMaxLen+1)

	_, err := NewRule("r1", ViolationOther, long, "content", 5)
	assert.ErrorIs(t, err, ErrDescriptionTooLong)

	_, err = NewRule("r1", ViolationOther, "desc", long, 5)
	assert.ErrorIs(t, err, ErrPenaltyContentTooLong)
}

func TestNewRuleRejectsUnknownViolationType(t *testing.T) {
	_, err := NewRule("r1", ViolationType("gossip"), "desc", "content", 5)
	assert.ErrorIs(t, err, ErrInvalidViolationType)
}
