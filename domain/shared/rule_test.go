package shared_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddkit/domain/shared"
)

type quantityMustBePositive struct {
	quantity int
}

func (r quantityMustBePositive) IsBroken() bool  { return r.quantity <= 0 }
func (r quantityMustBePositive) Message() string { return "quantity must be positive" }

func TestCheckRule_PassingRuleReturnsNil(t *testing.T) {
	assert.NoError(t, shared.CheckRule(quantityMustBePositive{quantity: 1}))
}

func TestCheckRule_BrokenRuleCarriesTheRule(t *testing.T) {
	rule := quantityMustBePositive{quantity: 0}

	err := shared.CheckRule(rule)

	require.ErrorIs(t, err, shared.ErrRuleViolation)
	var violation *shared.RuleViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, rule, violation.Rule)
	assert.Equal(t, "quantity must be positive", violation.Details)
	assert.Equal(t, "quantity must be positive", err.Error())
	assert.Equal(t, "shared_test.quantityMustBePositive: quantity must be positive", violation.Describe())
	assert.NotEmpty(t, violation.Stack())
}
