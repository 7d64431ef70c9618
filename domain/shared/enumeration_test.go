package shared_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddkit/domain/shared"
)

type cardType struct{ shared.Enumeration }

type employeeType struct{ shared.Enumeration }

var (
	// registered out of order on purpose
	creditCard = &cardType{shared.NewEnumeration(2, "Credit")}
	debitCard  = &cardType{shared.NewEnumeration(1, "Debit")}
	giftCard   = &cardType{shared.NewEnumeration(3, "Gift")}

	_ = shared.RegisterEnumeration(creditCard, debitCard, giftCard)

	manager = &employeeType{shared.NewEnumeration(1, "Manager")}

	_ = shared.RegisterEnumeration(manager)
)

func TestAll_YieldsMembersInIdOrder(t *testing.T) {
	got := slices.Collect(shared.All[*cardType]())

	require.Len(t, got, 3)
	assert.Same(t, debitCard, got[0])
	assert.Same(t, creditCard, got[1])
	assert.Same(t, giftCard, got[2])
}

func TestAll_IsRestartable(t *testing.T) {
	seq := shared.All[*cardType]()

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
}

func TestFromValue_RoundTripsEveryMember(t *testing.T) {
	for m := range shared.All[*cardType]() {
		got, err := shared.FromValue[*cardType](m.ID())
		require.NoError(t, err)
		assert.True(t, shared.SameEnumeration(m, got))
	}
}

func TestFromValue_UnknownIdFails(t *testing.T) {
	_, err := shared.FromValue[*cardType](99)

	require.ErrorIs(t, err, shared.ErrEnumerationNotFound)
	assert.EqualError(t, err, "'99' is not a valid value in *shared_test.cardType")
}

func TestFromDisplayName(t *testing.T) {
	got, err := shared.FromDisplayName[*cardType]("Gift")
	require.NoError(t, err)
	assert.Same(t, giftCard, got)

	_, err = shared.FromDisplayName[*cardType]("gift")
	require.ErrorIs(t, err, shared.ErrEnumerationNotFound)
	assert.Contains(t, err.Error(), "is not a valid display name")
}

func TestSameEnumeration_DistinguishesTypesSharingAnId(t *testing.T) {
	assert.Equal(t, debitCard.ID(), manager.ID())
	assert.False(t, shared.SameEnumeration(debitCard, manager))
	assert.True(t, shared.SameEnumeration(debitCard, &cardType{shared.NewEnumeration(1, "Debit")}))
	assert.False(t, shared.SameEnumeration(debitCard, nil))
}

func TestCompareEnumerations(t *testing.T) {
	assert.Negative(t, shared.CompareEnumerations(debitCard, creditCard))
	assert.Positive(t, shared.CompareEnumerations(giftCard, creditCard))
	assert.Zero(t, shared.CompareEnumerations(debitCard, debitCard))
	assert.Equal(t, "Credit", creditCard.String())
}

func TestRegisterEnumeration_PanicsOnDuplicates(t *testing.T) {
	type duplicated struct{ shared.Enumeration }

	shared.RegisterEnumeration(&duplicated{shared.NewEnumeration(1, "One")})

	assert.Panics(t, func() {
		shared.RegisterEnumeration(&duplicated{shared.NewEnumeration(1, "Uno")})
	})
	assert.Panics(t, func() {
		shared.RegisterEnumeration(&duplicated{shared.NewEnumeration(2, "One")})
	})
}
