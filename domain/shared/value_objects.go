package shared

import (
	"errors"
	"fmt"
)

var errCurrencyMismatch = errors.New("currency mismatch")

// Money is an amount in minor units (cents) of a currency
type Money struct {
	amount   int64
	currency string
}

func NewMoney(amount int64, currency string) Money {
	return Money{amount: amount, currency: currency}
}

func (m Money) Amount() int64    { return m.amount }
func (m Money) Currency() string { return m.currency }

// Add returns m + other; both must share the currency
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("add %s to %s: %w", other.currency, m.currency, errCurrencyMismatch)
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Multiply scales the amount, e.g. unit price by quantity
func (m Money) Multiply(factor int64) Money {
	return Money{amount: m.amount * factor, currency: m.currency}
}

func (m Money) IsZero() bool { return m.amount == 0 }

func (m Money) Equals(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

func (m Money) String() string {
	sign, a := "", m.amount
	if a < 0 {
		sign, a = "-", -a
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, a/100, a%100, m.currency)
}

var _ ValueObject[Money] = Money{}
