package order

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCustomer  = errors.New("order needs a customer")
	ErrLineNotFound   = errors.New("order line not found")
	ErrInvalidProduct = errors.New("product id cannot be empty")
)

// mustHaveLinesRule is broken by an order without lines
type mustHaveLinesRule struct {
	lines int
}

func (r mustHaveLinesRule) IsBroken() bool  { return r.lines == 0 }
func (r mustHaveLinesRule) Message() string { return "an order must have at least one line" }

// positiveQuantityRule is broken by a line with zero or negative quantity
type positiveQuantityRule struct {
	productID string
	quantity  int
}

func (r positiveQuantityRule) IsBroken() bool { return r.quantity <= 0 }
func (r positiveQuantityRule) Message() string {
	return fmt.Sprintf("quantity of %s must be positive, got %d", r.productID, r.quantity)
}

// singleCurrencyRule is broken when a line is priced in another currency than the order
type singleCurrencyRule struct {
	orderCurrency string
	lineCurrency  string
}

func (r singleCurrencyRule) IsBroken() bool {
	return r.orderCurrency != "" && r.orderCurrency != r.lineCurrency
}

func (r singleCurrencyRule) Message() string {
	return fmt.Sprintf("order is priced in %s, line is priced in %s", r.orderCurrency, r.lineCurrency)
}

// onlyPendingCanChangeRule protects lines once the order has been confirmed
type onlyPendingCanChangeRule struct {
	status Status
}

func (r onlyPendingCanChangeRule) IsBroken() bool { return r.status != StatusPending }
func (r onlyPendingCanChangeRule) Message() string {
	return fmt.Sprintf("lines of a %s order cannot change", r.status)
}

// statusTransitionRule enforces the lifecycle graph
type statusTransitionRule struct {
	from Status
	to   Status
}

func (r statusTransitionRule) IsBroken() bool { return !r.from.CanTransitionTo(r.to) }
func (r statusTransitionRule) Message() string {
	return fmt.Sprintf("cannot move order from %s to %s", r.from, r.to)
}
