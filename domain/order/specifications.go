package order

import (
	"context"

	"dddkit/domain/shared"
)

// Criteria are small named structs so that stores can translate them by type.

// ByCustomer matches the orders of one customer
type ByCustomer struct {
	CustomerID int64
}

func (c ByCustomer) IsSatisfiedBy(_ context.Context, o *Order) bool {
	return o.customerID == c.CustomerID
}

// InStatus matches orders in any of the listed statuses
type InStatus struct {
	Statuses []Status
}

func (c InStatus) IsSatisfiedBy(_ context.Context, o *Order) bool {
	for _, s := range c.Statuses {
		if o.status == s {
			return true
		}
	}
	return false
}

// NotDeleted hides soft-deleted orders
type NotDeleted struct{}

func (NotDeleted) IsSatisfiedBy(_ context.Context, o *Order) bool {
	return !o.IsDeleted()
}

var (
	// SortByCreatedAt orders by creation time
	SortByCreatedAt = shared.OrderKey("created_at", func(o *Order) int64 { return o.CreatedAt().UnixNano() })
	// SortByCustomer orders by customer id
	SortByCustomer = shared.OrderKey("customer_id", func(o *Order) int64 { return o.customerID })
)

// OpenOrdersOf lists a customer's orders that can still change, newest first
func OpenOrdersOf(customerID int64, skip, take int) (*shared.Specification[*Order], error) {
	criteria := shared.And[*Order](
		ByCustomer{CustomerID: customerID},
		shared.And[*Order](
			InStatus{Statuses: []Status{StatusPending, StatusConfirmed}},
			NotDeleted{},
		),
	)
	return shared.BuildSpecification(criteria, func(b *shared.SpecificationBuilder[*Order]) error {
		b.ApplyOrderByDescending(SortByCreatedAt)
		return b.ApplyPaging(skip, take)
	})
}

// HistoryOf lists every non-deleted order of a customer, read-only, oldest first
func HistoryOf(customerID int64) (*shared.Specification[*Order], error) {
	criteria := shared.And[*Order](ByCustomer{CustomerID: customerID}, NotDeleted{})
	return shared.BuildSpecification(criteria, func(b *shared.SpecificationBuilder[*Order]) error {
		b.ApplyOrderBy(SortByCreatedAt).ApplyNoTracking()
		return nil
	})
}
