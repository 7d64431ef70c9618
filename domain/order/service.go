package order

import (
	"context"
	"fmt"

	"dddkit/domain/shared"
)

// CustomerChecker reports whether a customer may place orders.
// It breaks the dependency between the order and customer packages.
type CustomerChecker interface {
	CanPlaceOrders(ctx context.Context, customerID int64) (bool, error)
	OpenOrderLimit(ctx context.Context, customerID int64) (int, error)
}

// PlacementService decides whether a new order may be placed
type PlacementService struct {
	customers CustomerChecker
	orders    Repository
}

func NewPlacementService(customers CustomerChecker, orders Repository) *PlacementService {
	return &PlacementService{customers: customers, orders: orders}
}

func (s *PlacementService) ServiceName() string { return "order.placement" }

// Place builds a new order after checking the customer and their open order limit.
// The caller saves the order and commits.
func (s *PlacementService) Place(ctx context.Context, customerID int64, currency string, lines []LineRequest) (*Order, error) {
	ok, err := s.customers.CanPlaceOrders(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := shared.CheckRule(customerActiveRule{customerID: customerID, active: ok}); err != nil {
		return nil, err
	}

	limit, err := s.customers.OpenOrderLimit(ctx, customerID)
	if err != nil {
		return nil, err
	}
	spec, err := OpenOrdersOf(customerID, 0, limit+1)
	if err != nil {
		return nil, err
	}
	open, err := s.orders.Find(ctx, spec)
	if err != nil {
		return nil, err
	}
	if err := shared.CheckRule(openOrderLimitRule{open: len(open), limit: limit}); err != nil {
		return nil, err
	}

	return NewOrder(customerID, currency, lines)
}

type customerActiveRule struct {
	customerID int64
	active     bool
}

func (r customerActiveRule) IsBroken() bool { return !r.active }
func (r customerActiveRule) Message() string {
	return fmt.Sprintf("customer %d cannot place orders", r.customerID)
}

type openOrderLimitRule struct {
	open  int
	limit int
}

func (r openOrderLimitRule) IsBroken() bool { return r.open >= r.limit }
func (r openOrderLimitRule) Message() string {
	return fmt.Sprintf("customer already has %d open orders, limit is %d", r.open, r.limit)
}

var _ shared.DomainService = (*PlacementService)(nil)
