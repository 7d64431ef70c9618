package customer

import (
	"context"
	"fmt"
)

// Eligibility answers order placement questions about customers
type Eligibility struct {
	customers Repository
}

func NewEligibility(customers Repository) *Eligibility {
	return &Eligibility{customers: customers}
}

func (s *Eligibility) ServiceName() string { return "customer.eligibility" }

// CanPlaceOrders reports whether the customer exists and is active
func (s *Eligibility) CanPlaceOrders(ctx context.Context, customerID int64) (bool, error) {
	c, found, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("load customer %d: %w", customerID, err)
	}
	return found && c.IsActive(), nil
}

// OpenOrderLimit is the tier limit, zero for unknown customers
func (s *Eligibility) OpenOrderLimit(ctx context.Context, customerID int64) (int, error) {
	c, found, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("load customer %d: %w", customerID, err)
	}
	if !found {
		return 0, nil
	}
	return c.Tier().OpenOrderLimit(), nil
}
