/*
Package order Application Layer - Order Business Process Orchestration

Responsibilities of Application Layer:
1. Open a session (unit of work plus repositories) per use case
2. Call domain services for business rule validation
3. Call aggregate root methods to execute business operations
4. Save through the repositories and commit once
5. Return results to caller

Application services do not publish events. The unit of work writes them to the
outbox and dispatches them after the commit.
*/
package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dddkit/application"
	"dddkit/domain/customer"
	"dddkit/domain/order"
	"dddkit/domain/shared"
	"dddkit/pkg/logger"
)

// ApplicationService Order application service - coordinates order-related business processes
type ApplicationService struct {
	sessions application.SessionFactory
}

func NewApplicationService(sessions application.SessionFactory) *ApplicationService {
	return &ApplicationService{sessions: sessions}
}

// PlaceOrder checks the customer's eligibility and open order limit, then stores the new order
func (s *ApplicationService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResponse, error) {
	session, err := s.sessions()
	if err != nil {
		return nil, err
	}

	placement := order.NewPlacementService(customer.NewEligibility(session.Customers), session.Orders)
	o, err := placement.Place(ctx, req.CustomerID, req.Currency, toLineRequests(req.Currency, req.Lines))
	if err != nil {
		return nil, err
	}
	if err := session.Orders.Save(ctx, o); err != nil {
		return nil, err
	}
	if _, err := session.UnitOfWork.Commit(ctx); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Order placed",
		zap.String("order_id", o.ID()),
		zap.Int64("customer_id", o.CustomerID()),
		zap.Int64("total", o.Total().Amount()))
	return toOrderResponse(o), nil
}

// GetOrder returns the order, or an EntityNotFoundError when it is missing or soft-deleted
func (s *ApplicationService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	session, err := s.sessions()
	if err != nil {
		return nil, err
	}
	o, err := getRequired(ctx, session.Orders, orderID)
	if err != nil {
		return nil, err
	}
	if o.IsDeleted() {
		return nil, shared.NewEntityNotFoundError("Order", orderID)
	}
	return toOrderResponse(o), nil
}

// ListOpenOrders pages through a customer's open orders, newest first
func (s *ApplicationService) ListOpenOrders(ctx context.Context, customerID int64, skip, take int) ([]*OrderResponse, error) {
	spec, err := order.OpenOrdersOf(customerID, skip, take)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, spec)
}

// OrderHistory lists every non-deleted order of a customer, oldest first
func (s *ApplicationService) OrderHistory(ctx context.Context, customerID int64) ([]*OrderResponse, error) {
	spec, err := order.HistoryOf(customerID)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, spec)
}

func (s *ApplicationService) find(ctx context.Context, spec *shared.Specification[*order.Order]) ([]*OrderResponse, error) {
	session, err := s.sessions()
	if err != nil {
		return nil, err
	}
	orders, err := session.Orders.Find(ctx, spec)
	if err != nil {
		return nil, err
	}
	return toOrderResponses(orders), nil
}

// UpdateOrderStatus moves an order along its lifecycle
func (s *ApplicationService) UpdateOrderStatus(ctx context.Context, req UpdateOrderStatusRequest) (*OrderResponse, error) {
	target, err := shared.FromDisplayName[order.Status](req.Status)
	if err != nil {
		return nil, shared.NewValidationError("Order", "status", err.Error())
	}

	return s.change(ctx, req.OrderID, func(o *order.Order) error {
		switch target {
		case order.StatusConfirmed:
			return o.Confirm()
		case order.StatusShipped:
			return o.Ship()
		case order.StatusDelivered:
			return o.Deliver()
		case order.StatusCancelled:
			return o.Cancel(req.Reason)
		}
		return shared.NewValidationError("Order", "status", fmt.Sprintf("cannot move an order to %s", target))
	})
}

// AddLine adds a line to a pending order
func (s *ApplicationService) AddLine(ctx context.Context, orderID string, line OrderLineRequest) (*OrderResponse, error) {
	return s.change(ctx, orderID, func(o *order.Order) error {
		_, err := o.AddLine(toLineRequests(o.Currency(), []OrderLineRequest{line})[0])
		return err
	})
}

// DeleteOrder soft-deletes the order
func (s *ApplicationService) DeleteOrder(ctx context.Context, orderID string) error {
	session, err := s.sessions()
	if err != nil {
		return err
	}
	o, err := getRequired(ctx, session.Orders, orderID)
	if err != nil {
		return err
	}
	if err := session.Orders.Remove(ctx, o); err != nil {
		return err
	}
	_, err = session.UnitOfWork.Commit(ctx)
	return err
}

// change loads the order, applies fn and commits. Save is a no-op for the
// attached order and keeps the call sequence the same for every use case.
func (s *ApplicationService) change(ctx context.Context, orderID string, fn func(*order.Order) error) (*OrderResponse, error) {
	session, err := s.sessions()
	if err != nil {
		return nil, err
	}
	o, err := getRequired(ctx, session.Orders, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := session.Orders.Save(ctx, o); err != nil {
		return nil, err
	}
	if _, err := session.UnitOfWork.Commit(ctx); err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

func getRequired(ctx context.Context, orders order.Repository, orderID string) (*order.Order, error) {
	o, found, err := orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, shared.NewEntityNotFoundError("Order", orderID)
	}
	return o, nil
}
