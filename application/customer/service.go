package customer

import (
	"context"
	"time"

	"dddkit/application"
	"dddkit/domain/customer"
	"dddkit/domain/shared"
)

// ApplicationService Customer application service
type ApplicationService struct {
	sessions application.SessionFactory
}

func NewApplicationService(sessions application.SessionFactory) *ApplicationService {
	return &ApplicationService{sessions: sessions}
}

// RegisterCustomerRequest Register customer request DTO
type RegisterCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CustomerResponse Customer response DTO
type CustomerResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Tier           string    `json:"tier"`
	OpenOrderLimit int       `json:"open_order_limit"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Register stores a new customer; the id is assigned by the store on commit
func (s *ApplicationService) Register(ctx context.Context, req RegisterCustomerRequest) (*CustomerResponse, error) {
	c, err := customer.Register(req.Name, req.Email)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions()
	if err != nil {
		return nil, err
	}
	if err := session.Customers.Save(ctx, c); err != nil {
		return nil, err
	}
	if _, err := session.UnitOfWork.Commit(ctx); err != nil {
		return nil, err
	}
	return toResponse(c), nil
}

func (s *ApplicationService) GetCustomer(ctx context.Context, id int64) (*CustomerResponse, error) {
	session, err := s.sessions()
	if err != nil {
		return nil, err
	}
	c, err := getRequired(ctx, session.Customers, id)
	if err != nil {
		return nil, err
	}
	return toResponse(c), nil
}

// Promote moves an active customer one tier up
func (s *ApplicationService) Promote(ctx context.Context, id int64) (*CustomerResponse, error) {
	return s.change(ctx, id, (*customer.Customer).Promote)
}

// UpdateStatus activates or deactivates a customer
func (s *ApplicationService) UpdateStatus(ctx context.Context, id int64, active bool) (*CustomerResponse, error) {
	return s.change(ctx, id, func(c *customer.Customer) error {
		if active {
			c.Activate()
		} else {
			c.Deactivate()
		}
		return nil
	})
}

// Remove deletes the customer row
func (s *ApplicationService) Remove(ctx context.Context, id int64) error {
	session, err := s.sessions()
	if err != nil {
		return err
	}
	c, err := getRequired(ctx, session.Customers, id)
	if err != nil {
		return err
	}
	if err := session.Customers.Remove(ctx, c); err != nil {
		return err
	}
	_, err = session.UnitOfWork.Commit(ctx)
	return err
}

func (s *ApplicationService) change(ctx context.Context, id int64, fn func(*customer.Customer) error) (*CustomerResponse, error) {
	session, err := s.sessions()
	if err != nil {
		return nil, err
	}
	c, err := getRequired(ctx, session.Customers, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if _, err := session.UnitOfWork.Commit(ctx); err != nil {
		return nil, err
	}
	return toResponse(c), nil
}

func getRequired(ctx context.Context, customers customer.Repository, id int64) (*customer.Customer, error) {
	c, found, err := customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, shared.NewEntityNotFoundError("Customer", id)
	}
	return c, nil
}

func toResponse(c *customer.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:             c.ID(),
		Name:           c.Name(),
		Email:          c.Email().Value(),
		Tier:           c.Tier().Name(),
		OpenOrderLimit: c.Tier().OpenOrderLimit(),
		IsActive:       c.IsActive(),
		CreatedAt:      c.CreatedAt(),
	}
}
