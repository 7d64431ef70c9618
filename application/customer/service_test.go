package customer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddkit/application"
	customersvc "dddkit/application/customer"
	"dddkit/domain/customer"
	"dddkit/domain/order"
	"dddkit/domain/shared"
	"dddkit/infrastructure/persistence"
	"dddkit/infrastructure/persistence/gormstore/po"
	"dddkit/infrastructure/persistence/memory"
)

func newService(t *testing.T) (*customersvc.ApplicationService, *shared.EventBus) {
	t.Helper()
	db := memory.NewDatabase()
	bus := shared.NewEventBus()
	next := db.Sequence("customers")

	sessions := func() (*application.Session, error) {
		uow := memory.NewUnitOfWork(db, memory.WithDispatcher(bus))
		orders, err := memory.NewStore[*order.Order, string, po.OrderPO](uow, "orders", po.OrderMapper{})
		if err != nil {
			return nil, err
		}
		customers, err := memory.NewStore[*customer.Customer, int64, po.CustomerPO](uow, "customers", po.CustomerMapper{},
			memory.WithIDGenerator(next))
		if err != nil {
			return nil, err
		}
		return &application.Session{
			UnitOfWork: uow,
			Orders:     persistence.NewRepository[*order.Order, string](orders),
			Customers:  persistence.NewRepository[*customer.Customer, int64](customers),
		}, nil
	}
	return customersvc.NewApplicationService(sessions), bus
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, bus := newService(t)

	var registered int
	require.NoError(t, bus.Subscribe(customer.EventRegistered, shared.NewFuncHandler("count", func(context.Context, shared.DomainEvent) error {
		registered++
		return nil
	})))

	first, err := svc.Register(ctx, customersvc.RegisterCustomerRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	second, err := svc.Register(ctx, customersvc.RegisterCustomerRequest{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, "Standard", first.Tier)
	assert.Equal(t, customer.TierStandard.OpenOrderLimit(), first.OpenOrderLimit)
	assert.True(t, first.IsActive)
	assert.Equal(t, 2, registered)

	loaded, err := svc.GetCustomer(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", loaded.Email)
}

func TestRegister_Invalid(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name string
		req  customersvc.RegisterCustomerRequest
	}{
		{name: "empty name", req: customersvc.RegisterCustomerRequest{Email: "a@example.com"}},
		{name: "bad email", req: customersvc.RegisterCustomerRequest{Name: "Alice", Email: "not-an-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestPromote(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	c, err := svc.Register(ctx, customersvc.RegisterCustomerRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	for _, want := range []string{"Silver", "Gold", "Gold"} {
		resp, err := svc.Promote(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, want, resp.Tier)
	}

	loaded, err := svc.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.TierGold.OpenOrderLimit(), loaded.OpenOrderLimit)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	c, err := svc.Register(ctx, customersvc.RegisterCustomerRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	resp, err := svc.UpdateStatus(ctx, c.ID, false)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	_, err = svc.Promote(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrRuleViolation, "inactive customers cannot be promoted")

	resp, err = svc.UpdateStatus(ctx, c.ID, true)
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	c, err := svc.Register(ctx, customersvc.RegisterCustomerRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, c.ID))

	_, err = svc.GetCustomer(ctx, c.ID)
	var notFound *shared.EntityNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.ErrorIs(t, svc.Remove(ctx, c.ID), shared.ErrNotFound)
}
