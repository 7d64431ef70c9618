package gormstore

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dddkit/domain/customer"
	"dddkit/domain/order"
	"dddkit/infrastructure/persistence"
	"dddkit/infrastructure/persistence/gormstore/po"
	"dddkit/infrastructure/persistence/specification"
)

type (
	OrderStore    = Store[*order.Order, string, po.OrderPO]
	CustomerStore = Store[*customer.Customer, int64, po.CustomerPO]
)

// AutoMigrate creates or updates the tables the stores and the outbox write to
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&po.OrderPO{}, &po.CustomerPO{}, &po.OutboxEventPO{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// OrderTranslator knows the order criteria that have a SQL form
func OrderTranslator() *specification.Translator[*order.Order] {
	t := specification.NewTranslator[*order.Order]()
	specification.Register(t, func(c order.ByCustomer) clause.Expression {
		return clause.Eq{Column: specification.Column("customer_id"), Value: c.CustomerID}
	})
	specification.Register(t, func(c order.InStatus) clause.Expression {
		ids := make([]any, len(c.Statuses))
		for i, s := range c.Statuses {
			ids[i] = s.ID()
		}
		return clause.IN{Column: specification.Column("status_id"), Values: ids}
	})
	specification.Register(t, func(order.NotDeleted) clause.Expression {
		return clause.Eq{Column: specification.Column("deleted"), Value: false}
	})
	return t
}

func NewOrderStore(uow *UnitOfWork) (*OrderStore, error) {
	return NewStore[*order.Order, string, po.OrderPO](uow, po.OrderMapper{}, OrderTranslator())
}

func NewCustomerStore(uow *UnitOfWork) (*CustomerStore, error) {
	return NewStore[*customer.Customer, int64, po.CustomerPO](uow, po.CustomerMapper{}, nil)
}

// NewOrderRepository returns the order repository bound to uow
func NewOrderRepository(uow *UnitOfWork, opts ...persistence.RepositoryOption) (order.Repository, error) {
	store, err := NewOrderStore(uow)
	if err != nil {
		return nil, err
	}
	return persistence.NewRepository[*order.Order, string](store, append([]persistence.RepositoryOption{persistence.WithName("Order")}, opts...)...), nil
}

// NewCustomerRepository returns the customer repository bound to uow
func NewCustomerRepository(uow *UnitOfWork, opts ...persistence.RepositoryOption) (customer.Repository, error) {
	store, err := NewCustomerStore(uow)
	if err != nil {
		return nil, err
	}
	return persistence.NewRepository[*customer.Customer, int64](store, append([]persistence.RepositoryOption{persistence.WithName("Customer")}, opts...)...), nil
}

var (
	_ persistence.Adapter[*order.Order, string]      = (*OrderStore)(nil)
	_ persistence.Finder[*order.Order]               = (*OrderStore)(nil)
	_ persistence.Adapter[*customer.Customer, int64] = (*CustomerStore)(nil)
)
