// Package application orchestrates use cases over the sample domains.
// Every use case opens its own Session, records changes through the session's
// repositories and commits once at the end.
package application

import (
	"dddkit/domain/customer"
	"dddkit/domain/order"
	"dddkit/domain/shared"
)

// Session is one unit of work together with the repositories bound to it
type Session struct {
	UnitOfWork shared.UnitOfWork
	Orders     order.Repository
	Customers  customer.Repository
}

// SessionFactory opens a fresh session
type SessionFactory func() (*Session, error)
