package shared

import "context"

// UnitOfWork commits every change recorded by the repositories sharing it.
// After a successful commit it dispatches the buffered events of each tracked
// aggregate and clears their buffers. It returns the number of affected rows.
type UnitOfWork interface {
	Commit(ctx context.Context) (int64, error)
}

// Repository is the collection-like port each aggregate type exposes to the domain.
// GetByID reports absence with found == false and a nil error.
type Repository[A Aggregate[ID], ID comparable] interface {
	Save(ctx context.Context, aggregate A) error
	Remove(ctx context.Context, aggregate A) error
	GetByID(ctx context.Context, id ID) (aggregate A, found bool, err error)
}

// OutboxRepository persists events in the same transaction as the aggregate
type OutboxRepository interface {
	SaveEvent(ctx context.Context, event DomainEvent) error
}
