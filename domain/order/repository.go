package order

import (
	"context"

	"dddkit/domain/shared"
)

// Repository Order repository interface
// Save and Remove only record intent; the unit of work commits and publishes events.
type Repository interface {
	shared.Repository[*Order, string]
	Find(ctx context.Context, spec *shared.Specification[*Order]) ([]*Order, error)
}
