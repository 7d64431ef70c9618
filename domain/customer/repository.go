package customer

import "dddkit/domain/shared"

// Repository Customer repository interface
type Repository interface {
	shared.Repository[*Customer, int64]
}
