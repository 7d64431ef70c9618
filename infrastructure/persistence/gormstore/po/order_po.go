package po

import (
	"time"

	"gorm.io/datatypes"

	"dddkit/domain/order"
	"dddkit/infrastructure/persistence"
)

// OrderPO Order persistence object
// Note: Only used for database mapping, does not contain any business logic.
// Lines live in a JSON column so the aggregate is written in one row.
type OrderPO struct {
	ID         string                             `gorm:"primaryKey;size:64"`
	CustomerID int64                              `gorm:"index;not null"`
	Currency   string                             `gorm:"size:3;not null"`
	Lines      datatypes.JSONSlice[order.LineDTO] `gorm:"not null"`
	StatusID   int                                `gorm:"index;not null"`
	Total      int64                              `gorm:"not null"`
	Version    int                                `gorm:"not null"`
	Deleted    bool                               `gorm:"index;not null"`
	DeletedAt  *time.Time
	DeletedBy  string    `gorm:"size:64"`
	CreatedAt  time.Time `gorm:"index"`
	CreatedBy  string    `gorm:"size:64"`
	ModifiedAt *time.Time
	ModifiedBy string `gorm:"size:64"`
}

// TableName Specify table name
func (OrderPO) TableName() string {
	return "orders"
}

func (r *OrderPO) SetVersion(version int) { r.Version = version }

func (r *OrderPO) StampCreated(at time.Time, by string) {
	r.CreatedAt = at.UTC()
	r.CreatedBy = by
}

func (r *OrderPO) StampModified(at time.Time, by string) {
	at = at.UTC()
	r.ModifiedAt = &at
	r.ModifiedBy = by
}

// OrderMapper converts between order.Order and OrderPO
type OrderMapper struct{}

func (OrderMapper) ToRow(o *order.Order) OrderPO {
	lines := o.Lines()
	dtos := make([]order.LineDTO, len(lines))
	for i, line := range lines {
		dtos[i] = line.DTO()
	}
	return OrderPO{
		ID:         o.ID(),
		CustomerID: o.CustomerID(),
		Currency:   o.Currency(),
		Lines:      dtos,
		StatusID:   o.Status().ID(),
		Total:      o.Total().Amount(),
		Version:    o.Version(),
		Deleted:    o.IsDeleted(),
		DeletedAt:  o.DeletedAt(),
		DeletedBy:  o.DeletedBy(),
		CreatedAt:  o.CreatedAt(),
		CreatedBy:  o.CreatedBy(),
		ModifiedAt: o.ModifiedAt(),
		ModifiedBy: o.ModifiedBy(),
	}
}

func (OrderMapper) FromRow(r OrderPO) (*order.Order, error) {
	lines := make([]order.Line, len(r.Lines))
	for i, dto := range r.Lines {
		lines[i] = order.RebuildLine(dto, r.Currency)
	}
	return order.RebuildFromDTO(order.ReconstructionDTO{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Currency:   r.Currency,
		Lines:      lines,
		StatusID:   r.StatusID,
		Version:    r.Version,
		Deleted:    r.Deleted,
		DeletedAt:  r.DeletedAt,
		DeletedBy:  r.DeletedBy,
		CreatedAt:  r.CreatedAt,
		CreatedBy:  r.CreatedBy,
		ModifiedAt: r.ModifiedAt,
		ModifiedBy: r.ModifiedBy,
	})
}

func (OrderMapper) RowID(r OrderPO) string { return r.ID }

var (
	_ persistence.Mapper[*order.Order, string, OrderPO] = OrderMapper{}
	_ persistence.VersionedRow                          = (*OrderPO)(nil)
	_ persistence.AuditedRow                            = (*OrderPO)(nil)
)
