package po

import (
	"time"

	"dddkit/domain/customer"
	"dddkit/infrastructure/persistence"
)

// CustomerPO Customer persistence object; the id is generated by the database
type CustomerPO struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Name       string `gorm:"size:100;not null"`
	Email      string `gorm:"size:255;uniqueIndex;not null"`
	TierID     int    `gorm:"not null"`
	Active     bool   `gorm:"not null"`
	CreatedAt  time.Time
	CreatedBy  string `gorm:"size:64"`
	ModifiedAt *time.Time
	ModifiedBy string `gorm:"size:64"`
}

func (CustomerPO) TableName() string {
	return "customers"
}

func (r *CustomerPO) SetID(id int64) { r.ID = id }

func (r *CustomerPO) StampCreated(at time.Time, by string) {
	r.CreatedAt = at.UTC()
	r.CreatedBy = by
}

func (r *CustomerPO) StampModified(at time.Time, by string) {
	at = at.UTC()
	r.ModifiedAt = &at
	r.ModifiedBy = by
}

// CustomerMapper converts between customer.Customer and CustomerPO
type CustomerMapper struct{}

func (CustomerMapper) ToRow(c *customer.Customer) CustomerPO {
	return CustomerPO{
		ID:         c.ID(),
		Name:       c.Name(),
		Email:      c.Email().Value(),
		TierID:     c.Tier().ID(),
		Active:     c.IsActive(),
		CreatedAt:  c.CreatedAt(),
		CreatedBy:  c.CreatedBy(),
		ModifiedAt: c.ModifiedAt(),
		ModifiedBy: c.ModifiedBy(),
	}
}

func (CustomerMapper) FromRow(r CustomerPO) (*customer.Customer, error) {
	return customer.RebuildFromDTO(customer.ReconstructionDTO{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		TierID:     r.TierID,
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
		CreatedBy:  r.CreatedBy,
		ModifiedAt: r.ModifiedAt,
		ModifiedBy: r.ModifiedBy,
	})
}

func (CustomerMapper) RowID(r CustomerPO) int64 { return r.ID }

var (
	_ persistence.Mapper[*customer.Customer, int64, CustomerPO] = CustomerMapper{}
	_ persistence.IdentifiedRow[int64]                          = (*CustomerPO)(nil)
	_ persistence.AuditedRow                                    = (*CustomerPO)(nil)
)
