package shared

import "time"

// SoftDeletable aggregates are flagged as deleted instead of being physically removed
type SoftDeletable interface {
	IsDeleted() bool
	DeletedAt() *time.Time
	MarkDeleted(at time.Time)
}

// SoftDeleteState is embeddable storage for SoftDeletable
type SoftDeleteState struct {
	deleted   bool
	deletedAt *time.Time
	deletedBy string
}

// RestoreSoftDeleteState rebuilds the state from persisted columns
func RestoreSoftDeleteState(deleted bool, at *time.Time, by string) SoftDeleteState {
	return SoftDeleteState{deleted: deleted, deletedAt: at, deletedBy: by}
}

func (s *SoftDeleteState) IsDeleted() bool { return s.deleted }

func (s *SoftDeleteState) DeletedAt() *time.Time { return s.deletedAt }

func (s *SoftDeleteState) DeletedBy() string { return s.deletedBy }

// MarkDeleted sets the flag and stores at in UTC
func (s *SoftDeleteState) MarkDeleted(at time.Time) {
	at = at.UTC()
	s.deleted = true
	s.deletedAt = &at
}

// SetDeletedBy records who deleted the aggregate; stores call it from the request actor
func (s *SoftDeleteState) SetDeletedBy(actor string) { s.deletedBy = actor }

// Restore undoes a soft delete
func (s *SoftDeleteState) Restore() {
	s.deleted = false
	s.deletedAt = nil
	s.deletedBy = ""
}

// Auditable aggregates get creation and modification stamps from the store on commit
type Auditable interface {
	StampCreated(at time.Time, by string)
	StampModified(at time.Time, by string)
}

// AuditTrail is embeddable storage for Auditable
type AuditTrail struct {
	createdAt  time.Time
	createdBy  string
	modifiedAt *time.Time
	modifiedBy string
}

// RestoreAuditTrail rebuilds the trail from persisted columns
func RestoreAuditTrail(createdAt time.Time, createdBy string, modifiedAt *time.Time, modifiedBy string) AuditTrail {
	return AuditTrail{createdAt: createdAt, createdBy: createdBy, modifiedAt: modifiedAt, modifiedBy: modifiedBy}
}

func (a *AuditTrail) CreatedAt() time.Time   { return a.createdAt }
func (a *AuditTrail) CreatedBy() string      { return a.createdBy }
func (a *AuditTrail) ModifiedAt() *time.Time { return a.modifiedAt }
func (a *AuditTrail) ModifiedBy() string     { return a.modifiedBy }

func (a *AuditTrail) StampCreated(at time.Time, by string) {
	a.createdAt = at.UTC()
	a.createdBy = by
}

func (a *AuditTrail) StampModified(at time.Time, by string) {
	at = at.UTC()
	a.modifiedAt = &at
	a.modifiedBy = by
}

// Versioned aggregates take part in optimistic concurrency control.
// Version is the value read from storage; stores call IncrementVersion after a successful update.
type Versioned interface {
	Version() int
	IncrementVersion()
}
