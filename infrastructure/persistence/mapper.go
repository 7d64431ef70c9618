package persistence

import (
	"time"

	"dddkit/domain/shared"
)

// Mapper converts between an aggregate and its persistence row.
// Rows are plain structs owned by the store; aggregates never see them.
type Mapper[A any, ID comparable, R any] interface {
	ToRow(aggregate A) R
	FromRow(row R) (A, error)
	RowID(row R) ID
}

// VersionedRow is implemented by row pointers that carry an optimistic lock column
type VersionedRow interface {
	SetVersion(version int)
}

// IdentifiedRow is implemented by row pointers whose key a store may generate
type IdentifiedRow[ID comparable] interface {
	SetID(id ID)
}

// AuditedRow is implemented by row pointers with audit columns
type AuditedRow interface {
	StampCreated(at time.Time, by string)
	StampModified(at time.Time, by string)
}

// StampCreated writes the creation stamp into row and returns the effect that
// stamps aggregate once the commit has succeeded. It returns nil when aggregate
// is not auditable.
func StampCreated(aggregate, row any, at time.Time, by string) func() {
	audited, ok := aggregate.(shared.Auditable)
	if !ok {
		return nil
	}
	if r, ok := row.(AuditedRow); ok {
		r.StampCreated(at, by)
	}
	return func() { audited.StampCreated(at, by) }
}

// StampModified is StampCreated for updates
func StampModified(aggregate, row any, at time.Time, by string) func() {
	audited, ok := aggregate.(shared.Auditable)
	if !ok {
		return nil
	}
	if r, ok := row.(AuditedRow); ok {
		r.StampModified(at, by)
	}
	return func() { audited.StampModified(at, by) }
}
