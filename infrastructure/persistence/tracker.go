package persistence

import "reflect"

// EntryState is the change-tracking state of an attached aggregate
type EntryState int

const (
	StateUnchanged EntryState = iota
	StateAdded
	StateModified
	StateDeleted
)

func (s EntryState) String() string {
	switch s {
	case StateUnchanged:
		return "unchanged"
	case StateAdded:
		return "added"
	case StateModified:
		return "modified"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

// Entry is one attached aggregate together with the row it had when last loaded or committed
type Entry[A any, R any] struct {
	Aggregate   A
	State       EntryState
	Snapshot    R
	HasSnapshot bool
}

// ChangeTracker is the attach-state bookkeeping shared by the stores.
// It is not safe for concurrent use; a unit of work belongs to one goroutine.
type ChangeTracker[A comparable, R any] struct {
	entries map[A]*Entry[A, R]
	order   []A
}

func NewChangeTracker[A comparable, R any]() *ChangeTracker[A, R] {
	return &ChangeTracker[A, R]{entries: make(map[A]*Entry[A, R])}
}

func (t *ChangeTracker[A, R]) IsAttached(aggregate A) bool {
	_, ok := t.entries[aggregate]
	return ok
}

// State returns the entry state and whether aggregate is attached
func (t *ChangeTracker[A, R]) State(aggregate A) (EntryState, bool) {
	e, ok := t.entries[aggregate]
	if !ok {
		return StateUnchanged, false
	}
	return e.State, true
}

// Attach starts tracking a loaded aggregate as unchanged
func (t *ChangeTracker[A, R]) Attach(aggregate A, snapshot R) {
	if _, ok := t.entries[aggregate]; ok {
		return
	}
	t.put(&Entry[A, R]{Aggregate: aggregate, State: StateUnchanged, Snapshot: snapshot, HasSnapshot: true})
}

// Add records an insert
func (t *ChangeTracker[A, R]) Add(aggregate A) {
	if e, ok := t.entries[aggregate]; ok {
		if e.State == StateDeleted {
			e.State = StateModified
		}
		return
	}
	t.put(&Entry[A, R]{Aggregate: aggregate, State: StateAdded})
}

// Update records a full-row overwrite, attaching the aggregate if needed
func (t *ChangeTracker[A, R]) Update(aggregate A) {
	if e, ok := t.entries[aggregate]; ok {
		if e.State != StateAdded {
			e.State = StateModified
		}
		return
	}
	t.put(&Entry[A, R]{Aggregate: aggregate, State: StateModified})
}

// Remove records a physical delete. Removing an aggregate that was only added
// simply forgets it.
func (t *ChangeTracker[A, R]) Remove(aggregate A) {
	if e, ok := t.entries[aggregate]; ok {
		if e.State == StateAdded {
			t.Detach(aggregate)
			return
		}
		e.State = StateDeleted
		return
	}
	t.put(&Entry[A, R]{Aggregate: aggregate, State: StateDeleted})
}

// DetectChanges promotes unchanged entries whose current row differs from their snapshot
func (t *ChangeTracker[A, R]) DetectChanges(toRow func(A) R) {
	for _, a := range t.order {
		e := t.entries[a]
		if e.State == StateUnchanged && e.HasSnapshot && !reflect.DeepEqual(toRow(a), e.Snapshot) {
			e.State = StateModified
		}
	}
}

// Entries returns the attached entries in attach order
func (t *ChangeTracker[A, R]) Entries() []*Entry[A, R] {
	out := make([]*Entry[A, R], 0, len(t.order))
	for _, a := range t.order {
		out = append(out, t.entries[a])
	}
	return out
}

// Find returns the first attached aggregate matching pred that is not pending deletion
func (t *ChangeTracker[A, R]) Find(pred func(A) bool) (A, bool) {
	for _, a := range t.order {
		if e := t.entries[a]; e.State != StateDeleted && pred(a) {
			return a, true
		}
	}
	var zero A
	return zero, false
}

// HasChanges reports whether a commit would write anything
func (t *ChangeTracker[A, R]) HasChanges() bool {
	for _, e := range t.entries {
		if e.State != StateUnchanged {
			return true
		}
	}
	return false
}

// AcceptChanges is called after a successful commit: deleted entries are detached and
// the rest become unchanged with a fresh snapshot.
func (t *ChangeTracker[A, R]) AcceptChanges(toRow func(A) R) {
	for _, a := range append([]A(nil), t.order...) {
		e := t.entries[a]
		if e.State == StateDeleted {
			t.Detach(a)
			continue
		}
		e.State = StateUnchanged
		e.Snapshot = toRow(a)
		e.HasSnapshot = true
	}
}

func (t *ChangeTracker[A, R]) Detach(aggregate A) {
	if _, ok := t.entries[aggregate]; !ok {
		return
	}
	delete(t.entries, aggregate)
	for i, a := range t.order {
		if a == aggregate {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
}

// DetachOthers detaches every attached aggregate other than aggregate for which
// same reports true. Stores use it so one row is never tracked through two instances.
func (t *ChangeTracker[A, R]) DetachOthers(aggregate A, same func(A) bool) {
	for _, a := range append([]A(nil), t.order...) {
		if a != aggregate && same(a) {
			t.Detach(a)
		}
	}
}

// Clear detaches everything
func (t *ChangeTracker[A, R]) Clear() {
	t.entries = make(map[A]*Entry[A, R])
	t.order = nil
}

func (t *ChangeTracker[A, R]) Len() int { return len(t.order) }

func (t *ChangeTracker[A, R]) put(e *Entry[A, R]) {
	t.entries[e.Aggregate] = e
	t.order = append(t.order, e.Aggregate)
}
