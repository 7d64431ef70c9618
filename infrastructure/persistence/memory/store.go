package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"dddkit/domain/shared"
	"dddkit/infrastructure/persistence"
)

// ErrUnknownSortField is returned for sort keys without a comparison
var ErrUnknownSortField = errors.New("sort key has no comparison")

// Aggregate is an aggregate the store can track by reference
type Aggregate[ID comparable] interface {
	shared.Aggregate[ID]
	comparable
}

type StoreOption[ID comparable] func(*storeOptions[ID])

type storeOptions[ID comparable] struct {
	nextID func() ID
}

// WithIDGenerator lets the store give transient aggregates an id on insert.
// The row pointer must implement persistence.IdentifiedRow.
func WithIDGenerator[ID comparable](next func() ID) StoreOption[ID] {
	return func(o *storeOptions[ID]) { o.nextID = next }
}

// Store is the in-memory adapter for one aggregate type inside one unit of work
type Store[A Aggregate[ID], ID comparable, R any] struct {
	uow     *UnitOfWork
	name    string
	mapper  persistence.Mapper[A, ID, R]
	tracker *persistence.ChangeTracker[A, R]
	table   *table[ID, R]
	nextID  func() ID
}

// NewStore binds a store for the rows of tableName to uow
func NewStore[A Aggregate[ID], ID comparable, R any](uow *UnitOfWork, tableName string, mapper persistence.Mapper[A, ID, R], opts ...StoreOption[ID]) (*Store[A, ID, R], error) {
	t, err := tableFor[ID, R](uow.db, tableName)
	if err != nil {
		return nil, err
	}
	var o storeOptions[ID]
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store[A, ID, R]{
		uow:     uow,
		name:    tableName,
		mapper:  mapper,
		tracker: persistence.NewChangeTracker[A, R](),
		table:   t,
		nextID:  o.nextID,
	}
	uow.register(s)
	return s, nil
}

func (s *Store[A, ID, R]) lookup(id ID) (A, persistence.EntryState, bool) {
	for _, e := range s.tracker.Entries() {
		if !e.Aggregate.IsTransient() && e.Aggregate.ID() == id {
			return e.Aggregate, e.State, true
		}
	}
	var zero A
	return zero, persistence.StateUnchanged, false
}

func (s *Store[A, ID, R]) IsAttached(aggregate A) bool {
	return s.tracker.IsAttached(aggregate)
}

func (s *Store[A, ID, R]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.uow.db.mu.RLock()
	defer s.uow.db.mu.RUnlock()
	_, ok := s.table.rows[id]
	return ok, nil
}

func (s *Store[A, ID, R]) MarkForInsert(aggregate A) {
	s.displace(aggregate)
	s.tracker.Add(aggregate)
}

func (s *Store[A, ID, R]) MarkForUpdate(aggregate A) {
	s.displace(aggregate)
	s.tracker.Update(aggregate)
}

func (s *Store[A, ID, R]) MarkForRemoval(aggregate A) {
	s.displace(aggregate)
	s.tracker.Remove(aggregate)
}

// displace detaches an earlier instance of the same row
func (s *Store[A, ID, R]) displace(aggregate A) {
	if aggregate.IsTransient() {
		return
	}
	id := aggregate.ID()
	s.tracker.DetachOthers(aggregate, func(other A) bool {
		return !other.IsTransient() && other.ID() == id
	})
}

func (s *Store[A, ID, R]) GetByID(ctx context.Context, id ID) (A, bool, error) {
	var zero A
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if a, state, ok := s.lookup(id); ok {
		if state == persistence.StateDeleted {
			return zero, false, nil
		}
		return a, true, nil
	}

	s.uow.db.mu.RLock()
	row, ok := s.table.rows[id]
	s.uow.db.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}

	a, err := s.mapper.FromRow(row)
	if err != nil {
		return zero, false, err
	}
	s.tracker.Attach(a, s.mapper.ToRow(a))
	return a, true, nil
}

// Find evaluates criteria and ordering against committed rows. Includes need no work
// because aggregates are always loaded whole.
func (s *Store[A, ID, R]) Find(ctx context.Context, spec *shared.Specification[A]) ([]A, error) {
	if spec == nil {
		spec = shared.MatchAll[A]()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.uow.db.mu.RLock()
	rows := s.table.scan()
	s.uow.db.mu.RUnlock()

	matched := make([]A, 0, len(rows))
	for _, row := range rows {
		a, err := s.mapper.FromRow(row)
		if err != nil {
			return nil, err
		}
		if spec.IsSatisfiedBy(ctx, a) {
			matched = append(matched, a)
		}
	}

	if key, desc, ok := spec.Ordering(); ok {
		if key.Compare == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSortField, key.Field)
		}
		slices.SortStableFunc(matched, func(x, y A) int {
			if desc {
				return key.Compare(y, x)
			}
			return key.Compare(x, y)
		})
	}

	if spec.IsPagingEnabled() {
		skip := min(spec.Skip(), len(matched))
		end := min(skip+spec.Take(), len(matched))
		matched = matched[skip:end]
	}

	if spec.IsNoTracking() {
		return matched, nil
	}
	result := make([]A, 0, len(matched))
	for _, a := range matched {
		if tracked, state, ok := s.lookup(a.ID()); ok {
			if state != persistence.StateDeleted {
				result = append(result, tracked)
			}
			continue
		}
		s.tracker.Attach(a, s.mapper.ToRow(a))
		result = append(result, a)
	}
	return result, nil
}

// ============================================================================
// Commit participation
// ============================================================================

func (s *Store[A, ID, R]) detectChanges() {
	s.tracker.DetectChanges(s.mapper.ToRow)
}

func (s *Store[A, ID, R]) sources() []shared.EventSource {
	entries := s.tracker.Entries()
	out := make([]shared.EventSource, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Aggregate)
	}
	return out
}

// stage validates every pending entry against the committed rows and returns the
// table writes and aggregate effects without applying them. The caller holds the
// database write lock.
func (s *Store[A, ID, R]) stage(stamp auditStamp) (staged, error) {
	var out staged
	inserted := make(map[ID]bool)

	for _, e := range s.tracker.Entries() {
		a := e.Aggregate
		switch e.State {
		case persistence.StateAdded:
			row := s.mapper.ToRow(a)
			if stamped := persistence.StampCreated(a, &row, stamp.at, stamp.by); stamped != nil {
				out.effects = append(out.effects, stamped)
			}
			id := a.ID()
			if a.IsTransient() {
				rowID, ok := any(&row).(persistence.IdentifiedRow[ID])
				if s.nextID == nil || !ok {
					return staged{}, fmt.Errorf("%s: %w", s.name, persistence.ErrTransientIdentity)
				}
				id = s.nextID()
				rowID.SetID(id)
				out.effects = append(out.effects, func() { _ = a.AssignID(id) })
			}
			if _, exists := s.table.rows[id]; exists || inserted[id] {
				return staged{}, fmt.Errorf("%s %v: %w", s.name, id, ErrDuplicateKey)
			}
			inserted[id] = true
			version := 0
			if v, ok := any(a).(shared.Versioned); ok {
				version = v.Version()
			}
			out.writes = append(out.writes, func() { s.table.insert(id, row, version) })

		case persistence.StateModified:
			id := a.ID()
			stored, exists := s.table.versions[id]
			if !exists {
				return staged{}, shared.NewConcurrencyConflictError(a, id, nil)
			}
			row := s.mapper.ToRow(a)
			if stamped := persistence.StampModified(a, &row, stamp.at, stamp.by); stamped != nil {
				out.effects = append(out.effects, stamped)
			}
			version := stored
			if v, ok := any(a).(shared.Versioned); ok {
				if stored != v.Version() {
					return staged{}, shared.NewConcurrencyConflictError(a, id, nil)
				}
				version = stored + 1
				if vr, ok := any(&row).(persistence.VersionedRow); ok {
					vr.SetVersion(version)
				}
				out.effects = append(out.effects, v.IncrementVersion)
			}
			out.writes = append(out.writes, func() { s.table.insert(id, row, version) })

		case persistence.StateDeleted:
			id := a.ID()
			stored, exists := s.table.versions[id]
			if !exists {
				return staged{}, shared.NewConcurrencyConflictError(a, id, nil)
			}
			if v, ok := any(a).(shared.Versioned); ok && stored != v.Version() {
				return staged{}, shared.NewConcurrencyConflictError(a, id, nil)
			}
			out.writes = append(out.writes, func() { s.table.remove(id) })

		default:
			continue
		}
		out.affected++
	}
	return out, nil
}

func (s *Store[A, ID, R]) acceptChanges() {
	s.tracker.AcceptChanges(s.mapper.ToRow)
}

func (s *Store[A, ID, R]) clear() {
	s.tracker.Clear()
}
