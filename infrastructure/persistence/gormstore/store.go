package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"dddkit/domain/shared"
	"dddkit/infrastructure/persistence"
	"dddkit/infrastructure/persistence/specification"
)

var (
	ErrUnknownInclude   = errors.New("include path is neither an association nor a column")
	ErrUnknownSortField = errors.New("sort field is not a column")
)

// Aggregate is an aggregate the store can track by reference
type Aggregate[ID comparable] interface {
	shared.Aggregate[ID]
	comparable
}

// Store is the gorm adapter for one aggregate type inside one unit of work.
// It records intents in a change tracker and writes them when the unit of work commits.
// GORM associations are not used for writes; an aggregate maps to a single row.
type Store[A Aggregate[ID], ID comparable, R any] struct {
	uow           *UnitOfWork
	mapper        persistence.Mapper[A, ID, R]
	tracker       *persistence.ChangeTracker[A, R]
	translator    *specification.Translator[A]
	schema        *schema.Schema
	pkColumn      string
	versionColumn string
}

// NewStore creates a store bound to uow. translator may be nil when the store is
// only used for lookups by id.
func NewStore[A Aggregate[ID], ID comparable, R any](uow *UnitOfWork, mapper persistence.Mapper[A, ID, R], translator *specification.Translator[A]) (*Store[A, ID, R], error) {
	stmt := &gorm.Statement{DB: uow.db}
	if err := stmt.Parse(new(R)); err != nil {
		return nil, fmt.Errorf("failed to parse row schema: %w", err)
	}
	if stmt.Schema.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("row %s has no primary key", stmt.Schema.Name)
	}

	s := &Store[A, ID, R]{
		uow:        uow,
		mapper:     mapper,
		tracker:    persistence.NewChangeTracker[A, R](),
		translator: translator,
		schema:     stmt.Schema,
		pkColumn:   stmt.Schema.PrioritizedPrimaryField.DBName,
	}
	if field := stmt.Schema.LookUpField("Version"); field != nil {
		s.versionColumn = field.DBName
	}
	uow.register(s)
	return s, nil
}

// conn returns the transaction of a running commit, or the base connection
func (s *Store[A, ID, R]) conn(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.uow.db.WithContext(ctx)
}

func (s *Store[A, ID, R]) byID(id ID) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: s.pkColumn}, Value: id}
}

// lookup finds the tracked aggregate with id, including pending deletes
func (s *Store[A, ID, R]) lookup(id ID) (A, persistence.EntryState, bool) {
	for _, e := range s.tracker.Entries() {
		if !e.Aggregate.IsTransient() && e.Aggregate.ID() == id {
			return e.Aggregate, e.State, true
		}
	}
	var zero A
	return zero, persistence.StateUnchanged, false
}

// ============================================================================
// persistence.Adapter
// ============================================================================

func (s *Store[A, ID, R]) IsAttached(aggregate A) bool {
	return s.tracker.IsAttached(aggregate)
}

func (s *Store[A, ID, R]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	var count int64
	if err := s.conn(ctx).Model(new(R)).Where(s.byID(id)).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkForInsert, MarkForUpdate and MarkForRemoval make aggregate the only tracked
// instance of its row; an instance attached earlier with the same id is detached.
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

func (s *Store[A, ID, R]) displace(aggregate A) {
	if aggregate.IsTransient() {
		return
	}
	id := aggregate.ID()
	s.tracker.DetachOthers(aggregate, func(other A) bool {
		return !other.IsTransient() && other.ID() == id
	})
}

// GetByID returns the tracked instance when there is one, so a unit of work sees a
// single object per row. Loaded aggregates are attached.
func (s *Store[A, ID, R]) GetByID(ctx context.Context, id ID) (A, bool, error) {
	var zero A
	if a, state, ok := s.lookup(id); ok {
		if state == persistence.StateDeleted {
			return zero, false, nil
		}
		return a, true, nil
	}

	var row R
	err := s.conn(ctx).Where(s.byID(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	a, err := s.mapper.FromRow(row)
	if err != nil {
		return zero, false, err
	}
	s.tracker.Attach(a, s.mapper.ToRow(a))
	return a, true, nil
}

// ============================================================================
// Queries
// ============================================================================

// Find applies criteria, includes, ordering, paging and the tracking hint, in that order.
// Criteria must be registered with the store's translator.
func (s *Store[A, ID, R]) Find(ctx context.Context, spec *shared.Specification[A]) ([]A, error) {
	if spec == nil {
		spec = shared.MatchAll[A]()
	}
	if spec.IsPagingEnabled() && spec.Take() == 0 {
		return []A{}, nil
	}

	q := s.conn(ctx).Model(new(R))

	if criteria := spec.Criteria(); criteria != nil {
		if s.translator == nil {
			return nil, fmt.Errorf("%w: %T", specification.ErrUnsupportedCriterion, criteria)
		}
		scope, err := s.translator.Scope(criteria)
		if err != nil {
			return nil, err
		}
		q = q.Scopes(scope)
	}

	for _, path := range spec.AllIncludePaths() {
		if _, ok := s.schema.Relationships.Relations[path]; ok {
			q = q.Preload(path)
			continue
		}
		if s.schema.LookUpField(path) != nil {
			continue
		}
		return nil, fmt.Errorf("%w: %q on %s", ErrUnknownInclude, path, s.schema.Name)
	}

	if key, desc, ok := spec.Ordering(); ok {
		field := s.schema.LookUpField(key.Field)
		if field == nil {
			return nil, fmt.Errorf("%w: %q on %s", ErrUnknownSortField, key.Field, s.schema.Name)
		}
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: field.DBName}, Desc: desc})
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: s.pkColumn}})

	if spec.IsPagingEnabled() {
		q = q.Offset(spec.Skip()).Limit(spec.Take())
	}

	var rows []R
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]A, 0, len(rows))
	for _, row := range rows {
		if !spec.IsNoTracking() {
			if a, state, ok := s.lookup(s.mapper.RowID(row)); ok {
				if state != persistence.StateDeleted {
					result = append(result, a)
				}
				continue
			}
		}
		a, err := s.mapper.FromRow(row)
		if err != nil {
			return nil, err
		}
		if !spec.IsNoTracking() {
			s.tracker.Attach(a, s.mapper.ToRow(a))
		}
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

// flush writes every pending entry through tx. The returned effects update the
// aggregates (audit stamps, generated ids, versions) and must run only after the
// commit succeeds.
func (s *Store[A, ID, R]) flush(tx *gorm.DB, stamp auditStamp) (int64, []func(), error) {
	var affected int64
	var effects []func()
	for _, e := range s.tracker.Entries() {
		var (
			n   int64
			fx  []func()
			err error
		)
		switch e.State {
		case persistence.StateAdded:
			n, fx, err = s.insert(tx, e.Aggregate, stamp)
		case persistence.StateModified:
			n, fx, err = s.update(tx, e.Aggregate, stamp)
		case persistence.StateDeleted:
			n, err = s.delete(tx, e.Aggregate)
		default:
			continue
		}
		if err != nil {
			return 0, nil, err
		}
		affected += n
		for _, effect := range fx {
			if effect != nil {
				effects = append(effects, effect)
			}
		}
	}
	return affected, effects, nil
}

func (s *Store[A, ID, R]) insert(tx *gorm.DB, a A, stamp auditStamp) (int64, []func(), error) {
	row := s.mapper.ToRow(a)
	stamped := persistence.StampCreated(a, &row, stamp.at, stamp.by)
	res := tx.Create(&row)
	if res.Error != nil {
		return 0, nil, res.Error
	}
	if !a.IsTransient() {
		return res.RowsAffected, []func(){stamped}, nil
	}

	var zero ID
	id := s.mapper.RowID(row)
	if id == zero {
		return 0, nil, fmt.Errorf("%s: %w", shared.TypeName(a), persistence.ErrTransientIdentity)
	}
	return res.RowsAffected, []func(){stamped, func() { _ = a.AssignID(id) }}, nil
}

// update overwrites the full row. Versioned aggregates are guarded by the version
// read from storage and bumped once the commit succeeds.
func (s *Store[A, ID, R]) update(tx *gorm.DB, a A, stamp auditStamp) (int64, []func(), error) {
	row := s.mapper.ToRow(a)
	effects := []func(){persistence.StampModified(a, &row, stamp.at, stamp.by)}
	q := tx.Model(&row).Select("*")

	versioned, ok := any(a).(shared.Versioned)
	if vr, rowOK := any(&row).(persistence.VersionedRow); ok && rowOK && s.versionColumn != "" {
		expected := versioned.Version()
		vr.SetVersion(expected + 1)
		q = q.Where(clause.Eq{Column: clause.Column{Name: s.versionColumn}, Value: expected})
		effects = append(effects, versioned.IncrementVersion)
	}

	res := q.Updates(&row)
	if res.Error != nil {
		return 0, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil, shared.NewConcurrencyConflictError(a, a.ID(), nil)
	}
	return res.RowsAffected, effects, nil
}

func (s *Store[A, ID, R]) delete(tx *gorm.DB, a A) (int64, error) {
	q := tx.Where(s.byID(a.ID()))
	if versioned, ok := any(a).(shared.Versioned); ok && s.versionColumn != "" {
		q = q.Where(clause.Eq{Column: clause.Column{Name: s.versionColumn}, Value: versioned.Version()})
	}
	res := q.Delete(new(R))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, shared.NewConcurrencyConflictError(a, a.ID(), nil)
	}
	return res.RowsAffected, nil
}

func (s *Store[A, ID, R]) acceptChanges() {
	s.tracker.AcceptChanges(s.mapper.ToRow)
}

func (s *Store[A, ID, R]) clear() {
	s.tracker.Clear()
}
