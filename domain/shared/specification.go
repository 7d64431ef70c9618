package shared

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// ============================================================================
// Criteria
// ============================================================================

// Criterion is the filter part of a specification. Stores that cannot evaluate a
// criterion in memory translate it by concrete type, so criteria should be small
// named structs rather than closures when they need to reach a database.
type Criterion[T any] interface {
	IsSatisfiedBy(ctx context.Context, candidate T) bool
}

// CriterionFunc adapts a function to Criterion. It can only be evaluated in memory.
type CriterionFunc[T any] func(ctx context.Context, candidate T) bool

func (f CriterionFunc[T]) IsSatisfiedBy(ctx context.Context, candidate T) bool {
	return f(ctx, candidate)
}

// AndCriterion is satisfied when both sides are
type AndCriterion[T any] struct {
	Left  Criterion[T]
	Right Criterion[T]
}

func (c AndCriterion[T]) IsSatisfiedBy(ctx context.Context, candidate T) bool {
	return c.Left.IsSatisfiedBy(ctx, candidate) && c.Right.IsSatisfiedBy(ctx, candidate)
}

func And[T any](left, right Criterion[T]) Criterion[T] {
	return AndCriterion[T]{Left: left, Right: right}
}

// OrCriterion is satisfied when either side is
type OrCriterion[T any] struct {
	Left  Criterion[T]
	Right Criterion[T]
}

func (c OrCriterion[T]) IsSatisfiedBy(ctx context.Context, candidate T) bool {
	return c.Left.IsSatisfiedBy(ctx, candidate) || c.Right.IsSatisfiedBy(ctx, candidate)
}

func Or[T any](left, right Criterion[T]) Criterion[T] {
	return OrCriterion[T]{Left: left, Right: right}
}

// NotCriterion inverts Inner
type NotCriterion[T any] struct {
	Inner Criterion[T]
}

func (c NotCriterion[T]) IsSatisfiedBy(ctx context.Context, candidate T) bool {
	return !c.Inner.IsSatisfiedBy(ctx, candidate)
}

func Not[T any](inner Criterion[T]) Criterion[T] {
	return NotCriterion[T]{Inner: inner}
}

// ============================================================================
// Ordering and includes
// ============================================================================

// SortKey names the storage field to order by and how to compare two candidates in memory
type SortKey[T any] struct {
	Field   string
	Compare func(a, b T) int
}

// OrderKey builds a SortKey from a field name and an ordered key extractor
func OrderKey[T any, K cmp.Ordered](field string, key func(T) K) SortKey[T] {
	return SortKey[T]{
		Field:   field,
		Compare: func(a, b T) int { return cmp.Compare(key(a), key(b)) },
	}
}

// Include is an eager-load path declared through a typed accessor
type Include[T any] struct {
	Path     string
	Accessor func(T) any
}

// IncludeOf ties a storage path to the accessor that exposes the related data
func IncludeOf[T any, N any](path string, accessor func(T) N) Include[T] {
	return Include[T]{Path: path, Accessor: func(t T) any { return accessor(t) }}
}

// ============================================================================
// Specification
// ============================================================================

// Specification describes a query: filter, eager loads, ordering, paging and tracking.
// It is built once through BuildSpecification and read-only afterwards, so a single
// value can be shared across goroutines and executions.
type Specification[T any] struct {
	criteria          Criterion[T]
	includes          []Include[T]
	includePaths      []string
	orderBy           *SortKey[T]
	orderByDescending *SortKey[T]
	skip              int
	take              int
	pagingEnabled     bool
	noTracking        bool
}

// SpecificationBuilder is the construction-time surface of a Specification.
// It stops working once BuildSpecification returns.
type SpecificationBuilder[T any] struct {
	spec   *Specification[T]
	sealed bool
}

// BuildSpecification creates a specification matching criteria (nil matches everything)
// and lets build configure the rest. An error from build aborts construction.
func BuildSpecification[T any](criteria Criterion[T], build func(b *SpecificationBuilder[T]) error) (*Specification[T], error) {
	spec := &Specification[T]{criteria: criteria}
	if build == nil {
		return spec, nil
	}

	b := &SpecificationBuilder[T]{spec: spec}
	defer func() { b.sealed = true }()
	if err := build(b); err != nil {
		return nil, err
	}
	return spec, nil
}

// MatchAll returns a specification with no criteria and default settings
func MatchAll[T any]() *Specification[T] {
	return &Specification[T]{}
}

func (b *SpecificationBuilder[T]) checkOpen() {
	if b.sealed {
		panic(ErrSpecificationSealed)
	}
}

// AddInclude adds a typed eager-load path
func (b *SpecificationBuilder[T]) AddInclude(include Include[T]) *SpecificationBuilder[T] {
	b.checkOpen()
	b.spec.includes = append(b.spec.includes, include)
	return b
}

// AddIncludePath adds an eager-load path by name, e.g. "Lines" or "Customer.Address"
func (b *SpecificationBuilder[T]) AddIncludePath(path string) *SpecificationBuilder[T] {
	b.checkOpen()
	b.spec.includePaths = append(b.spec.includePaths, path)
	return b
}

// ApplyPaging enables paging with both skip and take set together
func (b *SpecificationBuilder[T]) ApplyPaging(skip, take int) error {
	b.checkOpen()
	if skip < 0 || take < 0 {
		return fmt.Errorf("%w: skip=%d take=%d", ErrInvalidPaging, skip, take)
	}
	b.spec.skip = skip
	b.spec.take = take
	b.spec.pagingEnabled = true
	return nil
}

// ApplyOrderBy sets ascending ordering. The last ordering applied wins, so this
// replaces any descending ordering set earlier.
func (b *SpecificationBuilder[T]) ApplyOrderBy(key SortKey[T]) *SpecificationBuilder[T] {
	b.checkOpen()
	b.spec.orderBy = &key
	b.spec.orderByDescending = nil
	return b
}

// ApplyOrderByDescending sets descending ordering and replaces any ascending ordering
func (b *SpecificationBuilder[T]) ApplyOrderByDescending(key SortKey[T]) *SpecificationBuilder[T] {
	b.checkOpen()
	b.spec.orderByDescending = &key
	b.spec.orderBy = nil
	return b
}

// ApplyNoTracking tells the store that results will not be saved back
func (b *SpecificationBuilder[T]) ApplyNoTracking() *SpecificationBuilder[T] {
	b.checkOpen()
	b.spec.noTracking = true
	return b
}

// ----------------------------------------------------------------------------
// Read accessors
// ----------------------------------------------------------------------------

// Criteria returns the filter, or nil when every candidate matches
func (s *Specification[T]) Criteria() Criterion[T] { return s.criteria }

func (s *Specification[T]) Includes() []Include[T] { return slices.Clone(s.includes) }

func (s *Specification[T]) IncludePaths() []string { return slices.Clone(s.includePaths) }

// AllIncludePaths merges typed and string includes, dropping duplicates
func (s *Specification[T]) AllIncludePaths() []string {
	paths := make([]string, 0, len(s.includes)+len(s.includePaths))
	for _, inc := range s.includes {
		paths = append(paths, inc.Path)
	}
	paths = append(paths, s.includePaths...)
	slices.Sort(paths)
	return slices.Compact(paths)
}

func (s *Specification[T]) OrderBy() (SortKey[T], bool) {
	if s.orderBy == nil {
		return SortKey[T]{}, false
	}
	return *s.orderBy, true
}

func (s *Specification[T]) OrderByDescending() (SortKey[T], bool) {
	if s.orderByDescending == nil {
		return SortKey[T]{}, false
	}
	return *s.orderByDescending, true
}

// Ordering returns the effective sort key and its direction
func (s *Specification[T]) Ordering() (key SortKey[T], descending bool, ok bool) {
	if s.orderByDescending != nil {
		return *s.orderByDescending, true, true
	}
	if s.orderBy != nil {
		return *s.orderBy, false, true
	}
	return SortKey[T]{}, false, false
}

func (s *Specification[T]) Skip() int             { return s.skip }
func (s *Specification[T]) Take() int             { return s.take }
func (s *Specification[T]) IsPagingEnabled() bool { return s.pagingEnabled }
func (s *Specification[T]) IsNoTracking() bool    { return s.noTracking }

// IsSatisfiedBy evaluates only the criteria part
func (s *Specification[T]) IsSatisfiedBy(ctx context.Context, candidate T) bool {
	return s.criteria == nil || s.criteria.IsSatisfiedBy(ctx, candidate)
}
