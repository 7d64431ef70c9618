package shared_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dddkit/domain/shared"
)

type sample struct {
	X     int
	Name  string
	Lines []string
}

type xGreaterThan struct{ Min int }

func (c xGreaterThan) IsSatisfiedBy(_ context.Context, s sample) bool { return s.X > c.Min }

func byX() shared.SortKey[sample] {
	return shared.OrderKey("x", func(s sample) int { return s.X })
}

func TestBuildSpecification_PagingAndOrdering(t *testing.T) {
	spec, err := shared.BuildSpecification[sample](xGreaterThan{Min: 5}, func(b *shared.SpecificationBuilder[sample]) error {
		b.ApplyOrderBy(byX())
		return b.ApplyPaging(10, 20)
	})
	require.NoError(t, err)

	assert.True(t, spec.IsPagingEnabled())
	assert.Equal(t, 10, spec.Skip())
	assert.Equal(t, 20, spec.Take())
	key, desc, ok := spec.Ordering()
	require.True(t, ok)
	assert.False(t, desc)
	assert.Equal(t, "x", key.Field)
	assert.Negative(t, key.Compare(sample{X: 1}, sample{X: 2}))
	assert.False(t, spec.IsNoTracking())
}

func TestBuildSpecification_NilCriteriaMatchesEverything(t *testing.T) {
	spec, err := shared.BuildSpecification[sample](nil, nil)
	require.NoError(t, err)

	assert.Nil(t, spec.Criteria())
	assert.True(t, spec.IsSatisfiedBy(context.Background(), sample{X: -100}))
	assert.False(t, spec.IsPagingEnabled())
	_, _, ok := spec.Ordering()
	assert.False(t, ok)
}

func TestBuildSpecification_LastOrderingWins(t *testing.T) {
	spec, err := shared.BuildSpecification[sample](nil, func(b *shared.SpecificationBuilder[sample]) error {
		b.ApplyOrderBy(byX()).ApplyOrderByDescending(shared.OrderKey("name", func(s sample) string { return s.Name }))
		return nil
	})
	require.NoError(t, err)

	_, hasAsc := spec.OrderBy()
	assert.False(t, hasAsc)
	key, desc, ok := spec.Ordering()
	require.True(t, ok)
	assert.True(t, desc)
	assert.Equal(t, "name", key.Field)
}

func TestBuildSpecification_RejectsNegativePaging(t *testing.T) {
	spec, err := shared.BuildSpecification[sample](nil, func(b *shared.SpecificationBuilder[sample]) error {
		return b.ApplyPaging(-1, 10)
	})

	require.ErrorIs(t, err, shared.ErrInvalidPaging)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Nil(t, spec)
}

func TestBuildSpecification_BuilderIsSealedAfterConstruction(t *testing.T) {
	var leaked *shared.SpecificationBuilder[sample]
	_, err := shared.BuildSpecification[sample](nil, func(b *shared.SpecificationBuilder[sample]) error {
		leaked = b
		return nil
	})
	require.NoError(t, err)

	assert.PanicsWithValue(t, shared.ErrSpecificationSealed, func() { leaked.ApplyNoTracking() })
	assert.PanicsWithValue(t, shared.ErrSpecificationSealed, func() { _ = leaked.ApplyPaging(0, 1) })
}

func TestSpecification_IncludesAreAdditiveAndCopied(t *testing.T) {
	spec, err := shared.BuildSpecification[sample](nil, func(b *shared.SpecificationBuilder[sample]) error {
		b.AddInclude(shared.IncludeOf("Lines", func(s sample) []string { return s.Lines }))
		b.AddIncludePath("Owner").AddIncludePath("Lines")
		b.ApplyNoTracking()
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, spec.Includes(), 1)
	assert.Equal(t, []string{"Owner", "Lines"}, spec.IncludePaths())
	assert.Equal(t, []string{"Lines", "Owner"}, spec.AllIncludePaths())
	assert.True(t, spec.IsNoTracking())

	paths := spec.IncludePaths()
	paths[0] = "mutated"
	assert.Equal(t, "Owner", spec.IncludePaths()[0])

	got := spec.Includes()[0].Accessor(sample{Lines: []string{"a"}})
	assert.Equal(t, []string{"a"}, got)
}

func TestCriteriaComposition(t *testing.T) {
	ctx := context.Background()
	named := shared.CriterionFunc[sample](func(_ context.Context, s sample) bool { return s.Name == "keep" })

	tests := []struct {
		name      string
		criterion shared.Criterion[sample]
		candidate sample
		want      bool
	}{
		{"and both", shared.And[sample](xGreaterThan{5}, named), sample{X: 6, Name: "keep"}, true},
		{"and one", shared.And[sample](xGreaterThan{5}, named), sample{X: 6}, false},
		{"or one", shared.Or[sample](xGreaterThan{5}, named), sample{X: 1, Name: "keep"}, true},
		{"or none", shared.Or[sample](xGreaterThan{5}, named), sample{X: 1}, false},
		{"not", shared.Not[sample](xGreaterThan{5}), sample{X: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criterion.IsSatisfiedBy(ctx, tt.candidate))
		})
	}
}
