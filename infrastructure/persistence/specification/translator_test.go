package specification_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dddkit/domain/shared"
	"dddkit/infrastructure/persistence/specification"
)

type item struct {
	ID    int64
	Price int64
	Color string
}

type cheaperThan struct{ Price int64 }

func (c cheaperThan) IsSatisfiedBy(_ context.Context, i *item) bool { return i.Price < c.Price }

type colored struct{ Color string }

func (c colored) IsSatisfiedBy(_ context.Context, i *item) bool { return i.Color == c.Color }

func newTranslator() *specification.Translator[*item] {
	t := specification.NewTranslator[*item]()
	specification.Register(t, func(c cheaperThan) clause.Expression {
		return clause.Lt{Column: specification.Column("price"), Value: c.Price}
	})
	specification.Register(t, func(c colored) clause.Expression {
		return clause.Eq{Column: specification.Column("color"), Value: c.Color}
	})
	return t
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&item{}))
	return db
}

var fixtures = []item{
	{ID: 1, Price: 5, Color: "red"},
	{ID: 2, Price: 15, Color: "red"},
	{ID: 3, Price: 5, Color: "blue"},
	{ID: 4, Price: 25, Color: "green"},
}

// The SQL translation must select exactly the rows the in-memory evaluation accepts
func TestTranslator_AgreesWithInMemoryEvaluation(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Create(&fixtures).Error)
	tr := newTranslator()

	tests := []struct {
		name     string
		criteria shared.Criterion[*item]
		want     []int64
	}{
		{"single", colored{"red"}, []int64{1, 2}},
		{"and", shared.And[*item](colored{"red"}, cheaperThan{10}), []int64{1}},
		{"or", shared.Or[*item](colored{"blue"}, colored{"green"}), []int64{3, 4}},
		{"not", shared.Not[*item](colored{"red"}), []int64{3, 4}},
		{"and of or", shared.And[*item](shared.Or[*item](colored{"red"}, colored{"blue"}), cheaperThan{10}), []int64{1, 3}},
		{"not of and", shared.Not[*item](shared.And[*item](colored{"red"}, cheaperThan{10})), []int64{2, 3, 4}},
		{"not of or", shared.Not[*item](shared.Or[*item](colored{"red"}, cheaperThan{10})), []int64{4}},
		{"not of not of and", shared.Not[*item](shared.Not[*item](shared.And[*item](colored{"red"}, cheaperThan{10}))), []int64{1}},
		{"match all", nil, []int64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inMemory []int64
			for _, f := range fixtures {
				if tt.criteria == nil || tt.criteria.IsSatisfiedBy(context.Background(), &f) {
					inMemory = append(inMemory, f.ID)
				}
			}
			assert.Equal(t, tt.want, inMemory)

			scope, err := tr.Scope(tt.criteria)
			require.NoError(t, err)

			var rows []item
			require.NoError(t, db.Scopes(scope).Order("id").Find(&rows).Error)
			var got []int64
			for _, r := range rows {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslator_NotUsesNegatedOperator(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	scope, err := newTranslator().Scope(shared.Not[*item](colored{"red"}))
	require.NoError(t, err)

	var rows []item
	stmt := db.Model(&item{}).Scopes(scope).Find(&rows).Statement
	assert.Contains(t, stmt.SQL.String(), "<>")
	assert.Equal(t, []any{"red"}, stmt.Vars)
}

func TestTranslator_NotOfAndNegatesTheWholeGroup(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	scope, err := newTranslator().Scope(shared.Not[*item](shared.And[*item](colored{"red"}, cheaperThan{10})))
	require.NoError(t, err)

	var rows []item
	sql := db.Model(&item{}).Scopes(scope).Find(&rows).Statement.SQL.String()
	assert.Contains(t, sql, "NOT ((")
	assert.NotContains(t, sql, "<>")
	assert.NotContains(t, sql, ">=")
}

func TestTranslator_UnsupportedCriterion(t *testing.T) {
	tr := newTranslator()
	closure := shared.CriterionFunc[*item](func(context.Context, *item) bool { return true })

	_, err := tr.Scope(closure)
	assert.ErrorIs(t, err, specification.ErrUnsupportedCriterion)

	_, err = tr.Scope(shared.And[*item](colored{"red"}, shared.Not[*item](closure)))
	assert.ErrorIs(t, err, specification.ErrUnsupportedCriterion, "nested operands are checked too")

	assert.True(t, tr.Supports(shared.Or[*item](colored{"red"}, cheaperThan{3})))
	assert.False(t, tr.Supports(closure))
}
