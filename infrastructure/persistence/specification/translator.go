// Package specification turns domain criteria into gorm conditions.
// Criteria are matched by concrete type against a registry, so only criteria a
// store has registered reach the database; anything else is an error rather than
// a silently widened query.
package specification

import (
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dddkit/domain/shared"
)

// ErrUnsupportedCriterion is returned for criteria with no registered translation
var ErrUnsupportedCriterion = errors.New("criterion cannot be translated to SQL")

// Scope is a gorm scope, applied with db.Scopes
type Scope = func(*gorm.DB) *gorm.DB

type rule[T any] func(criterion shared.Criterion[T]) clause.Expression

// Translator maps criterion types of one aggregate to gorm clause expressions.
// Register everything before sharing it; lookups take no lock.
type Translator[T any] struct {
	rules map[reflect.Type]rule[T]
}

func NewTranslator[T any]() *Translator[T] {
	return &Translator[T]{rules: make(map[reflect.Type]rule[T])}
}

// Register adds the translation for criteria of type C
func Register[T any, C shared.Criterion[T]](t *Translator[T], translate func(criterion C) clause.Expression) {
	t.rules[reflect.TypeFor[C]()] = func(c shared.Criterion[T]) clause.Expression {
		return translate(c.(C))
	}
}

// Supports reports whether criterion, including every nested operand, can be translated
func (t *Translator[T]) Supports(criterion shared.Criterion[T]) bool {
	_, err := t.Expression(criterion)
	return err == nil
}

// Expression translates criterion. And, Or and Not become grouped conditions.
func (t *Translator[T]) Expression(criterion shared.Criterion[T]) (clause.Expression, error) {
	switch c := criterion.(type) {
	case nil:
		return nil, nil
	case shared.AndCriterion[T]:
		return t.binary(c.Left, c.Right, func(l, r clause.Expression) clause.Expression { return clause.And(l, r) })
	case shared.OrCriterion[T]:
		return t.binary(c.Left, c.Right, func(l, r clause.Expression) clause.Expression { return clause.Or(l, r) })
	case shared.NotCriterion[T]:
		inner, err := t.Expression(c.Inner)
		if err != nil {
			return nil, err
		}
		return negate(inner), nil
	}

	translate, ok := t.rules[reflect.TypeOf(criterion)]
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedCriterion, criterion)
	}
	return translate(criterion), nil
}

// negate keeps the native negated operator for leaf conditions. Grouped
// conditions are wrapped first: gorm negates each operand of a bare AND,
// which would turn NOT (a AND b) into NOT a AND NOT b.
func negate(inner clause.Expression) clause.Expression {
	switch inner.(type) {
	case clause.AndConditions, clause.OrConditions, clause.NotConditions:
		return clause.Not(clause.Expr{SQL: "(?)", Vars: []any{inner}})
	}
	return clause.Not(inner)
}

func (t *Translator[T]) binary(left, right shared.Criterion[T], join func(l, r clause.Expression) clause.Expression) (clause.Expression, error) {
	l, err := t.Expression(left)
	if err != nil {
		return nil, err
	}
	r, err := t.Expression(right)
	if err != nil {
		return nil, err
	}
	return join(l, r), nil
}

// Scope translates criterion into a gorm scope. A nil criterion yields a no-op scope.
func (t *Translator[T]) Scope(criterion shared.Criterion[T]) (Scope, error) {
	expr, err := t.Expression(criterion)
	if err != nil {
		return nil, err
	}
	return func(db *gorm.DB) *gorm.DB {
		if expr == nil {
			return db
		}
		return db.Where(expr)
	}, nil
}

// Column is a shorthand for an unqualified column reference
func Column(name string) clause.Column {
	return clause.Column{Name: name}
}
