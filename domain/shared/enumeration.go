package shared

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sync"
)

// Enum is implemented by every smart enumeration member.
type Enum interface {
	ID() int
	Name() string
}

// Enumeration is embedded by concrete enumeration types:
//
//	type CardType struct{ shared.Enumeration }
//
//	var (
//		Debit  = &CardType{shared.NewEnumeration(1, "Debit")}
//		Credit = &CardType{shared.NewEnumeration(2, "Credit")}
//
//		_ = shared.RegisterEnumeration(Debit, Credit)
//	)
type Enumeration struct {
	id   int
	name string
}

func NewEnumeration(id int, name string) Enumeration {
	return Enumeration{id: id, name: name}
}

func (e Enumeration) ID() int        { return e.id }
func (e Enumeration) Name() string   { return e.name }
func (e Enumeration) String() string { return e.name }

// ============================================================================
// Registry
// ============================================================================

var enumRegistry = struct {
	sync.RWMutex
	members map[reflect.Type][]Enum
}{members: make(map[reflect.Type][]Enum)}

// RegisterEnumeration adds members to the closed set of T. It is meant to run from a
// package-level var block; a duplicate id or name is a programming error and panics.
// The members are returned so registration can be a single declaration.
func RegisterEnumeration[T Enum](members ...T) []T {
	typ := reflect.TypeFor[T]()

	enumRegistry.Lock()
	defer enumRegistry.Unlock()

	set := enumRegistry.members[typ]
	for _, m := range members {
		for _, existing := range set {
			if existing.ID() == m.ID() {
				panic(fmt.Sprintf("enumeration %s: duplicate id %d", typ, m.ID()))
			}
			if existing.Name() == m.Name() {
				panic(fmt.Sprintf("enumeration %s: duplicate name %q", typ, m.Name()))
			}
		}
		set = append(set, m)
	}
	slices.SortFunc(set, CompareEnumerations[Enum])
	enumRegistry.members[typ] = set
	return members
}

// All yields every registered member of T in id order. Each call re-enumerates the set.
func All[T Enum]() iter.Seq[T] {
	return func(yield func(T) bool) {
		enumRegistry.RLock()
		set := slices.Clone(enumRegistry.members[reflect.TypeFor[T]()])
		enumRegistry.RUnlock()

		for _, m := range set {
			if !yield(m.(T)) {
				return
			}
		}
	}
}

// FromValue returns the member of T with the given id
func FromValue[T Enum](id int) (T, error) {
	return parseEnumeration[T](id, "value", func(m T) bool { return m.ID() == id })
}

// FromDisplayName returns the member of T with the given name. Names are case sensitive.
func FromDisplayName[T Enum](name string) (T, error) {
	return parseEnumeration[T](name, "display name", func(m T) bool { return m.Name() == name })
}

func parseEnumeration[T Enum](value any, description string, match func(T) bool) (T, error) {
	for m := range All[T]() {
		if match(m) {
			return m, nil
		}
	}
	var zero T
	return zero, &EnumerationNotFoundError{
		Value:       value,
		Description: description,
		Type:        reflect.TypeFor[T]().String(),
	}
}

// SameEnumeration reports whether a and b are the same member: same concrete type and id.
// Members of unrelated enumerations never match even when their ids do.
func SameEnumeration(a, b Enum) bool {
	if isNil(a) || isNil(b) {
		return false
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b) && a.ID() == b.ID()
}

// CompareEnumerations orders members by id
func CompareEnumerations[T Enum](a, b T) int {
	return cmp.Compare(a.ID(), b.ID())
}

// EnumerationNotFoundError is returned by FromValue and FromDisplayName
type EnumerationNotFoundError struct {
	Value       any
	Description string
	Type        string
}

func (e *EnumerationNotFoundError) Error() string {
	return fmt.Sprintf("'%v' is not a valid %s in %s", e.Value, e.Description, e.Type)
}

func (e *EnumerationNotFoundError) Unwrap() error { return ErrEnumerationNotFound }
