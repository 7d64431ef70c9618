package shared

import (
	"fmt"
	"reflect"
)

// Identity is anything identified by an ID of type ID.
// Concrete entities embed Entity[ID] and are handled by pointer.
type Identity[ID comparable] interface {
	ID() ID
}

// Entity is the identity primitive: two entities are the same when their ids match,
// regardless of the rest of their state. The zero value of ID means transient.
type Entity[ID comparable] struct {
	id ID
}

// NewEntity creates an entity with the given id. Pass the zero value for a transient entity.
func NewEntity[ID comparable](id ID) Entity[ID] {
	return Entity[ID]{id: id}
}

func (e *Entity[ID]) ID() ID {
	return e.id
}

// IsTransient reports whether the entity has not been given a persisted identity yet
func (e *Entity[ID]) IsTransient() bool {
	var zero ID
	return e.id == zero
}

// AssignID sets the identity of a transient entity, as storage adapters do after
// generating a key. It refuses to overwrite an existing identity.
func (e *Entity[ID]) AssignID(id ID) error {
	if !e.IsTransient() {
		return fmt.Errorf("%w: %v", ErrIdentityAssigned, e.id)
	}
	e.id = id
	return nil
}

// ============================================================================
// Equality
// ============================================================================

// Equal reports whether a and b denote the same entity:
// the same instance, or the same concrete type with equal, non-transient ids.
// A nil operand is never equal to anything.
func Equal[ID comparable](a, b Identity[ID]) bool {
	if isNil(a) || isNil(b) {
		return false
	}
	if sameInstance(a, b) {
		return true
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	var zero ID
	idA, idB := a.ID(), b.ID()
	if idA == zero || idB == zero {
		return false
	}
	return idA == idB
}

// EqualOrBothNil is Equal with symmetric nil handling: nil equals nil, nil never equals a value.
func EqualOrBothNil[ID comparable](a, b Identity[ID]) bool {
	aNil, bNil := isNil(a), isNil(b)
	if aNil || bNil {
		return aNil && bNil
	}
	return Equal(a, b)
}

// IdentityKey is a comparable key for maps and sets of entities.
// Equal entities always produce equal keys.
type IdentityKey struct {
	Type reflect.Type
	ID   any
	Ref  uintptr
}

// HashKey derives the key from the id once the entity is persisted, and from its
// address while it is transient, so distinct transient instances never collide.
func HashKey[ID comparable](e Identity[ID]) IdentityKey {
	if isNil(e) {
		return IdentityKey{}
	}

	key := IdentityKey{Type: reflect.TypeOf(e)}
	var zero ID
	if id := e.ID(); id != zero {
		key.ID = id
		return key
	}
	if v := reflect.ValueOf(e); v.Kind() == reflect.Pointer {
		key.Ref = v.Pointer()
	}
	return key
}

// Describe renders an entity as "{TypeName} [Id={id}]"
func Describe[ID comparable](e Identity[ID]) string {
	if isNil(e) {
		return "<nil>"
	}
	return fmt.Sprintf("%s [Id=%v]", TypeName(e), e.ID())
}

// TypeName returns the package qualified type name of v, without pointer markers
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func sameInstance(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Pointer || vb.Kind() != reflect.Pointer {
		return false
	}
	return va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
}
