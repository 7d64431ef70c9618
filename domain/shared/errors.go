/*
Package shared holds the building blocks every domain package uses: entity identity,
smart enumerations, business rules, aggregate roots with an event buffer, query
specifications and the error values shared across layers.

Error strategy:
 1. Sentinel errors classify failures for errors.Is().
 2. Typed errors carry context (rule, aggregate type, key) and capture the call
    stack when created; the stack is formatted only when someone asks for it.
 3. Nothing here knows about transports or status codes.
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// Sentinel Errors
// ============================================================================

var (
	// ErrNotFound a resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict the resource changed underneath the caller or violates uniqueness
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput argument validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrRuleViolation a business rule reported itself broken
	ErrRuleViolation = errors.New("business rule violation")

	// ErrEnumerationNotFound no enumeration member matches the requested id or name
	ErrEnumerationNotFound = errors.New("enumeration member not found")

	// ErrConcurrencyConflict the stored row changed since it was loaded
	ErrConcurrencyConflict = fmt.Errorf("concurrency conflict: %w", ErrConflict)

	// ErrIdentityAssigned an identity can only be assigned while the entity is transient
	ErrIdentityAssigned = errors.New("identity already assigned")

	// ErrInvalidPaging skip and take must both be non-negative
	ErrInvalidPaging = fmt.Errorf("invalid paging: %w", ErrInvalidInput)

	// ErrSpecificationSealed the specification builder was used after construction
	ErrSpecificationSealed = errors.New("specification is sealed")
)

// ============================================================================
// Domain Error
// ============================================================================

// DomainError structured error with business context and the stack of its creation point
type DomainError struct {
	// Err sentinel used by errors.Is()
	Err error

	// Entity name of the entity involved ("order", "customer")
	Entity string

	// Message human readable description
	Message string

	// Field optional field name for validation errors
	Field string

	stack []uintptr
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Stack formats the captured frames on demand
func (e *DomainError) Stack() []string {
	return FormatStack(e.stack)
}

// ============================================================================
// Stack helpers
// ============================================================================

// CaptureStack records the current call stack.
// skip is usually 3: runtime.Callers, CaptureStack and the constructor.
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack renders frames as "file:line function", skipping runtime frames.
// At most 10 frames are returned.
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) >= 10 {
			break
		}
	}
	return result
}

// Stacker errors that can report where they were created
type Stacker interface {
	Stack() []string
}

// ============================================================================
// Constructors
// ============================================================================

// NewNotFoundError creates a "not found" domain error
func NewNotFoundError(entity string) error {
	return &DomainError{
		Err:     ErrNotFound,
		Entity:  entity,
		Message: entity + " not found",
		stack:   CaptureStack(3),
	}
}

// NewConflictError creates a "conflict" domain error
func NewConflictError(entity, message string) error {
	return &DomainError{
		Err:     ErrConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewValidationError creates an "invalid input" domain error
func NewValidationError(entity, field, reason string) error {
	return &DomainError{
		Err:     ErrInvalidInput,
		Entity:  entity,
		Field:   field,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// ============================================================================
// Typed errors
// ============================================================================

// EntityNotFoundError is returned by callers that require an entity to exist.
// Repositories report absence as a normal result; this error is for the layer above.
type EntityNotFoundError struct {
	Entity string
	Key    any
	stack  []uintptr
}

// NewEntityNotFoundError builds the error for the given entity name and key
func NewEntityNotFoundError(entity string, key any) *EntityNotFoundError {
	return &EntityNotFoundError{Entity: entity, Key: key, stack: CaptureStack(3)}
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("Entity '%s' with key '%v' was not found.", e.Entity, e.Key)
}

func (e *EntityNotFoundError) Unwrap() error { return ErrNotFound }

func (e *EntityNotFoundError) Stack() []string { return FormatStack(e.stack) }

// ConcurrencyConflictError reports that a row changed between load and save.
// The caller decides whether to reload and retry.
type ConcurrencyConflictError struct {
	AggregateType string
	ID            any
	Err           error
	stack         []uintptr
}

// NewConcurrencyConflictError builds the conflict error for aggregate. inner may be nil.
func NewConcurrencyConflictError(aggregate any, id any, inner error) *ConcurrencyConflictError {
	return &ConcurrencyConflictError{
		AggregateType: TypeName(aggregate),
		ID:            id,
		Err:           inner,
		stack:         CaptureStack(3),
	}
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf(
		"A concurrency conflict occurred while saving the aggregate '%s' with ID '%v'. The data may have been modified by another instance.",
		e.AggregateType, e.ID,
	)
}

// Unwrap exposes both the sentinel and the storage error that triggered the conflict
func (e *ConcurrencyConflictError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConcurrencyConflict}
	}
	return []error{ErrConcurrencyConflict, e.Err}
}

func (e *ConcurrencyConflictError) Stack() []string { return FormatStack(e.stack) }

var (
	_ Stacker = (*DomainError)(nil)
	_ Stacker = (*EntityNotFoundError)(nil)
	_ Stacker = (*ConcurrencyConflictError)(nil)
)
