package shared

// AggregateRoot is the entry point of a consistency boundary. Embed it in concrete
// aggregates; it adds an ordered domain event buffer to the identity primitive.
//
// Only the aggregate appends events, through the EventRecorder handed out by
// NewAggregateRoot. Keep the recorder in an unexported field:
//
//	type Order struct {
//		shared.AggregateRoot[string]
//		events shared.EventRecorder
//	}
//
//	func NewOrder(id string) *Order {
//		root, events := shared.NewAggregateRoot(id)
//		return &Order{AggregateRoot: root, events: events}
//	}
type AggregateRoot[ID comparable] struct {
	Entity[ID]
	buffer *eventBuffer
}

type eventBuffer struct {
	events []DomainEvent
}

// EventRecorder appends to the event buffer of the aggregate it was created with
type EventRecorder struct {
	buffer *eventBuffer
}

// Record appends event to the buffer in call order
func (r EventRecorder) Record(event DomainEvent) {
	if r.buffer == nil {
		return
	}
	r.buffer.events = append(r.buffer.events, event)
}

// NewAggregateRoot creates the root with id (zero for transient) and its event recorder
func NewAggregateRoot[ID comparable](id ID) (AggregateRoot[ID], EventRecorder) {
	buf := &eventBuffer{}
	return AggregateRoot[ID]{Entity: NewEntity(id), buffer: buf}, EventRecorder{buffer: buf}
}

// DomainEvents returns a snapshot of the buffered events. Later appends do not affect it.
func (a *AggregateRoot[ID]) DomainEvents() []DomainEvent {
	if a.buffer == nil || len(a.buffer.events) == 0 {
		return []DomainEvent{}
	}
	out := make([]DomainEvent, len(a.buffer.events))
	copy(out, a.buffer.events)
	return out
}

// ClearDomainEvents empties the buffer. Called by the unit of work once events are dispatched.
func (a *AggregateRoot[ID]) ClearDomainEvents() {
	if a.buffer == nil {
		return
	}
	a.buffer.events = nil
}

// EventSource is the type-erased view the unit of work uses to drain events
type EventSource interface {
	DomainEvents() []DomainEvent
	ClearDomainEvents()
}

// Aggregate is the contract repositories and stores work against
type Aggregate[ID comparable] interface {
	Identity[ID]
	EventSource
	IsTransient() bool
	AssignID(id ID) error
}

// ============================================================================
// Markers
// ============================================================================

// ValueObject has no identity and is compared by its attributes
type ValueObject[T any] interface {
	Equals(other T) bool
}

// DomainService groups domain logic that does not belong to a single aggregate
type DomainService interface {
	ServiceName() string
}
