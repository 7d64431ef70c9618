package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DomainEvent is an immutable fact raised by an aggregate.
// The name is the routing key for handlers and the outbox.
type DomainEvent interface {
	EventName() string
}

// Timestamped events report when they happened
type Timestamped interface {
	OccurredOn() time.Time
}

// AggregateScoped events report the aggregate that raised them
type AggregateScoped interface {
	AggregateID() string
}

// BaseEvent is embeddable metadata for concrete events
type BaseEvent struct {
	Name       string    `json:"event_name"`
	Aggregate  string    `json:"aggregate_id"`
	OccurredAt time.Time `json:"occurred_on"`
}

// NewBaseEvent stamps the event with the current UTC time
func NewBaseEvent(name, aggregateID string) BaseEvent {
	return BaseEvent{Name: name, Aggregate: aggregateID, OccurredAt: time.Now().UTC()}
}

func (e BaseEvent) EventName() string     { return e.Name }
func (e BaseEvent) AggregateID() string   { return e.Aggregate }
func (e BaseEvent) OccurredOn() time.Time { return e.OccurredAt }

// ValidateEvent checks the metadata an event must carry before dispatch
func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if event.EventName() == "" {
		return errors.New("event name cannot be empty")
	}
	if ts, ok := event.(Timestamped); ok && ts.OccurredOn().IsZero() {
		return fmt.Errorf("event %s: occurred on time cannot be zero", event.EventName())
	}
	return nil
}

// ============================================================================
// Dispatch
// ============================================================================

// EventDispatcher delivers committed events to in-process handlers
type EventDispatcher interface {
	Dispatch(ctx context.Context, events ...DomainEvent) error
}

// EventHandler reacts to one kind of event
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	Name() string
}

// EventPublishResult is one entry of the bus history
type EventPublishResult struct {
	EventName   string    `json:"event_name"`
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

const maxHistory = 1000

// EventBus is a synchronous in-process dispatcher.
// Handlers for an event run in subscription order; a failing handler does not stop the others.
type EventBus struct {
	handlers  map[string][]EventHandler
	mu        sync.RWMutex
	history   []EventPublishResult
	muHistory sync.Mutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
	}
}

// Dispatch publishes events in order and joins the errors of all of them
func (bus *EventBus) Dispatch(ctx context.Context, events ...DomainEvent) error {
	var errs []error
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := bus.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish delivers a single event to its handlers
func (bus *EventBus) Publish(ctx context.Context, event DomainEvent) error {
	if err := ValidateEvent(event); err != nil {
		return err
	}

	bus.mu.RLock()
	handlers := append([]EventHandler(nil), bus.handlers[event.EventName()]...)
	bus.mu.RUnlock()

	result := EventPublishResult{
		EventName:   event.EventName(),
		Success:     true,
		PublishedAt: time.Now(),
	}
	if len(handlers) == 0 {
		result.Message = "no handlers registered for this event"
		bus.record(result)
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", handler.Name(), err))
		}
	}
	if len(errs) > 0 {
		result.Success = false
		result.Message = fmt.Sprintf("%d handlers failed", len(errs))
		bus.record(result)
		return fmt.Errorf("event %s: %w", event.EventName(), errors.Join(errs...))
	}

	bus.record(result)
	return nil
}

func (bus *EventBus) record(result EventPublishResult) {
	bus.muHistory.Lock()
	defer bus.muHistory.Unlock()

	bus.history = append(bus.history, result)
	if len(bus.history) > maxHistory {
		bus.history = bus.history[len(bus.history)-maxHistory:]
	}
}

func (bus *EventBus) Subscribe(eventName string, handler EventHandler) error {
	if eventName == "" {
		return errors.New("event name cannot be empty")
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	for _, h := range bus.handlers[eventName] {
		if h.Name() == handler.Name() {
			return fmt.Errorf("handler %s already subscribed to %s", handler.Name(), eventName)
		}
	}
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	return nil
}

func (bus *EventBus) Unsubscribe(eventName string, handler EventHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	handlers := bus.handlers[eventName]
	for i, h := range handlers {
		if h.Name() == handler.Name() {
			bus.handlers[eventName] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// History returns a copy of the most recent publish results
func (bus *EventBus) History() []EventPublishResult {
	bus.muHistory.Lock()
	defer bus.muHistory.Unlock()

	history := make([]EventPublishResult, len(bus.history))
	copy(history, bus.history)
	return history
}

// FuncHandler adapts a function to EventHandler
type FuncHandler struct {
	name string
	fn   func(context.Context, DomainEvent) error
}

func NewFuncHandler(name string, fn func(context.Context, DomainEvent) error) *FuncHandler {
	if name == "" {
		name = fmt.Sprintf("func-handler-%d", time.Now().UnixNano())
	}
	return &FuncHandler{name: name, fn: fn}
}

func (h *FuncHandler) Handle(ctx context.Context, event DomainEvent) error {
	return h.fn(ctx, event)
}

func (h *FuncHandler) Name() string {
	return h.name
}

var _ EventDispatcher = (*EventBus)(nil)
