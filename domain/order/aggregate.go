/*
Package order is the sample aggregate that exercises every persistence feature:
a string UUID identity, soft deletion, optimistic versioning, audit stamps, a
smart-enum status, business rules and domain events.

DDD Core Principles:
1. The package does not depend on infrastructure
2. All fields are private, behavior exposed through methods
3. Business rules are checked through shared.CheckRule
*/
package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"dddkit/domain/shared"
)

// Order Order aggregate root
// All modifications to lines must go through the Order aggregate root
type Order struct {
	shared.AggregateRoot[string]
	shared.SoftDeleteState
	shared.AuditTrail

	events     shared.EventRecorder
	customerID int64
	currency   string
	lines      []Line
	status     Status
	version    int
}

// Line is an entity inside the order aggregate; it has no identity outside its order
type Line struct {
	id          string
	productID   string
	productName string
	quantity    int
	unitPrice   shared.Money
}

// LineRequest describes a line to add
type LineRequest struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   shared.Money
}

// ============================================================================
// Factory Methods
// ============================================================================

// NewOrder creates a pending order and records PlacedEvent.
// All lines must be priced in currency.
func NewOrder(customerID int64, currency string, requests []LineRequest) (*Order, error) {
	if customerID <= 0 {
		return nil, shared.NewValidationError("Order", "customer_id", ErrEmptyCustomer.Error())
	}
	if err := shared.CheckRule(mustHaveLinesRule{lines: len(requests)}); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate order ID: %w", err)
	}

	root, events := shared.NewAggregateRoot(id.String())
	o := &Order{
		AggregateRoot: root,
		events:        events,
		customerID:    customerID,
		currency:      currency,
		status:        StatusPending,
	}
	for _, req := range requests {
		line, err := o.newLine(req)
		if err != nil {
			return nil, err
		}
		o.lines = append(o.lines, line)
	}

	o.events.Record(NewPlacedEvent(o.ID(), customerID, o.Total()))
	return o, nil
}

func (o *Order) newLine(req LineRequest) (Line, error) {
	if req.ProductID == "" {
		return Line{}, shared.NewValidationError("Order", "product_id", ErrInvalidProduct.Error())
	}
	if err := shared.CheckRule(positiveQuantityRule{productID: req.ProductID, quantity: req.Quantity}); err != nil {
		return Line{}, err
	}
	if err := shared.CheckRule(singleCurrencyRule{orderCurrency: o.currency, lineCurrency: req.UnitPrice.Currency()}); err != nil {
		return Line{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Line{}, fmt.Errorf("failed to generate order line ID: %w", err)
	}
	return Line{
		id:          id.String(),
		productID:   req.ProductID,
		productName: req.ProductName,
		quantity:    req.Quantity,
		unitPrice:   req.UnitPrice,
	}, nil
}

// ============================================================================
// ReconstructionDTO - For Repository Layer Use Only
// ============================================================================

// ReconstructionDTO carries persisted state back into an Order
type ReconstructionDTO struct {
	ID         string
	CustomerID int64
	Currency   string
	Lines      []Line
	StatusID   int
	Version    int
	Deleted    bool
	DeletedAt  *time.Time
	DeletedBy  string
	CreatedAt  time.Time
	CreatedBy  string
	ModifiedAt *time.Time
	ModifiedBy string
}

// RebuildFromDTO reconstructs an Order without recording events
func RebuildFromDTO(dto ReconstructionDTO) (*Order, error) {
	status, err := StatusFromID(dto.StatusID)
	if err != nil {
		return nil, err
	}
	root, events := shared.NewAggregateRoot(dto.ID)
	return &Order{
		AggregateRoot:   root,
		SoftDeleteState: shared.RestoreSoftDeleteState(dto.Deleted, dto.DeletedAt, dto.DeletedBy),
		AuditTrail:      shared.RestoreAuditTrail(dto.CreatedAt, dto.CreatedBy, dto.ModifiedAt, dto.ModifiedBy),
		events:          events,
		customerID:      dto.CustomerID,
		currency:        dto.Currency,
		lines:           append([]Line(nil), dto.Lines...),
		status:          status,
		version:         dto.Version,
	}, nil
}

// LineDTO carries a persisted line
type LineDTO struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

// RebuildLine reconstructs a line priced in currency
func RebuildLine(dto LineDTO, currency string) Line {
	return Line{
		id:          dto.ID,
		productID:   dto.ProductID,
		productName: dto.ProductName,
		quantity:    dto.Quantity,
		unitPrice:   shared.NewMoney(dto.UnitPrice, currency),
	}
}

// DTO flattens a line for storage
func (l Line) DTO() LineDTO {
	return LineDTO{
		ID:          l.id,
		ProductID:   l.productID,
		ProductName: l.productName,
		Quantity:    l.quantity,
		UnitPrice:   l.unitPrice.Amount(),
	}
}

// ============================================================================
// Behavior
// ============================================================================

// AddLine appends a line to a pending order
func (o *Order) AddLine(req LineRequest) (string, error) {
	if err := shared.CheckRule(onlyPendingCanChangeRule{status: o.status}); err != nil {
		return "", err
	}
	line, err := o.newLine(req)
	if err != nil {
		return "", err
	}
	o.lines = append(o.lines, line)
	o.events.Record(LineAddedEvent{
		BaseEvent: shared.NewBaseEvent(EventLineAdded, o.ID()),
		ProductID: line.productID,
		Quantity:  line.quantity,
	})
	return line.id, nil
}

// RemoveLine removes a line from a pending order. The last line cannot be removed.
func (o *Order) RemoveLine(lineID string) error {
	if err := shared.CheckRule(onlyPendingCanChangeRule{status: o.status}); err != nil {
		return err
	}
	for i, line := range o.lines {
		if line.id != lineID {
			continue
		}
		if err := shared.CheckRule(mustHaveLinesRule{lines: len(o.lines) - 1}); err != nil {
			return err
		}
		o.lines = append(o.lines[:i:i], o.lines[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
}

func (o *Order) Confirm() error { return o.moveTo(StatusConfirmed, EventConfirmed) }

func (o *Order) Ship() error { return o.moveTo(StatusShipped, EventShipped) }

func (o *Order) Deliver() error { return o.moveTo(StatusDelivered, EventDelivered) }

// Cancel is allowed from any status that is not final
func (o *Order) Cancel(reason string) error {
	if err := shared.CheckRule(statusTransitionRule{from: o.status, to: StatusCancelled}); err != nil {
		return err
	}
	o.status = StatusCancelled
	o.events.Record(CancelledEvent{
		BaseEvent: shared.NewBaseEvent(EventCancelled, o.ID()),
		Reason:    reason,
	})
	return nil
}

func (o *Order) moveTo(next Status, eventName string) error {
	if err := shared.CheckRule(statusTransitionRule{from: o.status, to: next}); err != nil {
		return err
	}
	prev := o.status
	o.status = next
	o.events.Record(StatusChangedEvent{
		BaseEvent: shared.NewBaseEvent(eventName, o.ID()),
		From:      prev.Name(),
		To:        next.Name(),
	})
	return nil
}

// IncrementVersion is called by the store once an update has been committed
func (o *Order) IncrementVersion() { o.version++ }

// ============================================================================
// Getters
// ============================================================================

func (o *Order) CustomerID() int64 { return o.customerID }
func (o *Order) Currency() string  { return o.currency }
func (o *Order) Status() Status    { return o.status }
func (o *Order) Version() int      { return o.version }

// Lines returns a copy of the order lines
func (o *Order) Lines() []Line {
	return append([]Line(nil), o.lines...)
}

// Total sums the line subtotals
func (o *Order) Total() shared.Money {
	var amount int64
	for _, line := range o.lines {
		amount += line.Subtotal().Amount()
	}
	return shared.NewMoney(amount, o.currency)
}

func (l Line) ID() string              { return l.id }
func (l Line) ProductID() string       { return l.productID }
func (l Line) ProductName() string     { return l.productName }
func (l Line) Quantity() int           { return l.quantity }
func (l Line) UnitPrice() shared.Money { return l.unitPrice }
func (l Line) Subtotal() shared.Money  { return l.unitPrice.Multiply(int64(l.quantity)) }

var (
	_ shared.Aggregate[string] = (*Order)(nil)
	_ shared.SoftDeletable     = (*Order)(nil)
	_ shared.Auditable         = (*Order)(nil)
	_ shared.Versioned         = (*Order)(nil)
)
