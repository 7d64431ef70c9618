// Package customer is the sample aggregate with a store-generated int64 identity.
// Customers are removed physically and carry audit stamps but no version.
package customer

import (
	"errors"
	"strconv"
	"time"

	"dddkit/domain/shared"
)

var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrInvalidName  = errors.New("name cannot be empty")
)

// Customer aggregate root. The id stays zero until the store assigns one on insert.
type Customer struct {
	shared.AggregateRoot[int64]
	shared.AuditTrail

	events shared.EventRecorder
	name   string
	email  Email
	tier   Tier
	active bool
}

// Register creates a transient, active customer on the standard tier
func Register(name, email string) (*Customer, error) {
	if name == "" {
		return nil, shared.NewValidationError("Customer", "name", ErrInvalidName.Error())
	}
	addr, err := NewEmail(email)
	if err != nil {
		return nil, err
	}

	root, events := shared.NewAggregateRoot[int64](0)
	c := &Customer{
		AggregateRoot: root,
		events:        events,
		name:          name,
		email:         addr,
		tier:          TierStandard,
		active:        true,
	}
	c.events.Record(RegisteredEvent{
		BaseEvent: shared.NewBaseEvent(EventRegistered, ""),
		Email:     addr.Value(),
	})
	return c, nil
}

// ReconstructionDTO carries persisted state back into a Customer
type ReconstructionDTO struct {
	ID         int64
	Name       string
	Email      string
	TierID     int
	Active     bool
	CreatedAt  time.Time
	CreatedBy  string
	ModifiedAt *time.Time
	ModifiedBy string
}

// RebuildFromDTO reconstructs a Customer without recording events
func RebuildFromDTO(dto ReconstructionDTO) (*Customer, error) {
	tier, err := shared.FromValue[Tier](dto.TierID)
	if err != nil {
		return nil, err
	}
	root, events := shared.NewAggregateRoot(dto.ID)
	return &Customer{
		AggregateRoot: root,
		AuditTrail:    shared.RestoreAuditTrail(dto.CreatedAt, dto.CreatedBy, dto.ModifiedAt, dto.ModifiedBy),
		events:        events,
		name:          dto.Name,
		email:         Email{value: dto.Email},
		tier:          tier,
		active:        dto.Active,
	}, nil
}

// ============================================================================
// Behavior
// ============================================================================

func (c *Customer) Rename(name string) error {
	if name == "" {
		return shared.NewValidationError("Customer", "name", ErrInvalidName.Error())
	}
	c.name = name
	return nil
}

// Promote moves the customer one tier up
func (c *Customer) Promote() error {
	if err := shared.CheckRule(activeCustomerRule{active: c.active}); err != nil {
		return err
	}
	next := c.tier.Next()
	if next == c.tier {
		return nil
	}
	c.tier = next
	c.events.Record(PromotedEvent{
		BaseEvent: shared.NewBaseEvent(EventPromoted, c.aggregateKey()),
		Tier:      next.Name(),
	})
	return nil
}

func (c *Customer) Deactivate() {
	if !c.active {
		return
	}
	c.active = false
	c.events.Record(DeactivatedEvent{BaseEvent: shared.NewBaseEvent(EventDeactivated, c.aggregateKey())})
}

func (c *Customer) Activate() { c.active = true }

func (c *Customer) Name() string   { return c.name }
func (c *Customer) Email() Email   { return c.email }
func (c *Customer) Tier() Tier     { return c.tier }
func (c *Customer) IsActive() bool { return c.active }

func (c *Customer) aggregateKey() string {
	if c.IsTransient() {
		return ""
	}
	return strconv.FormatInt(c.ID(), 10)
}

type activeCustomerRule struct {
	active bool
}

func (r activeCustomerRule) IsBroken() bool  { return !r.active }
func (r activeCustomerRule) Message() string { return "customer is not active" }

var (
	_ shared.Aggregate[int64] = (*Customer)(nil)
	_ shared.Auditable        = (*Customer)(nil)
)
