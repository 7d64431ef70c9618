package po

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"dddkit/domain/shared"
)

// OutboxEventPO Outbox event persistence object
// Implements transactional outbox pattern for reliable event publishing
type OutboxEventPO struct {
	ID          string         `gorm:"primaryKey;size:64"`
	AggregateID string         `gorm:"size:64;index"`
	EventType   string         `gorm:"size:100;index;not null"` // e.g. "order.placed"
	Payload     datatypes.JSON `gorm:"not null"`
	Status      string         `gorm:"size:20;index;not null"` // PENDING, PROCESSING, PUBLISHED, FAILED
	RetryCount  int            `gorm:"not null"`
	LastError   string         `gorm:"size:512"`
	OccurredAt  time.Time
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName Specify table name
func (OutboxEventPO) TableName() string {
	return "outbox_events"
}

// EventStatus Outbox event status enum
type EventStatus string

const (
	EventStatusPending    EventStatus = "PENDING"
	EventStatusProcessing EventStatus = "PROCESSING"
	EventStatusPublished  EventStatus = "PUBLISHED"
	EventStatusFailed     EventStatus = "FAILED"
)

// FromDomainEvent serializes event into a pending outbox row.
// Concrete events are marshalled as-is, so their exported fields form the payload.
func FromDomainEvent(event shared.DomainEvent) (*OutboxEventPO, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", event.EventName(), err)
	}

	eventID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate outbox event ID: %w", err)
	}

	now := time.Now().UTC()
	row := &OutboxEventPO{
		ID:         eventID.String(),
		EventType:  event.EventName(),
		Payload:    datatypes.JSON(payload),
		Status:     string(EventStatusPending),
		OccurredAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if scoped, ok := event.(shared.AggregateScoped); ok {
		row.AggregateID = scoped.AggregateID()
	}
	if ts, ok := event.(shared.Timestamped); ok {
		row.OccurredAt = ts.OccurredOn().UTC()
	}
	return row, nil
}

// ToEventData decodes the payload (for debugging/testing)
func (po *OutboxEventPO) ToEventData() (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(po.Payload, &data); err != nil {
		return nil, err
	}
	return data, nil
}
