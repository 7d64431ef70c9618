package order

import "dddkit/domain/shared"

const (
	EventPlaced    = "order.placed"
	EventConfirmed = "order.confirmed"
	EventShipped   = "order.shipped"
	EventDelivered = "order.delivered"
	EventCancelled = "order.cancelled"
	EventLineAdded = "order.line_added"
)

type PlacedEvent struct {
	shared.BaseEvent
	CustomerID int64  `json:"customer_id"`
	Total      int64  `json:"total"`
	Currency   string `json:"currency"`
}

func NewPlacedEvent(orderID string, customerID int64, total shared.Money) PlacedEvent {
	return PlacedEvent{
		BaseEvent:  shared.NewBaseEvent(EventPlaced, orderID),
		CustomerID: customerID,
		Total:      total.Amount(),
		Currency:   total.Currency(),
	}
}

type LineAddedEvent struct {
	shared.BaseEvent
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// StatusChangedEvent covers confirm, ship and deliver
type StatusChangedEvent struct {
	shared.BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

type CancelledEvent struct {
	shared.BaseEvent
	Reason string `json:"reason"`
}
