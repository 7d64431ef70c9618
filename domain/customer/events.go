package customer

import "dddkit/domain/shared"

const (
	EventRegistered  = "customer.registered"
	EventPromoted    = "customer.promoted"
	EventDeactivated = "customer.deactivated"
)

type RegisteredEvent struct {
	shared.BaseEvent
	Email string `json:"email"`
}

type PromotedEvent struct {
	shared.BaseEvent
	Tier string `json:"tier"`
}

type DeactivatedEvent struct {
	shared.BaseEvent
}
