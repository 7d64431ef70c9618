package order

import "dddkit/domain/shared"

// Status is the lifecycle state of an order
type Status struct {
	shared.Enumeration
}

var (
	StatusPending   = Status{shared.NewEnumeration(1, "Pending")}
	StatusConfirmed = Status{shared.NewEnumeration(2, "Confirmed")}
	StatusShipped   = Status{shared.NewEnumeration(3, "Shipped")}
	StatusDelivered = Status{shared.NewEnumeration(4, "Delivered")}
	StatusCancelled = Status{shared.NewEnumeration(5, "Cancelled")}
)

var _ = shared.RegisterEnumeration(
	StatusPending,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
)

// transitions lists the statuses reachable from each status
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
}

// CanTransitionTo reports whether an order in s may move to next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether no further transition is possible
func (s Status) IsFinal() bool {
	return len(transitions[s]) == 0
}

// StatusFromID resolves a persisted status id
func StatusFromID(id int) (Status, error) {
	return shared.FromValue[Status](id)
}
