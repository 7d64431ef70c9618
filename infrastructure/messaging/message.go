// Package messaging carries outbox events out of the process
package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dddkit/pkg/logger"
)

// Message is one outbox event on its way to a broker
type Message struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	OccurredAt  time.Time
}

// Publisher delivers messages. Delivery is at least once; consumers dedupe on Message.ID.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// LoggingPublisher writes messages to the log instead of a broker
type LoggingPublisher struct{}

func (LoggingPublisher) Publish(ctx context.Context, msg Message) error {
	logger.FromContext(ctx).Info("Outbox event published",
		zap.String("event_id", msg.ID),
		zap.String("event_type", msg.EventType),
		zap.String("aggregate_id", msg.AggregateID),
		zap.ByteString("payload", msg.Payload),
	)
	return nil
}

var _ Publisher = LoggingPublisher{}
