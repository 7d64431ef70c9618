// Package redisstream publishes outbox messages to a Redis stream
package redisstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dddkit/config"
	"dddkit/infrastructure/messaging"
)

// Streamer is the slice of the go-redis client the publisher needs
type Streamer interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Publisher appends one stream entry per message. The stream is trimmed
// approximately to maxLen entries when maxLen is positive.
type Publisher struct {
	client Streamer
	stream string
	maxLen int64
}

func NewPublisher(client Streamer, stream string, maxLen int64) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if stream == "" {
		return nil, errors.New("stream name is required")
	}
	return &Publisher{client: client, stream: stream, maxLen: maxLen}, nil
}

// NewClient opens a go-redis client from configuration
func NewClient(c config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}

func (p *Publisher) Publish(ctx context.Context, msg messaging.Message) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":           msg.ID,
			"event_type":   msg.EventType,
			"aggregate_id": msg.AggregateID,
			"occurred_at":  msg.OccurredAt.UTC().Format(time.RFC3339Nano),
			"payload":      string(msg.Payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s to %s: %w", msg.EventType, p.stream, err)
	}
	return nil
}

var _ messaging.Publisher = (*Publisher)(nil)
