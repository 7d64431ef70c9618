package gormstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dddkit/config"
	"dddkit/infrastructure/messaging"
	"dddkit/pkg/logger"
)

// OutboxWorker polls pending outbox rows and relays them through a publisher.
// Publishing is throttled by a token bucket when a rate is configured.
type OutboxWorker struct {
	repository   *OutboxRepository
	publisher    messaging.Publisher
	limiter      *rate.Limiter
	pollInterval time.Duration
	batchSize    int
	maxRetries   int
}

func NewOutboxWorker(repository *OutboxRepository, publisher messaging.Publisher, cfg config.OutboxConfig) (*OutboxWorker, error) {
	if repository == nil {
		return nil, fmt.Errorf("outbox repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.PublishRate > 0 {
		burst := max(cfg.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(cfg.PublishRate), burst)
	}

	return &OutboxWorker{
		repository:   repository,
		publisher:    publisher,
		limiter:      limiter,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxRetries:   cfg.MaxRetries,
	}, nil
}

// Run processes batches until ctx is cancelled
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				logger.FromContext(ctx).Error("Outbox batch processing failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch relays one batch and returns how many events were published
func (w *OutboxWorker) ProcessBatch(ctx context.Context) (int, error) {
	events, err := w.repository.GetPendingEvents(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	log := logger.FromContext(ctx)
	published := 0
	for _, event := range events {
		if err := w.limiter.Wait(ctx); err != nil {
			return published, err
		}

		if err := w.repository.MarkEventProcessing(ctx, event.ID); err != nil {
			log.Warn("Skip outbox event due to lock contention",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}

		msg := messaging.Message{
			ID:          event.ID,
			AggregateID: event.AggregateID,
			EventType:   event.EventType,
			Payload:     []byte(event.Payload),
			OccurredAt:  event.OccurredAt,
		}
		if err := w.publisher.Publish(ctx, msg); err != nil {
			log.Warn("Outbox event publish failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Int("retry_count", event.RetryCount),
				zap.Error(err),
			)
			if failErr := w.repository.MarkEventFailed(ctx, event.ID, w.maxRetries, err); failErr != nil {
				log.Error("Failed to mark outbox event as failed",
					zap.String("event_id", event.ID),
					zap.Error(failErr),
				)
			}
			continue
		}

		if err := w.repository.MarkEventPublished(ctx, event.ID); err != nil {
			log.Error("Failed to mark outbox event as published",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	return published, nil
}
