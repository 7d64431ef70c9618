package persistence

import (
	"context"

	"go.uber.org/zap"

	"dddkit/domain/shared"
	apperrors "dddkit/pkg/errors"
	"dddkit/pkg/logger"
)

// CollectEvents returns the buffered events of sources in source order
func CollectEvents(sources []shared.EventSource) []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, src := range sources {
		events = append(events, src.DomainEvents()...)
	}
	return events
}

// PublishCommitted runs after a successful commit: it hands each source's events to
// dispatcher and then clears the source. Dispatch failures are logged and do not
// undo the commit.
func PublishCommitted(ctx context.Context, dispatcher shared.EventDispatcher, sources []shared.EventSource) {
	for _, src := range sources {
		events := src.DomainEvents()
		if len(events) > 0 && dispatcher != nil {
			if err := dispatcher.Dispatch(ctx, events...); err != nil {
				logger.FromContext(ctx).Error("dispatch of committed events failed",
					zap.Int("events", len(events)),
					zap.String("error_code", string(apperrors.Classify(err))),
					zap.Error(err),
				)
			}
		}
		src.ClearDomainEvents()
	}
}
