package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/kafka"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/logger"
)

// Invalidator drops cached data affected by a catalog change.
type Invalidator interface {
	// InvalidateItem forgets the cached detail and history of one item.
	InvalidateItem(ctx context.Context, itemID string) error

	// InvalidateSearches forgets every cached search page.
	InvalidateSearches(ctx context.Context) error
}

// Consumer turns catalog events into cache invalidations.
type Consumer struct {
	target Invalidator
	logger *slog.Logger
}

// NewConsumer creates a consumer that invalidates target.
func NewConsumer(target Invalidator, logger *slog.Logger) *Consumer {
	return &Consumer{target: target, logger: logger}
}

// Handle is a pkgkafka.Handler. Any item or price change can move an item
// into or out of a cached search page, so every known event clears searches.
func (c *Consumer) Handle(ctx context.Context, ev *pkgkafka.Event) error {
	if ev.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, ev.CorrelationID)
	}

	switch ev.EventType {
	case TopicItemCreated:
	case TopicItemUpdated, TopicItemDeleted, TopicPriceRecorded, TopicPriceDeleted:
		if err := c.target.InvalidateItem(ctx, ev.AggregateID); err != nil {
			return fmt.Errorf("invalidate item %s: %w", ev.AggregateID, err)
		}
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", ev.EventType),
			slog.String("event_id", ev.EventID),
		)
		return nil
	}

	if err := c.target.InvalidateSearches(ctx); err != nil {
		return fmt.Errorf("invalidate searches: %w", err)
	}

	c.logger.InfoContext(ctx, "cache invalidated",
		slog.String("event_type", ev.EventType),
		slog.String("bakugan_id", ev.AggregateID),
	)
	return nil
}
