package browser

import (
	"context"
	"fmt"
	"log/slog"
)

// Invalidator drops cached responses made stale by catalog change events.
type Invalidator struct {
	client *Client
	store  Store
	logger *slog.Logger
}

// NewInvalidator creates an invalidator for responses cached under client's
// URLs in store.
func NewInvalidator(client *Client, store Store, logger *slog.Logger) *Invalidator {
	return &Invalidator{client: client, store: store, logger: logger}
}

// InvalidateItem removes the cached detail of one item.
func (i *Invalidator) InvalidateItem(ctx context.Context, id string) error {
	if err := i.store.Delete(ctx, i.client.DetailURL(id)); err != nil {
		return fmt.Errorf("invalidate item %s: %w", id, err)
	}
	i.logger.DebugContext(ctx, "invalidated item detail", slog.String("bakugan_id", id))
	return nil
}

// InvalidateSearches removes every cached search page.
func (i *Invalidator) InvalidateSearches(ctx context.Context) error {
	n, err := i.store.DeletePrefix(ctx, i.client.SearchPrefix())
	if err != nil {
		return fmt.Errorf("invalidate searches: %w", err)
	}
	i.logger.DebugContext(ctx, "invalidated search pages", slog.Int("count", n))
	return nil
}
