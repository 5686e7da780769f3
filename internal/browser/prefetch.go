package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
)

// DefaultMaxInFlight bounds concurrent detail requests when none is given.
const DefaultMaxInFlight = 4

// Prefetcher loads price histories for a page of items. At most maxInFlight
// detail requests run at once across all concurrent Prefetch calls.
type Prefetcher struct {
	client *Client
	store  Store
	ttl    time.Duration
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewPrefetcher creates a prefetcher that caches each detail response in
// store for ttl.
func NewPrefetcher(client *Client, store Store, ttl time.Duration, maxInFlight int, logger *slog.Logger) *Prefetcher {
	if maxInFlight < 1 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Prefetcher{
		client: client,
		store:  store,
		ttl:    ttl,
		sem:    semaphore.NewWeighted(int64(maxInFlight)),
		logger: logger,
	}
}

// Prefetch returns the price history of every item for which have reports
// false. Failed items are logged and left out of the result. Cancelling ctx
// stops scheduling further requests; results gathered so far are returned.
func (p *Prefetcher) Prefetch(ctx context.Context, items []domain.CatalogItem, have func(id string) bool) map[string][]domain.PricePoint {
	out := make(map[string][]domain.PricePoint)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := range items {
		id := items[i].ID
		if have != nil && have(id) {
			continue
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.sem.Release(1)

			history, err := p.History(ctx, id)
			if err != nil {
				prefetchTotal.WithLabelValues("error").Inc()
				p.logger.WarnContext(ctx, "price history prefetch failed",
					slog.String("bakugan_id", id),
					slog.String("error", err.Error()),
				)
				return
			}

			mu.Lock()
			out[id] = history
			mu.Unlock()
		}()
	}
	wg.Wait()

	return out
}

// History returns one item's price history from the cache or the detail
// endpoint, caching the response on a miss.
func (p *Prefetcher) History(ctx context.Context, id string) ([]domain.PricePoint, error) {
	detail, err := p.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.PriceHistory == nil {
		return []domain.PricePoint{}, nil
	}
	return detail.PriceHistory, nil
}

// Detail returns one item with its price history, from the cache or the
// detail endpoint.
func (p *Prefetcher) Detail(ctx context.Context, id string) (*domain.ItemDetail, error) {
	key := p.client.DetailURL(id)

	if e, ok := p.store.Get(ctx, key, p.ttl); ok {
		if detail, err := DecodeDetail(e.Payload); err == nil {
			prefetchTotal.WithLabelValues("cached").Inc()
			return detail, nil
		}
	}

	prefetchInFlight.Inc()
	payload, err := p.client.Fetch(ctx, key)
	prefetchInFlight.Dec()
	if err != nil {
		return nil, err
	}

	detail, err := DecodeDetail(payload)
	if err != nil {
		return nil, err
	}
	if err := p.store.Set(ctx, key, payload); err != nil {
		p.logger.WarnContext(ctx, "failed to cache item detail",
			slog.String("bakugan_id", id),
			slog.String("error", err.Error()),
		)
	}
	prefetchTotal.WithLabelValues("network").Inc()
	return detail, nil
}
