// Package memory keeps the catalog in process memory. It backs the service
// when CATALOG_STORE=memory and is used by handler and browser tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	apperrors "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/errors"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

// Store holds items and their price histories under one lock so that
// recording a price and updating the item's current price is atomic.
type Store struct {
	mu     sync.RWMutex
	items  map[string]domain.CatalogItem
	prices map[string][]domain.PricePoint
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items:  make(map[string]domain.CatalogItem),
		prices: make(map[string][]domain.PricePoint),
	}
}

// Items returns the store as a repository.ItemRepository.
func (s *Store) Items() *ItemRepository { return &ItemRepository{s: s} }

// Prices returns the store as a repository.PriceRepository.
func (s *Store) Prices() *PriceRepository { return &PriceRepository{s: s} }

// ItemRepository is the item view of a Store.
type ItemRepository struct{ s *Store }

// Create inserts a new item.
func (r *ItemRepository) Create(_ context.Context, item *domain.CatalogItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[item.ID]; ok {
		return apperrors.AlreadyExists("bakugan", "id", item.ID)
	}
	r.s.items[item.ID] = cloneItem(item)
	return nil
}

// GetByID returns a copy of the item.
func (r *ItemRepository) GetByID(_ context.Context, id string) (*domain.CatalogItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.items[id]
	if !ok {
		return nil, apperrors.NotFound("bakugan", id)
	}
	out := cloneItem(&item)
	return &out, nil
}

// Search filters with SearchQuery.Matches and pages newest first.
func (r *ItemRepository) Search(_ context.Context, q domain.SearchQuery, page pagination.Params) ([]domain.CatalogItem, int, error) {
	r.s.mu.RLock()
	matched := make([]domain.CatalogItem, 0)
	for id := range r.s.items {
		item := r.s.items[id]
		if q.Matches(&item) {
			matched = append(matched, cloneItem(&item))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	page = page.Normalize()
	total := len(matched)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)
	return matched[start:end], total, nil
}

// Update overwrites an existing item.
func (r *ItemRepository) Update(_ context.Context, item *domain.CatalogItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[item.ID]; !ok {
		return apperrors.NotFound("bakugan", item.ID)
	}
	item.UpdatedAt = time.Now().UTC()
	r.s.items[item.ID] = cloneItem(item)
	return nil
}

// Delete removes an item and its price history.
func (r *ItemRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[id]; !ok {
		return apperrors.NotFound("bakugan", id)
	}
	delete(r.s.items, id)
	delete(r.s.prices, id)
	return nil
}

// PriceRepository is the price history view of a Store.
type PriceRepository struct{ s *Store }

// Record appends p and updates the item's current price.
func (r *PriceRepository) Record(_ context.Context, p *domain.PricePoint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.items[p.ItemID]
	if !ok {
		return apperrors.NotFound("bakugan", p.ItemID)
	}
	item.CurrentPrice = p.Price
	item.UpdatedAt = p.CreatedAt
	r.s.items[p.ItemID] = item
	r.s.prices[p.ItemID] = append(r.s.prices[p.ItemID], *p)
	return nil
}

// ListByItem returns the history ordered by timestamp, then creation time.
func (r *PriceRepository) ListByItem(_ context.Context, itemID string) ([]domain.PricePoint, error) {
	r.s.mu.RLock()
	points := append([]domain.PricePoint{}, r.s.prices[itemID]...)
	r.s.mu.RUnlock()

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Timestamp != points[j].Timestamp {
			return points[i].Timestamp < points[j].Timestamp
		}
		return points[i].CreatedAt.Before(points[j].CreatedAt)
	})
	return points, nil
}

// Delete removes one price point.
func (r *PriceRepository) Delete(_ context.Context, itemID, priceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	points := r.s.prices[itemID]
	for i := range points {
		if points[i].ID == priceID {
			r.s.prices[itemID] = append(points[:i:i], points[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("price point", priceID)
}

func cloneItem(item *domain.CatalogItem) domain.CatalogItem {
	out := *item
	out.Names = append([]string(nil), item.Names...)
	return out
}
