package repository

import (
	"context"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

// ItemRepository defines persistence operations for catalog items.
type ItemRepository interface {
	// Create inserts a new item.
	Create(ctx context.Context, item *domain.CatalogItem) error

	// GetByID returns the item or an error wrapping apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.CatalogItem, error)

	// Search returns one page of items matching q, newest first, plus the
	// total number of matches.
	Search(ctx context.Context, q domain.SearchQuery, page pagination.Params) ([]domain.CatalogItem, int, error)

	// Update overwrites the mutable fields of an existing item.
	Update(ctx context.Context, item *domain.CatalogItem) error

	// Delete removes the item and its price history.
	Delete(ctx context.Context, id string) error
}

// PriceRepository defines persistence operations for price history.
type PriceRepository interface {
	// Record appends p and sets the owning item's current price to p.Price
	// atomically.
	Record(ctx context.Context, p *domain.PricePoint) error

	// ListByItem returns the history of one item ordered by timestamp, then
	// creation time.
	ListByItem(ctx context.Context, itemID string) ([]domain.PricePoint, error)

	// Delete removes one price point belonging to itemID.
	Delete(ctx context.Context, itemID, priceID string) error
}
