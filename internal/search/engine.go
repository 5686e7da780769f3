// Package search defines the optional secondary index used for catalog
// queries. Postgres and memory repositories answer searches themselves; an
// Engine only takes over when one is configured.
package search

import (
	"context"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

// Engine indexes catalog items and answers search queries.
type Engine interface {
	// Index adds or replaces one item.
	Index(ctx context.Context, item *domain.CatalogItem) error

	// Delete removes an item. Missing items are not an error.
	Delete(ctx context.Context, id string) error

	// BulkIndex adds or replaces many items.
	BulkIndex(ctx context.Context, items []domain.CatalogItem) error

	// Search has the same contract as repository.ItemRepository.Search.
	Search(ctx context.Context, q domain.SearchQuery, page pagination.Params) ([]domain.CatalogItem, int, error)
}
