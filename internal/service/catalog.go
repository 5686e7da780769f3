package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/event"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/repository"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/search"
	apperrors "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/errors"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

// timestampLayout is used when a price point is recorded without a date.
const timestampLayout = "2006-01-02"

// CatalogService implements the business logic for catalog items and their
// price history.
type CatalogService struct {
	items    repository.ItemRepository
	prices   repository.PriceRepository
	engine   search.Engine
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCatalogService creates a new catalog service. engine may be nil, in
// which case searches go straight to the item repository.
func NewCatalogService(
	items repository.ItemRepository,
	prices repository.PriceRepository,
	engine search.Engine,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		items:    items,
		prices:   prices,
		engine:   engine,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// SearchResult is one page of search results.
type SearchResult struct {
	Items      []domain.CatalogItem `json:"items"`
	Pagination pagination.Meta      `json:"pagination"`
}

// CreateItemInput holds the parameters for creating an item.
type CreateItemInput struct {
	Names             []string
	Size              string
	Element           string
	SpecialProperties string
	Series            string
	ImageURL          string
	CurrentPrice      float64
	ReferenceURI      string
}

// UpdateItemInput holds the parameters for updating an item. Nil fields are
// left unchanged.
type UpdateItemInput struct {
	Names             []string
	Size              *string
	Element           *string
	SpecialProperties *string
	Series            *string
	ImageURL          *string
	CurrentPrice      *float64
	ReferenceURI      *string
}

// RecordPriceInput holds the parameters for appending a price point.
type RecordPriceInput struct {
	Price        float64
	Timestamp    string
	Notes        string
	ReferenceURI string
}

// Search returns one page of items matching q. Page defaults to 1 and limit
// to 20, capped at 100.
func (s *CatalogService) Search(ctx context.Context, q domain.SearchQuery) (*SearchResult, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	page := pagination.Params{Page: q.Page, Limit: q.Limit}.Normalize()
	q.Page, q.Limit = page.Page, page.Limit

	items, total, err := s.search(ctx, q, page)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}

	return &SearchResult{
		Items:      items,
		Pagination: pagination.NewMeta(total, page),
	}, nil
}

func (s *CatalogService) search(ctx context.Context, q domain.SearchQuery, page pagination.Params) ([]domain.CatalogItem, int, error) {
	if s.engine != nil {
		items, total, err := s.engine.Search(ctx, q, page)
		if err == nil {
			return items, total, nil
		}
		s.logger.WarnContext(ctx, "search engine failed, falling back to repository",
			slog.String("error", err.Error()),
		)
	}
	return s.items.Search(ctx, q, page)
}

func validateQuery(q domain.SearchQuery) error {
	if q.MinPrice != nil && !isFinite(*q.MinPrice) {
		return apperrors.InvalidInput("minPrice must be a finite number")
	}
	if q.MaxPrice != nil && !isFinite(*q.MaxPrice) {
		return apperrors.InvalidInput("maxPrice must be a finite number")
	}
	if q.MinPrice != nil && *q.MinPrice < 0 {
		return apperrors.InvalidInput("minPrice must not be negative")
	}
	if q.MaxPrice != nil && *q.MaxPrice < 0 {
		return apperrors.InvalidInput("maxPrice must not be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return apperrors.InvalidInput("minPrice must not be greater than maxPrice")
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Get returns an item together with its price history.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.ItemDetail, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item by id: %w", err)
	}

	history, err := s.prices.ListByItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list price history: %w", err)
	}
	if history == nil {
		history = []domain.PricePoint{}
	}

	return &domain.ItemDetail{CatalogItem: *item, PriceHistory: history}, nil
}

// Create adds a new item to the catalog.
func (s *CatalogService) Create(ctx context.Context, input *CreateItemInput) (*domain.CatalogItem, error) {
	names := cleanNames(input.Names)
	if len(names) == 0 {
		return nil, apperrors.InvalidInput("at least one name is required")
	}
	if input.CurrentPrice < 0 {
		return nil, apperrors.InvalidInput("current price must not be negative")
	}

	now := s.now().UTC()
	item := &domain.CatalogItem{
		ID:                uuid.New().String(),
		Names:             names,
		Size:              strings.TrimSpace(input.Size),
		Element:           strings.TrimSpace(input.Element),
		SpecialProperties: strings.TrimSpace(input.SpecialProperties),
		Series:            strings.TrimSpace(input.Series),
		ImageURL:          input.ImageURL,
		CurrentPrice:      input.CurrentPrice,
		ReferenceURI:      input.ReferenceURI,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.index(ctx, item)
	if err := s.producer.PublishItemCreated(ctx, item); err != nil {
		s.logPublishError(ctx, "bakugan.item.created", item.ID, err)
	}

	s.logger.InfoContext(ctx, "item created",
		slog.String("bakugan_id", item.ID),
		slog.String("name", item.PrimaryName()),
	)
	return item, nil
}

// Update applies the non-nil fields of input to an existing item.
func (s *CatalogService) Update(ctx context.Context, id string, input *UpdateItemInput) (*domain.CatalogItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item for update: %w", err)
	}

	if input.Names != nil {
		names := cleanNames(input.Names)
		if len(names) == 0 {
			return nil, apperrors.InvalidInput("at least one name is required")
		}
		item.Names = names
	}
	if input.CurrentPrice != nil {
		if *input.CurrentPrice < 0 {
			return nil, apperrors.InvalidInput("current price must not be negative")
		}
		item.CurrentPrice = *input.CurrentPrice
	}
	applyString(&item.Size, input.Size)
	applyString(&item.Element, input.Element)
	applyString(&item.SpecialProperties, input.SpecialProperties)
	applyString(&item.Series, input.Series)
	applyString(&item.ImageURL, input.ImageURL)
	applyString(&item.ReferenceURI, input.ReferenceURI)
	item.UpdatedAt = s.now().UTC()

	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.index(ctx, item)
	if err := s.producer.PublishItemUpdated(ctx, item); err != nil {
		s.logPublishError(ctx, "bakugan.item.updated", item.ID, err)
	}

	s.logger.InfoContext(ctx, "item updated", slog.String("bakugan_id", item.ID))
	return item, nil
}

// Delete removes an item and its price history.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if s.engine != nil {
		if err := s.engine.Delete(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to remove item from search index",
				slog.String("bakugan_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.producer.PublishItemDeleted(ctx, id); err != nil {
		s.logPublishError(ctx, "bakugan.item.deleted", id, err)
	}

	s.logger.InfoContext(ctx, "item deleted", slog.String("bakugan_id", id))
	return nil
}

// RecordPrice appends a price point to an item's history and makes it the
// item's current price.
func (s *CatalogService) RecordPrice(ctx context.Context, itemID string, input *RecordPriceInput) (*domain.PricePoint, error) {
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}

	now := s.now().UTC()
	ts := strings.TrimSpace(input.Timestamp)
	if ts == "" {
		ts = now.Format(timestampLayout)
	}

	point := &domain.PricePoint{
		ID:           uuid.New().String(),
		ItemID:       itemID,
		Price:        input.Price,
		Timestamp:    ts,
		Notes:        input.Notes,
		ReferenceURI: input.ReferenceURI,
		CreatedAt:    now,
	}

	if err := s.prices.Record(ctx, point); err != nil {
		return nil, fmt.Errorf("record price: %w", err)
	}

	s.reindex(ctx, itemID)
	if err := s.producer.PublishPriceRecorded(ctx, point); err != nil {
		s.logPublishError(ctx, "bakugan.price.recorded", itemID, err)
	}

	s.logger.InfoContext(ctx, "price recorded",
		slog.String("bakugan_id", itemID),
		slog.String("price_id", point.ID),
		slog.Float64("price", point.Price),
	)
	return point, nil
}

// DeletePrice removes one price point from an item's history. The item's
// current price is not rolled back.
func (s *CatalogService) DeletePrice(ctx context.Context, itemID, priceID string) error {
	if err := s.prices.Delete(ctx, itemID, priceID); err != nil {
		return fmt.Errorf("delete price: %w", err)
	}

	if err := s.producer.PublishPriceDeleted(ctx, itemID, priceID); err != nil {
		s.logPublishError(ctx, "bakugan.price.deleted", itemID, err)
	}
	return nil
}

// Reindex rebuilds the search engine from the item repository and returns
// the number of items indexed. It is a no-op without an engine.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.engine == nil {
		return 0, nil
	}

	indexed := 0
	for page := 1; ; page++ {
		params := pagination.Params{Page: page, Limit: pagination.MaxLimit}.Normalize()
		items, total, err := s.items.Search(ctx, domain.SearchQuery{}, params)
		if err != nil {
			return indexed, fmt.Errorf("list items for reindex: %w", err)
		}
		if len(items) == 0 {
			break
		}
		if err := s.engine.BulkIndex(ctx, items); err != nil {
			return indexed, fmt.Errorf("bulk index page %d: %w", page, err)
		}
		indexed += len(items)
		if indexed >= total {
			break
		}
	}

	s.logger.InfoContext(ctx, "search index rebuilt", slog.Int("items", indexed))
	return indexed, nil
}

// reindex refreshes one item in the search engine after its price changed.
func (s *CatalogService) reindex(ctx context.Context, itemID string) {
	if s.engine == nil {
		return
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load item for reindex",
			slog.String("bakugan_id", itemID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.index(ctx, item)
}

// index failures are logged; the repository stays the source of truth.
func (s *CatalogService) index(ctx context.Context, item *domain.CatalogItem) {
	if s.engine == nil {
		return
	}
	if err := s.engine.Index(ctx, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to index item",
			slog.String("bakugan_id", item.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) logPublishError(ctx context.Context, topic, itemID string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish "+topic+" event",
		slog.String("bakugan_id", itemID),
		slog.String("error", err.Error()),
	)
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
