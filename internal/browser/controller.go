// Package browser is the client side of the catalog: a stateful controller
// that turns filter and pagination changes into cached, debounced searches,
// with name suggestions and price history prefetching.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/debounce"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

// Options tunes a Controller.
type Options struct {
	PageSize        int
	CacheTTL        time.Duration
	FetchDebounce   time.Duration
	SuggestDebounce time.Duration

	// SettleDelay is how long the transitioning flag outlives the fetch
	// that follows a state change.
	SettleDelay time.Duration
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		PageSize:        pagination.DefaultLimit,
		CacheTTL:        60 * time.Second,
		FetchDebounce:   500 * time.Millisecond,
		SuggestDebounce: 300 * time.Millisecond,
		SettleDelay:     800 * time.Millisecond,
	}
}

// Snapshot is a consistent copy of the controller's state.
type Snapshot struct {
	Filter        domain.FilterState             `json:"filter"`
	Pagination    domain.PaginationState         `json:"pagination"`
	Items         []domain.CatalogItem           `json:"items"`
	Error         string                         `json:"error,omitempty"`
	Loading       bool                           `json:"loading"`
	Transitioning bool                           `json:"transitioning"`
	Suggestions   []string                       `json:"suggestions"`
	History       map[string][]domain.PricePoint `json:"history"`
}

// Controller mediates between filter/pagination controls and the catalog
// search API. It is safe for concurrent use.
//
// At most one fetch runs at a time; a Fetch issued while another is in flight
// returns nil without doing anything. Responses are applied in arrival order.
type Controller struct {
	client     *Client
	store      Store
	prefetcher *Prefetcher
	opts       Options
	logger     *slog.Logger

	// ctx scopes work started by timers; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	fetching atomic.Bool

	mu            sync.Mutex
	closed        bool
	state         domain.BrowseState
	items         []domain.CatalogItem
	errMsg        string
	transitioning bool
	suggestQuery  string
	suggestions   []string
	history       map[string][]domain.PricePoint

	fetchTimer   *debounce.Timer
	suggestTimer *debounce.Timer
	settleTimer  *debounce.Timer
}

// NewController creates a controller with default filters on page 1.
// prefetcher may be nil to disable price history prefetching.
func NewController(client *Client, store Store, prefetcher *Prefetcher, opts Options, logger *slog.Logger) *Controller {
	if opts.PageSize < 1 {
		opts.PageSize = pagination.DefaultLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		client:      client,
		store:       store,
		prefetcher:  prefetcher,
		opts:        opts,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		state:       domain.NewBrowseState(opts.PageSize),
		items:       []domain.CatalogItem{},
		suggestions: []string{},
		history:     make(map[string][]domain.PricePoint),
	}
	c.fetchTimer = debounce.New(opts.FetchDebounce, c.debouncedFetch)
	c.suggestTimer = debounce.New(opts.SuggestDebounce, c.debouncedSuggest)
	c.settleTimer = debounce.New(opts.SettleDelay, c.settle)
	return c
}

// Fetch loads the page described by the current filter and pagination,
// from the cache when fresh and from the API otherwise. On failure the
// previous items and pagination are kept and Snapshot().Error is set.
func (c *Controller) Fetch(ctx context.Context) error {
	if !c.fetching.CompareAndSwap(false, true) {
		fetchesTotal.WithLabelValues("dropped").Inc()
		c.logger.DebugContext(ctx, "fetch already in flight, dropped")
		return nil
	}

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	start := time.Now()
	page, outcome, err := c.loadPage(ctx, state.Query())
	fetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		fetchesTotal.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "catalog fetch failed", slog.String("error", err.Error()))

		c.mu.Lock()
		c.errMsg = "Failed to load catalog: " + err.Error()
		c.mu.Unlock()
		c.fetching.Store(false)
		c.scheduleSettle()
		return fmt.Errorf("fetch catalog page: %w", err)
	}
	fetchesTotal.WithLabelValues(outcome).Inc()

	items := make([]domain.CatalogItem, 0, len(page.Items))
	for i := range page.Items {
		if state.Filter.Admits(&page.Items[i]) {
			items = append(items, page.Items[i])
		}
	}

	c.mu.Lock()
	c.items = items
	c.state.Pagination = page.Pagination
	c.errMsg = ""
	transitioning := c.transitioning
	c.mu.Unlock()
	c.fetching.Store(false)

	c.logger.DebugContext(ctx, "catalog page loaded",
		slog.String("source", outcome),
		slog.Int("items", len(items)),
		slog.Int("page", page.Pagination.Page),
		slog.Int("total", page.Pagination.Total),
	)

	if transitioning {
		c.scheduleSettle()
	} else {
		c.PrefetchVisible(ctx)
	}
	return nil
}

// Refresh fetches the current state now. Pending debounce and settle timers
// are dropped and the transitioning flag is cleared first, so a successful
// refresh also prefetches price history.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.fetchTimer.Cancel()
	c.settleTimer.Cancel()
	c.transitioning = false
	c.mu.Unlock()

	return c.Fetch(ctx)
}

// loadPage resolves q from the store or the API. outcome is "cached" or
// "network".
func (c *Controller) loadPage(ctx context.Context, q domain.SearchQuery) (*SearchPage, string, error) {
	key := c.client.SearchURL(q)

	if e, ok := c.store.Get(ctx, key, c.opts.CacheTTL); ok {
		page, err := DecodeSearch(e.Payload)
		if err == nil {
			return page, "cached", nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	payload, err := c.client.Fetch(ctx, key)
	if err != nil {
		return nil, "", err
	}
	page, err := DecodeSearch(payload)
	if err != nil {
		return nil, "", err
	}
	if err := c.store.Set(ctx, key, payload); err != nil {
		c.logger.WarnContext(ctx, "failed to cache catalog page",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return page, "network", nil
}

// UpdateFilter sets one filter field, returns to page 1 and schedules a
// fetch. Unknown fields and modes are rejected without changing state.
func (c *Controller) UpdateFilter(field domain.FilterField, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.state.UpdateFilter(field, value)
	if err != nil {
		return err
	}
	c.state = next
	c.touchLocked()
	return nil
}

// UpdatePagination moves to page and, when limit is positive, changes the
// page size. The page is not clamped to the known page count.
func (c *Controller) UpdatePagination(page, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.state.UpdatePagination(page, limit)
	c.touchLocked()
}

// ResetFilters restores the default filter on page 1 and schedules a fetch.
func (c *Controller) ResetFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.state.ResetFilters()
	c.touchLocked()
}

// touchLocked marks the controller as transitioning and (re)arms the fetch
// debounce. c.mu must be held.
func (c *Controller) touchLocked() {
	if c.closed {
		return
	}
	c.transitioning = true
	c.settleTimer.Cancel()
	c.fetchTimer.Reset()
}

func (c *Controller) debouncedFetch() {
	// Errors are already recorded in the snapshot and logged.
	_ = c.Fetch(c.ctx)
}

func (c *Controller) scheduleSettle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.transitioning {
		return
	}
	c.settleTimer.Reset()
}

// settle clears the transitioning flag and prefetches the page it was
// holding back.
func (c *Controller) settle() {
	c.mu.Lock()
	if c.fetchTimer.Pending() || c.fetching.Load() {
		// Another state change is already on its way.
		c.mu.Unlock()
		return
	}
	c.transitioning = false
	c.mu.Unlock()

	c.PrefetchVisible(c.ctx)
}

// PrefetchVisible loads missing price histories for the visible items and
// merges them in one update. It does nothing while transitioning.
func (c *Controller) PrefetchVisible(ctx context.Context) {
	if c.prefetcher == nil {
		return
	}

	c.mu.Lock()
	if c.transitioning || len(c.items) == 0 {
		c.mu.Unlock()
		return
	}
	items := append([]domain.CatalogItem(nil), c.items...)
	c.mu.Unlock()

	got := c.prefetcher.Prefetch(ctx, items, c.hasHistory)
	if len(got) == 0 {
		return
	}

	c.mu.Lock()
	for id, h := range got {
		c.history[id] = h
	}
	c.mu.Unlock()
}

func (c *Controller) hasHistory(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.history[id]
	return ok
}

// Suggest returns the de-duplicated names, across all aliases of matching
// items, that contain query case-insensitively. An empty query returns an
// empty list without a request.
func (c *Controller) Suggest(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		suggestionsTotal.WithLabelValues("empty").Inc()
		return []string{}, nil
	}

	q := domain.SearchQuery{Search: query, Page: 1, Limit: pagination.MaxLimit}
	payload, err := c.client.Fetch(ctx, c.client.SearchURL(q))
	if err != nil {
		suggestionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch suggestions: %w", err)
	}
	page, err := DecodeSearch(payload)
	if err != nil {
		suggestionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	suggestionsTotal.WithLabelValues("success").Inc()
	return domain.SuggestNames(page.Items, query), nil
}

// QueueSuggest debounces Suggest and publishes the result in
// Snapshot().Suggestions. An empty query clears the list at once.
func (c *Controller) QueueSuggest(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.suggestQuery = query
	if strings.TrimSpace(query) == "" {
		c.suggestTimer.Cancel()
		c.suggestions = []string{}
		return
	}
	if !c.closed {
		c.suggestTimer.Reset()
	}
}

func (c *Controller) debouncedSuggest() {
	c.mu.Lock()
	query := c.suggestQuery
	c.mu.Unlock()

	names, err := c.Suggest(c.ctx, query)
	if err != nil {
		c.logger.WarnContext(c.ctx, "suggestion fetch failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		names = []string{}
	}

	c.mu.Lock()
	if c.suggestQuery == query {
		c.suggestions = names
	}
	c.mu.Unlock()
}

// History returns the prefetched price history of one item.
func (c *Controller) History(id string) ([]domain.PricePoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.history[id]
	return h, ok
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := make(map[string][]domain.PricePoint, len(c.history))
	for id, h := range c.history {
		history[id] = h
	}

	return Snapshot{
		Filter:        c.state.Filter,
		Pagination:    c.state.Pagination,
		Items:         append([]domain.CatalogItem{}, c.items...),
		Error:         c.errMsg,
		Loading:       c.fetching.Load(),
		Transitioning: c.transitioning,
		Suggestions:   append([]string{}, c.suggestions...),
		History:       history,
	}
}

// Close cancels pending timers and timer-driven work and waits for it to
// finish. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.fetchTimer.Cancel()
	c.suggestTimer.Cancel()
	c.settleTimer.Cancel()

	c.fetchTimer.Wait()
	c.suggestTimer.Wait()
	c.settleTimer.Wait()
}
