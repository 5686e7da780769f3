package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
)

func TestPrefetcher_BoundsInFlightRequests(t *testing.T) {
	var inFlight, peak, total atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		total.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)

		id := strings.TrimPrefix(r.URL.Path, "/api/bakugan/")
		writeData(w, domain.ItemDetail{CatalogItem: domain.CatalogItem{ID: id}})
	}))
	client := newTestClient(t, srv)

	store, err := NewLRUStore(64, nil)
	require.NoError(t, err)
	p := NewPrefetcher(client, store, time.Minute, 3, discardLogger())

	items := make([]domain.CatalogItem, 12)
	for i := range items {
		items[i].ID = fmt.Sprintf("item-%d", i)
	}

	network := counterValue(prefetchTotal, "network")
	cached := counterValue(prefetchTotal, "cached")

	got := p.Prefetch(context.Background(), items, nil)
	assert.Len(t, got, 12)
	assert.Equal(t, int64(12), total.Load())
	assert.LessOrEqual(t, peak.Load(), int64(3))
	for id, h := range got {
		assert.NotNil(t, h, id)
		assert.Empty(t, h, id)
	}

	// A second pass is served from the cache; items the caller already has
	// are skipped outright.
	got = p.Prefetch(context.Background(), items, func(id string) bool { return id == "item-0" })
	assert.Len(t, got, 11)
	assert.Equal(t, int64(12), total.Load())

	assert.Equal(t, network+12, counterValue(prefetchTotal, "network"))
	assert.Equal(t, cached+11, counterValue(prefetchTotal, "cached"))
}

func TestPrefetcher_CancelledContextStopsScheduling(t *testing.T) {
	var total atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		total.Add(1)
		writeData(w, domain.ItemDetail{})
	}))
	client := newTestClient(t, srv)

	store, err := NewLRUStore(8, nil)
	require.NoError(t, err)
	p := NewPrefetcher(client, store, time.Minute, 2, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := p.Prefetch(ctx, []domain.CatalogItem{{ID: "a"}, {ID: "b"}}, nil)
	assert.Empty(t, got)
	assert.Equal(t, int64(0), total.Load())
}

func TestPrefetcher_DetailUsesCache(t *testing.T) {
	api := newCatalogAPI(t)
	item := api.add(t, []string{"Dragonoid"}, "B1", "Pyrus", 1500)

	store, err := NewLRUStore(8, nil)
	require.NoError(t, err)
	p := NewPrefetcher(api.client, store, time.Minute, 0, discardLogger())

	ctx := context.Background()
	d, err := p.Detail(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dragonoid", d.PrimaryName())

	_, ok := store.Get(ctx, api.client.DetailURL(item.ID), time.Minute)
	assert.True(t, ok)

	_, err = p.History(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), api.details.Load())
}
