package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/event"
	pkgkafka "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/kafka"
)

func TestInvalidator_ClearsOnCatalogEvents(t *testing.T) {
	ctx := context.Background()
	client := NewClient("http://catalog.local", nil)
	store, err := NewLRUStore(16, nil)
	require.NoError(t, err)

	searchA := client.SearchURL(domain.SearchQuery{Search: "dra", Page: 1, Limit: 20})
	searchB := client.SearchURL(domain.SearchQuery{Bakutech: true, Page: 2, Limit: 20})
	detail1 := client.DetailURL("item-1")
	detail2 := client.DetailURL("item-2")
	for _, k := range []string{searchA, searchB, detail1, detail2} {
		require.NoError(t, store.Set(ctx, k, []byte("{}")))
	}

	consumer := event.NewConsumer(NewInvalidator(client, store, discardLogger()), discardLogger())

	ev, err := pkgkafka.NewEvent(event.TopicPriceRecorded, "item-1", event.AggregateTypeItem, event.SourceCatalog,
		domain.PricePoint{ItemID: "item-1", Price: 10})
	require.NoError(t, err)
	require.NoError(t, consumer.Handle(ctx, ev))

	_, ok := store.Get(ctx, detail1, time.Minute)
	assert.False(t, ok)
	_, ok = store.Get(ctx, detail2, time.Minute)
	assert.True(t, ok)
	_, ok = store.Get(ctx, searchA, time.Minute)
	assert.False(t, ok)
	_, ok = store.Get(ctx, searchB, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestInvalidator_RedisStore(t *testing.T) {
	ctx := context.Background()
	client := NewClient("http://catalog.local", nil)
	store, mr := newRedisStore(t, newFakeClock(), 0)

	search := client.SearchURL(domain.SearchQuery{Page: 1, Limit: 20})
	detail := client.DetailURL("item-9")
	require.NoError(t, store.Set(ctx, search, []byte("{}")))
	require.NoError(t, store.Set(ctx, detail, []byte("{}")))

	inv := NewInvalidator(client, store, discardLogger())
	require.NoError(t, inv.InvalidateSearches(ctx))
	assert.False(t, mr.Exists("test:"+search))
	assert.True(t, mr.Exists("test:"+detail))

	require.NoError(t, inv.InvalidateItem(ctx, "item-9"))
	assert.False(t, mr.Exists("test:"+detail))
}
