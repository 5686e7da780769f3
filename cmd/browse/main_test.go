package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/browser"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/config"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/event"
	cataloghttp "github.com/pannatron/Bakugan-Dashboard-sub000/internal/handler/http"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/repository/memory"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/service"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/health"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/middleware"
)

type fixture struct {
	url string
	svc *service.CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	svc := service.NewCatalogService(store.Items(), store.Prices(), nil, event.NewProducer(nil, log), log)
	srv := httptest.NewServer(cataloghttp.NewRouter(svc, health.NewHandler(), cataloghttp.RouterConfig{
		CORS: middleware.DefaultCORSConfig(),
	}, log))
	t.Cleanup(srv.Close)

	return &fixture{url: srv.URL, svc: svc}
}

func (f *fixture) add(t *testing.T, names []string, size string, price float64) *domain.CatalogItem {
	t.Helper()

	item, err := f.svc.Create(context.Background(), &service.CreateItemInput{
		Names: names, Size: size, Element: "Pyrus", CurrentPrice: price,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfg := &config.BrowseConfig{
		LogLevel:         "error",
		APIURL:           f.url,
		HTTPTimeout:      5 * time.Second,
		CacheBackend:     config.CacheMemory,
		CacheTTL:         time.Minute,
		CacheSize:        32,
		PageSize:         20,
		FetchDebounce:    time.Hour,
		SuggestDebounce:  time.Hour,
		SettleDelay:      time.Hour,
		PrefetchInFlight: 2,
	}

	var out bytes.Buffer
	root := newRootCmd(func() (*config.BrowseConfig, error) { return cfg, nil })
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchCommand_Table(t *testing.T) {
	f := newFixture(t)
	f.add(t, []string{"Dragonoid", "Drago"}, "B1", 1500)
	f.add(t, []string{"Hammer Gorem"}, "B3", 1200)

	out, err := f.exec(t, "search", "--mode", "bakutech")
	require.NoError(t, err)

	assert.Contains(t, out, "Hammer Gorem")
	assert.NotContains(t, out, "Dragonoid")
	assert.Contains(t, out, "page 1 of 1 (1 items, 20 per page)")
}

func TestSearchCommand_JSONWithHistory(t *testing.T) {
	f := newFixture(t)
	item := f.add(t, []string{"Dragonoid", "Drago"}, "B1", 1500)
	_, err := f.svc.RecordPrice(context.Background(), item.ID, &service.RecordPriceInput{Price: 1600, Timestamp: "2024-03-01"})
	require.NoError(t, err)

	out, err := f.exec(t, "search", "--name", "drago", "--min", "1000", "--max", "2000", "--history", "--json")
	require.NoError(t, err)

	var snap browser.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "drago", snap.Filter.Name)
	assert.Equal(t, "1000", snap.Filter.MinPrice)
	require.Len(t, snap.History[item.ID], 1)
	assert.Equal(t, 1600.0, snap.History[item.ID][0].Price)
}

func TestSearchCommand_RejectsUnknownMode(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec(t, "search", "--mode", "everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--mode")
}

func TestSuggestCommand(t *testing.T) {
	f := newFixture(t)
	f.add(t, []string{"Dragonoid", "Drago"}, "B1", 1500)
	f.add(t, []string{"Hydranoid", "Hydra"}, "B2", 800)
	f.add(t, []string{"Tigrerra"}, "B1", 2500)

	out, err := f.exec(t, "suggest", "DRA")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.ElementsMatch(t, []string{"Dragonoid", "Drago", "Hydranoid", "Hydra"}, lines)
}

func TestHistoryCommand(t *testing.T) {
	f := newFixture(t)
	item := f.add(t, []string{"Tigrerra"}, "B1", 2500)

	out, err := f.exec(t, "history", item.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Tigrerra")
	assert.Contains(t, out, "no price history")

	_, err = f.svc.RecordPrice(context.Background(), item.ID, &service.RecordPriceInput{Price: 2450, Timestamp: "2024-04-02", Notes: "auction"})
	require.NoError(t, err)

	out, err = f.exec(t, "history", item.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "2024-04-02")
	assert.Contains(t, out, "2450")
	assert.Contains(t, out, "auction")
}

func TestHistoryCommand_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec(t, "history", "00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)
}
