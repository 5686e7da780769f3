package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

// Engine is an Elasticsearch-backed search.Engine.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source domain.CatalogItem `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID    string `json:"_id"`
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// New creates an engine for the cluster at url. The index is not touched
// until EnsureIndex is called.
func New(url, indexName string, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Engine{client: client, indexName: indexName, logger: logger}, nil
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return fmt.Errorf("elasticsearch: create index: %w", err)
	}

	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// Index adds or replaces one item.
func (e *Engine) Index(ctx context.Context, item *domain.CatalogItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal item: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(item.ID),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	return nil
}

// Delete removes an item. A 404 is ignored.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(e.indexName, id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if err := responseError(res); err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	return nil
}

// BulkIndex indexes items through the NDJSON bulk API.
func (e *Engine) BulkIndex(ctx context.Context, items []domain.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range items {
		action := map[string]any{"index": map[string]any{"_index": e.indexName, "_id": items[i].ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(&items[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		&buf,
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}
	if br.Errors {
		var msgs []string
		for _, it := range br.Items {
			if it.Index.Error.Type != "" {
				msgs = append(msgs, fmt.Sprintf("id=%s: %s: %s", it.Index.ID, it.Index.Error.Type, it.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk: partial errors: %s", strings.Join(msgs, "; "))
	}

	e.logger.Info("bulk indexed items", slog.Int("count", len(items)))
	return nil
}

// Search runs q against the index, newest first.
func (e *Engine) Search(ctx context.Context, q domain.SearchQuery, page pagination.Params) ([]domain.CatalogItem, int, error) {
	page = page.Normalize()

	data, err := json.Marshal(buildQuery(q, page))
	if err != nil {
		return nil, 0, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithTrackTotalHits(true),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return nil, 0, fmt.Errorf("elasticsearch search: %w", err)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, 0, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	items := make([]domain.CatalogItem, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		items = append(items, hit.Source)
	}
	return items, sr.Hits.Total.Value, nil
}

// buildQuery renders q as query DSL. Everything is a filter; scoring is
// irrelevant because results are sorted by creation time.
func buildQuery(q domain.SearchQuery, page pagination.Params) map[string]any {
	var filters, mustNot []any
	term := func(field, value string) map[string]any {
		return map[string]any{"term": map[string]any{field: value}}
	}

	if q.Search != "" {
		filters = append(filters, map[string]any{
			"wildcard": map[string]any{
				"names": map[string]any{
					"value":            "*" + escapeWildcard(strings.ToLower(q.Search)) + "*",
					"case_insensitive": true,
				},
			},
		})
	}
	if q.Size != "" {
		filters = append(filters, term("size", q.Size))
	}
	if q.Bakutech {
		filters = append(filters, term("size", domain.SizeB3))
	}
	if q.ExcludeSize != "" {
		mustNot = append(mustNot, term("size", q.ExcludeSize))
	}
	if q.Element != "" {
		filters = append(filters, term("element", q.Element))
	}
	if q.SpecialProperties != "" {
		filters = append(filters, term("specialProperties", q.SpecialProperties))
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		r := map[string]any{}
		if q.MinPrice != nil {
			r["gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			r["lte"] = *q.MaxPrice
		}
		filters = append(filters, map[string]any{"range": map[string]any{"currentPrice": r}})
	}

	boolQuery := map[string]any{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}

	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"from":  page.Offset,
		"size":  page.Limit,
		"sort": []any{
			map[string]any{"createdAt": "desc"},
			map[string]any{"id": "asc"},
		},
	}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}

// responseError turns an error response into an error, leaving successful
// responses unread.
func responseError(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error.Type != "" {
		return fmt.Errorf("%s: %s", er.Error.Type, er.Error.Reason)
	}
	return fmt.Errorf("unexpected status %s", res.Status())
}
