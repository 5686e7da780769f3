package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/httpclient"
)

const (
	catalogPath = "/api/bakugan"

	// maxResponseBody caps how much of a success response is read.
	maxResponseBody = 8 << 20
)

// Doer is satisfied by *httpclient.Client and *httpclient.CircuitBreakerClient.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// SearchPage is the payload of the search endpoint.
type SearchPage struct {
	Items      []domain.CatalogItem   `json:"items"`
	Pagination domain.PaginationState `json:"pagination"`
}

// Client talks to the catalog API. Responses are returned as the raw payload
// inside the data envelope so callers can cache them verbatim.
type Client struct {
	baseURL string
	doer    Doer
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, doer Doer) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

// SearchURL returns the request URL for q. It is also the cache key, so equal
// queries always produce byte-identical URLs.
func (c *Client) SearchURL(q domain.SearchQuery) string {
	return c.SearchPrefix() + q.Values().Encode()
}

// SearchPrefix is the common prefix of every SearchURL.
func (c *Client) SearchPrefix() string {
	return c.baseURL + catalogPath + "?"
}

// DetailURL returns the request URL for one item's detail.
func (c *Client) DetailURL(id string) string {
	return c.baseURL + catalogPath + "/" + url.PathEscape(id)
}

// Fetch GETs rawURL and returns the payload of the data envelope. Non-2xx
// responses become errors via httpclient.ParseResponseError.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}
	defer func() { _ = resp.Body.Close() }()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("response has no data")
	}
	return env.Data, nil
}

// DecodeSearch parses a search payload.
func DecodeSearch(payload []byte) (*SearchPage, error) {
	var page SearchPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, fmt.Errorf("decode search page: %w", err)
	}
	return &page, nil
}

// DecodeDetail parses an item detail payload.
func DecodeDetail(payload []byte) (*domain.ItemDetail, error) {
	var detail domain.ItemDetail
	if err := json.Unmarshal(payload, &detail); err != nil {
		return nil, fmt.Errorf("decode item detail: %w", err)
	}
	return &detail, nil
}
