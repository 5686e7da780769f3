package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SearchQuery is the set of parameters understood by the search endpoint.
// Zero values mean "not set".
type SearchQuery struct {
	Search            string
	Size              string
	Element           string
	SpecialProperties string
	Bakutech          bool
	ExcludeSize       string
	MinPrice          *float64
	MaxPrice          *float64
	Page              int
	Limit             int
}

// Values encodes q as query parameters. Unset fields are omitted.
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("search", q.Search)
	set("size", q.Size)
	set("element", q.Element)
	if q.Bakutech {
		v.Set("bakutech", "true")
	}
	set("excludeSize", q.ExcludeSize)
	set("specialProperties", q.SpecialProperties)
	if q.MinPrice != nil {
		v.Set("minPrice", formatPrice(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		v.Set("maxPrice", formatPrice(*q.MaxPrice))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ParseSearchQuery decodes query parameters. Malformed numbers are rejected;
// page and limit are left for the caller to normalize.
func ParseSearchQuery(v url.Values) (SearchQuery, error) {
	q := SearchQuery{
		Search:            strings.TrimSpace(v.Get("search")),
		Size:              v.Get("size"),
		Element:           v.Get("element"),
		SpecialProperties: v.Get("specialProperties"),
		Bakutech:          v.Get("bakutech") == "true",
		ExcludeSize:       v.Get("excludeSize"),
	}

	var err error
	if q.MinPrice, err = parseOptionalPrice(v.Get("minPrice")); err != nil {
		return SearchQuery{}, fmt.Errorf("minPrice: %w", err)
	}
	if q.MaxPrice, err = parseOptionalPrice(v.Get("maxPrice")); err != nil {
		return SearchQuery{}, fmt.Errorf("maxPrice: %w", err)
	}
	if s := v.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil {
			return SearchQuery{}, fmt.Errorf("page: %w", err)
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return SearchQuery{}, fmt.Errorf("limit: %w", err)
		}
	}
	return q, nil
}

// Matches reports whether item satisfies every predicate of q. Pagination is
// ignored.
func (q SearchQuery) Matches(item *CatalogItem) bool {
	if q.Search != "" && !anyNameContains(item.Names, q.Search) {
		return false
	}
	if q.Size != "" && item.Size != q.Size {
		return false
	}
	if q.Bakutech && item.Size != SizeB3 {
		return false
	}
	if q.ExcludeSize != "" && item.Size == q.ExcludeSize {
		return false
	}
	if q.Element != "" && item.Element != q.Element {
		return false
	}
	if q.SpecialProperties != "" && item.SpecialProperties != q.SpecialProperties {
		return false
	}
	if q.MinPrice != nil && item.CurrentPrice < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && item.CurrentPrice > *q.MaxPrice {
		return false
	}
	return true
}

func anyNameContains(names []string, sub string) bool {
	sub = strings.ToLower(sub)
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), sub) {
			return true
		}
	}
	return false
}

func parseOptionalPrice(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func formatPrice(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
