package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{
		Page:   1,
		Limit:  DefaultLimit,
		Offset: 0,
	}
}

// FromRequest extracts page and limit from the query string. Values that are
// missing, malformed or out of range fall back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= MaxLimit {
			p.Limit = v
		}
	}

	return p.Normalize()
}

// Normalize clamps page and limit and recomputes the offset. Page is capped so
// the offset never overflows.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if maxPage := math.MaxInt / p.Limit; p.Page > maxPage {
		p.Page = maxPage
	}
	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// Meta is the pagination block echoed back with every list response.
type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewMeta builds the pagination block for a result set of total items.
func NewMeta(total int, params Params) Meta {
	limit := params.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}

	return Meta{
		Total: total,
		Page:  params.Page,
		Limit: limit,
		Pages: pages,
	}
}

// HasNext reports whether a page follows the current one.
func (m Meta) HasNext() bool {
	return m.Page < m.Pages
}

// HasPrev reports whether a page precedes the current one.
func (m Meta) HasPrev() bool {
	return m.Page > 1
}
