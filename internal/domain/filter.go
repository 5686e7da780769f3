package domain

import (
	"fmt"
	"strings"

	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

// FilterMode selects which part of the catalog is browsed.
type FilterMode string

const (
	ModeAll      FilterMode = "all"
	ModeBakugan  FilterMode = "bakugan"  // primary catalog, everything except B3
	ModeBakutech FilterMode = "bakutech" // tech subset, B3 only
)

// ParseFilterMode validates s.
func ParseFilterMode(s string) (FilterMode, error) {
	switch m := FilterMode(s); m {
	case ModeAll, ModeBakugan, ModeBakutech:
		return m, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q", s)
	}
}

// FilterField names a single user-adjustable filter.
type FilterField string

const (
	FieldName              FilterField = "name"
	FieldSize              FilterField = "size"
	FieldElement           FilterField = "element"
	FieldSpecialProperties FilterField = "specialProperties"
	FieldMinPrice          FilterField = "minPrice"
	FieldMaxPrice          FilterField = "maxPrice"
	FieldMode              FilterField = "mode"
)

// FilterState holds the user's search predicates as entered. Empty strings
// mean "not set"; price bounds stay strings until a query is built.
type FilterState struct {
	Name              string     `json:"name"`
	Size              string     `json:"size"`
	Element           string     `json:"element"`
	SpecialProperties string     `json:"specialProperties"`
	MinPrice          string     `json:"minPrice"`
	MaxPrice          string     `json:"maxPrice"`
	Mode              FilterMode `json:"mode"`
}

// DefaultFilterState returns the state every browse session starts in.
func DefaultFilterState() FilterState {
	return FilterState{Mode: ModeAll}
}

// With returns a copy of f with one field replaced.
func (f FilterState) With(field FilterField, value string) (FilterState, error) {
	switch field {
	case FieldName:
		f.Name = value
	case FieldSize:
		f.Size = value
	case FieldElement:
		f.Element = value
	case FieldSpecialProperties:
		f.SpecialProperties = value
	case FieldMinPrice:
		f.MinPrice = value
	case FieldMaxPrice:
		f.MaxPrice = value
	case FieldMode:
		m, err := ParseFilterMode(value)
		if err != nil {
			return f, err
		}
		f.Mode = m
	default:
		return f, fmt.Errorf("unknown filter field %q", field)
	}
	return f, nil
}

// Query builds the search request for f at the given page. Unparsable price
// bounds are left out.
func (f FilterState) Query(page, limit int) SearchQuery {
	q := SearchQuery{
		Search:            strings.TrimSpace(f.Name),
		Size:              f.Size,
		Element:           f.Element,
		SpecialProperties: f.SpecialProperties,
		Page:              page,
		Limit:             limit,
	}
	q.MinPrice, _ = parseOptionalPrice(f.MinPrice)
	q.MaxPrice, _ = parseOptionalPrice(f.MaxPrice)

	switch f.Mode {
	case ModeBakutech:
		q.Bakutech = true
	case ModeBakugan:
		q.ExcludeSize = SizeB3
	}
	return q
}

// Admits is the client-side guard applied to server results: price bounds
// and the mode's size rule.
func (f FilterState) Admits(item *CatalogItem) bool {
	q := f.Query(0, 0)
	guard := SearchQuery{
		Bakutech:    q.Bakutech,
		ExcludeSize: q.ExcludeSize,
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
	}
	return guard.Matches(item)
}

// PaginationState mirrors the pagination block of the last search response.
type PaginationState = pagination.Meta

// DefaultPaginationState is page 1 of nothing.
func DefaultPaginationState(limit int) PaginationState {
	if limit < 1 {
		limit = pagination.DefaultLimit
	}
	return PaginationState{Page: 1, Limit: limit}
}

// BrowseState couples filters and pagination. Its methods are pure: they
// return the next state and never touch the receiver.
type BrowseState struct {
	Filter     FilterState     `json:"filter"`
	Pagination PaginationState `json:"pagination"`
}

// NewBrowseState returns default filters on page 1.
func NewBrowseState(limit int) BrowseState {
	return BrowseState{
		Filter:     DefaultFilterState(),
		Pagination: DefaultPaginationState(limit),
	}
}

// UpdateFilter changes one filter and moves back to page 1.
func (s BrowseState) UpdateFilter(field FilterField, value string) (BrowseState, error) {
	f, err := s.Filter.With(field, value)
	if err != nil {
		return s, err
	}
	s.Filter = f
	s.Pagination.Page = 1
	return s, nil
}

// UpdatePagination moves to page and, when limit is positive, changes the
// page size. The page is not clamped against Pages.
func (s BrowseState) UpdatePagination(page, limit int) BrowseState {
	s.Pagination.Page = page
	if limit > 0 {
		s.Pagination.Limit = limit
	}
	return s
}

// ResetFilters restores default filters on page 1, keeping the page size.
func (s BrowseState) ResetFilters() BrowseState {
	s.Filter = DefaultFilterState()
	s.Pagination.Page = 1
	return s
}

// Query builds the search request for the current state.
func (s BrowseState) Query() SearchQuery {
	return s.Filter.Query(s.Pagination.Page, s.Pagination.Limit)
}
