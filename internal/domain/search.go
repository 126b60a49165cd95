package domain

import (
	"math"
	"strings"
)

// SortDirection is the ordering direction of a search.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Search defaults.
const (
	DefaultPage    = 1
	DefaultPerPage = 15
)

// SearchParams holds the paging, ordering and filter inputs of a search.
type SearchParams struct {
	Page    int
	PerPage int
	Sort    string
	SortDir SortDirection
	Filter  string
}

// Normalize returns a copy of p with invalid values replaced by defaults.
// A direction is only meaningful with a sort field; unknown directions
// become desc.
func (p SearchParams) Normalize() SearchParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.Sort == "" {
		p.SortDir = ""
		return p
	}
	switch dir := SortDirection(strings.ToLower(string(p.SortDir))); dir {
	case SortAsc, SortDesc:
		p.SortDir = dir
	default:
		p.SortDir = SortDesc
	}
	return p
}

// Skip returns the number of matching items before the requested page.
// It saturates at math.MaxInt instead of overflowing for huge pages.
func (p SearchParams) Skip() int {
	if p.Page <= 1 {
		return 0
	}
	take := p.Take()
	if p.Page-1 > math.MaxInt/take {
		return math.MaxInt
	}
	return (p.Page - 1) * take
}

// Take returns the page size.
func (p SearchParams) Take() int {
	if p.PerPage <= 0 {
		return DefaultPerPage
	}
	return p.PerPage
}

// SearchResult is one page of a search. Total counts every match before
// pagination; Sort and SortDir report the ordering that was actually applied.
type SearchResult[T any] struct {
	Items       []T           `json:"items"`
	Total       int64         `json:"total"`
	CurrentPage int           `json:"current_page"`
	PerPage     int           `json:"per_page"`
	LastPage    int           `json:"last_page"`
	Sort        string        `json:"sort"`
	SortDir     SortDirection `json:"sort_dir"`
	Filter      string        `json:"filter"`
}

// NewSearchResult assembles a SearchResult for params, which must already be
// normalized.
func NewSearchResult[T any](items []T, total int64, params SearchParams, sort string, dir SortDirection) *SearchResult[T] {
	if items == nil {
		items = []T{}
	}
	perPage := params.Take()
	return &SearchResult[T]{
		Items:       items,
		Total:       total,
		CurrentPage: params.Page,
		PerPage:     perPage,
		LastPage:    int(math.Ceil(float64(total) / float64(perPage))),
		Sort:        sort,
		SortDir:     dir,
		Filter:      params.Filter,
	}
}

// MapItems converts the items of r with fn, keeping the page metadata.
func MapItems[T, U any](r *SearchResult[T], fn func(T) U) *SearchResult[U] {
	items := make([]U, len(r.Items))
	for i, it := range r.Items {
		items[i] = fn(it)
	}
	return &SearchResult[U]{
		Items:       items,
		Total:       r.Total,
		CurrentPage: r.CurrentPage,
		PerPage:     r.PerPage,
		LastPage:    r.LastPage,
		Sort:        r.Sort,
		SortDir:     r.SortDir,
		Filter:      r.Filter,
	}
}
