package pkg

import (
	"slices"

	"github.com/simp-lee/userdir/internal/domain"
)

// SortField describes a field a search may be ordered by.
type SortField[T any] struct {
	// Column is the storage column backing the field in SQL backends.
	Column string
	// Collation, when set, is applied to Column by dialects that need it to
	// order the way Compare does.
	Collation string
	// Compare orders two items ascending by the field.
	Compare func(a, b T) int
}

// SearchStrategy supplies the entity-specific pieces of a search.
// Backends share one strategy so they answer identically.
type SearchStrategy[T any] struct {
	Visible     func(item T) bool
	Match       func(item T, filter string) bool
	Fields      map[string]SortField[T]
	DefaultSort string
	DefaultDir  domain.SortDirection
}

// ResolveSort returns the ordering a search with params applies. Missing or
// unknown sort fields fall back to the strategy default.
func (s SearchStrategy[T]) ResolveSort(params domain.SearchParams) (string, domain.SortDirection) {
	params = params.Normalize()
	if _, ok := s.Fields[params.Sort]; ok && params.Sort != "" {
		return params.Sort, params.SortDir
	}
	return s.DefaultSort, s.DefaultDir
}

// SearchSlice filters, sorts and paginates items according to params.
//
// items is treated as a read-only snapshot in insertion order: the result is
// built in a fresh slice, so callers may pass their canonical collection.
// Sorting is stable, so items with equal keys keep their insertion order.
func SearchSlice[T any](items []T, params domain.SearchParams, s SearchStrategy[T]) *domain.SearchResult[T] {
	params = params.Normalize()

	matched := make([]T, 0, len(items))
	for _, it := range items {
		if s.Visible != nil && !s.Visible(it) {
			continue
		}
		if params.Filter != "" && s.Match != nil && !s.Match(it, params.Filter) {
			continue
		}
		matched = append(matched, it)
	}

	field, dir := s.ResolveSort(params)
	if f, ok := s.Fields[field]; ok && f.Compare != nil {
		slices.SortStableFunc(matched, func(a, b T) int {
			if dir == domain.SortDesc {
				return f.Compare(b, a)
			}
			return f.Compare(a, b)
		})
	}

	total := len(matched)
	start := min(max(params.Skip(), 0), total)
	end := min(start+params.Take(), total)

	return domain.NewSearchResult(matched[start:end:end], int64(total), params, field, dir)
}
