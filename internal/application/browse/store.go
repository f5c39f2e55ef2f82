package browse

import (
	"investhub/internal/domain/listing"
)

// FilterStore owns the current query of one listing page.
// It is not safe for concurrent use; the Controller serialises access.
type FilterStore struct {
	q listing.Query
}

// NewFilterStore returns a store holding the default query.
func NewFilterStore() *FilterStore {
	return &FilterStore{q: listing.NewQuery()}
}

// Query returns the current query.
func (s *FilterStore) Query() listing.Query {
	return s.q
}

// ApplyFilter replaces the selected values for key. Empty values clear it.
// PRE: key is a filter key of the collection
// POST: changed is false when the selection already matched; otherwise page is 1
func (s *FilterStore) ApplyFilter(key string, values []string) (listing.Query, bool) {
	next := s.q
	next.Filters = s.q.Filters.Clone()
	next.Filters[key] = append([]string(nil), values...)
	return s.adopt(next)
}

// ClearFilter removes every value selected for key.
// POST: clearing an absent key is a no-op
func (s *FilterStore) ClearFilter(key string) (listing.Query, bool) {
	next := s.q
	next.Filters = s.q.Filters.Clone()
	delete(next.Filters, key)
	return s.adopt(next)
}

// ClearAll removes every filter and the search text. Sort order is kept.
func (s *FilterStore) ClearAll() (listing.Query, bool) {
	next := s.q
	next.Filters = listing.FilterState{}
	next.SearchText = ""
	return s.adopt(next)
}

// SetSearchText replaces the free-text search.
func (s *FilterStore) SetSearchText(text string) (listing.Query, bool) {
	next := s.q
	next.SearchText = text
	return s.adopt(next)
}

// SetSortOrder changes the sort direction.
// PRE: order is asc or desc; anything else falls back to the default
func (s *FilterStore) SetSortOrder(order listing.SortOrder) (listing.Query, bool) {
	next := s.q
	next.Sort = order
	return s.adopt(next)
}

// Replace adopts a query decoded from the URL, page included.
// POST: changed reports whether the normalized query differs from the current one
func (s *FilterStore) Replace(q listing.Query) (listing.Query, bool) {
	q = q.Normalize()
	if q.Equal(s.q) {
		return s.q, false
	}
	s.q = q
	return s.q, true
}

// NextPage advances to the following page of the same listing.
// POST: Page is incremented and every other field is unchanged
func (s *FilterStore) NextPage() listing.Query {
	s.q.Page++
	return s.q
}

// adopt stores next reset to page 1 unless it selects the listing already shown.
func (s *FilterStore) adopt(next listing.Query) (listing.Query, bool) {
	next = next.Normalize()
	if next.SameListing(s.q) {
		return s.q, false
	}
	s.q = next.FirstPage()
	return s.q, true
}
