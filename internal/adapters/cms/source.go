package cms

import (
	"context"

	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// Source binds a Fetcher to one collection so listing controllers can fetch
// pages without knowing which backend endpoint they read.
type Source struct {
	fetcher Fetcher
	coll    collection.Collection
}

// NewSource returns a page source for collection c.
// PRE: f is non-nil
func NewSource(f Fetcher, c collection.Collection) *Source {
	return &Source{fetcher: f, coll: c}
}

// FetchPage fetches one page of the bound collection.
func (s *Source) FetchPage(ctx context.Context, q listing.Query) (listing.ResultPage, error) {
	return s.fetcher.FetchPage(ctx, s.coll, q)
}

// PageSize returns the number of items requested per page.
func (s *Source) PageSize() int {
	return s.coll.EffectivePageSize()
}

// Collection returns the bound collection.
func (s *Source) Collection() collection.Collection {
	return s.coll
}
