package projections

import (
	"context"
	"net/url"

	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// MaxAccumulatedPages caps how many pages a server-rendered listing fetches
// to rebuild a "load more" URL. Deeper pages show the trailing window of
// that many pages.
const MaxAccumulatedPages = 5

// GetListingQuery carries query parameters.
type GetListingQuery struct {
	Collection collection.Collection
	Params     url.Values // raw URL query of the listing page
	Accumulate bool       // fetch up to MaxAccumulatedPages pages ending at Page and merge them
}

// GetListingResult carries the query result.
type GetListingResult struct {
	Collection collection.Collection
	Query      listing.Query
	Items      []listing.Item
	HasMore    bool
	Total      *int
	FirstPage  int        // first page merged into Items
	NextParams url.Values // nil when there is nothing more to load
	PrevParams url.Values // nil when Items start at page 1
}

// GetListingDeps holds dependencies for GetListing.
type GetListingDeps struct {
	Content ContentFetcher
}

// QueryGetListing decodes the URL query for a collection and fetches its page.
// PRE: query.Collection is a catalog collection
// POST: Returns items for the decoded page, or the fetch error unchanged
// POST: NextParams, when set, names a page after every page in Items
// INVARIANT: Accumulated pages are merged with no duplicate type/id keys
func QueryGetListing(ctx context.Context, query GetListingQuery, deps GetListingDeps) (GetListingResult, error) {
	c := query.Collection
	q := listing.Decode(query.Params, c.FilterKeys())

	first := q.Page
	if query.Accumulate {
		first = max(1, q.Page-MaxAccumulatedPages+1)
	}

	result := GetListingResult{Collection: c, Query: q, FirstPage: first}
	for page := first; page <= q.Page; page++ {
		pq := q
		pq.Page = page
		rp, err := deps.Content.FetchPage(ctx, c, pq)
		if err != nil {
			return GetListingResult{}, err
		}
		if page == first {
			result.Items = listing.Merge(nil, rp)
		} else {
			result.Items = listing.Merge(result.Items, rp)
		}
		result.HasMore = rp.HasMore
		result.Total = rp.Total
		if !rp.HasMore {
			result.Query.Page = page
			break
		}
	}

	if result.HasMore {
		next := result.Query
		next.Page++
		result.NextParams = listing.Encode(next)
	}
	if first > 1 {
		prev := q
		prev.Page = first - 1
		result.PrevParams = listing.Encode(prev)
	}
	return result, nil
}
