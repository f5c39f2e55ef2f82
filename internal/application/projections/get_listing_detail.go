package projections

import (
	"context"

	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// GetListingDetailQuery carries query parameters.
type GetListingDetailQuery struct {
	Collection collection.Collection
	Slug       string
}

// GetListingDetailResult carries the query result.
type GetListingDetailResult struct {
	Collection collection.Collection
	Item       listing.Item
}

// GetListingDetailDeps holds dependencies for GetListingDetail.
type GetListingDetailDeps struct {
	Content ContentFetcher
}

// QueryGetListingDetail retrieves a single directory record by slug.
// PRE: query.Slug is non-empty
// POST: Returns the record or the fetcher's not-found error
func QueryGetListingDetail(ctx context.Context, query GetListingDetailQuery, deps GetListingDetailDeps) (GetListingDetailResult, error) {
	it, err := deps.Content.FetchBySlug(ctx, query.Collection, query.Slug)
	if err != nil {
		return GetListingDetailResult{}, err
	}
	return GetListingDetailResult{Collection: query.Collection, Item: it}, nil
}
