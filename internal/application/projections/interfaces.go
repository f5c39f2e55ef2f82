package projections

import (
	"context"

	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// ContentFetcher interface for directory content reads.
type ContentFetcher interface {
	FetchPage(ctx context.Context, c collection.Collection, q listing.Query) (listing.ResultPage, error)
	FetchBySlug(ctx context.Context, c collection.Collection, slug string) (listing.Item, error)
}
