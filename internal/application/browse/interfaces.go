// Package browse drives one interactive directory listing: it owns the
// filter state, fetches pages from a PageSource and exposes the resulting
// view to observers.
package browse

import (
	"context"
	"net/url"

	"investhub/internal/domain/listing"
)

// PageSource fetches pages of a single collection.
type PageSource interface {
	FetchPage(ctx context.Context, q listing.Query) (listing.ResultPage, error)
	PageSize() int
}

// Navigator receives shallow URL updates whenever the query changes.
// Implementations must not block.
type Navigator interface {
	Navigate(v url.Values)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(v url.Values)

// Navigate calls f(v).
func (f NavigatorFunc) Navigate(v url.Values) { f(v) }

// Observer receives a View after every state change. Observers run outside
// the controller lock on the goroutine that changed state, which may be a UI
// event loop, so they must not block or call back into the controller.
type Observer func(View)
