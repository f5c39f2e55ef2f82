package cms

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// Cache defaults
const (
	DefaultCacheSize = 512
	DefaultCacheTTL  = 60 * time.Second
)

// CachedClient memoises successful fetches for a short TTL and collapses
// identical in-flight requests into one upstream call. Failures are never
// cached, so a retry always reaches the backend.
// Cached pages share their Items slice between callers; treat it as read-only.
// The upstream call outlives the caller that started it, bounded by the
// fetch timeout; each caller stops waiting when its own context is done.
type CachedClient struct {
	next    Fetcher
	pages   *expirable.LRU[string, listing.ResultPage]
	items   *expirable.LRU[string, listing.Item]
	group   singleflight.Group
	timeout time.Duration
}

// Compile-time check that *CachedClient satisfies Fetcher.
var _ Fetcher = (*CachedClient)(nil)

// NewCachedClient wraps next with an LRU of the given size and TTL.
// timeout bounds each coalesced upstream call.
// PRE: next is non-nil
// POST: non-positive size, ttl or timeout fall back to the defaults
func NewCachedClient(next Fetcher, size int, ttl, timeout time.Duration) *CachedClient {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CachedClient{
		next:    next,
		pages:   expirable.NewLRU[string, listing.ResultPage](size, nil, ttl),
		items:   expirable.NewLRU[string, listing.Item](size, nil, ttl),
		timeout: timeout,
	}
}

// FetchPage serves from cache or fetches through the wrapped client.
// PRE: q is a listing query for collection c
// POST: Successful results are cached under the encoded backend request
func (cc *CachedClient) FetchPage(ctx context.Context, c collection.Collection, q listing.Query) (listing.ResultPage, error) {
	key := "page:" + c.Endpoint + "?" + BuildQuery(c, q).Encode()
	if page, ok := cc.pages.Get(key); ok {
		slog.Debug("cms_cache_hit", "key", key)
		return page, nil
	}

	v, shared, err := cc.do(ctx, key, func(fctx context.Context) (any, error) {
		if page, ok := cc.pages.Get(key); ok {
			return page, nil
		}
		page, err := cc.next.FetchPage(fctx, c, q)
		if err != nil {
			return nil, err
		}
		cc.pages.Add(key, page)
		return page, nil
	})
	if err != nil {
		return listing.ResultPage{}, err
	}
	if shared {
		slog.Debug("cms_fetch_coalesced", "key", key)
	}
	return v.(listing.ResultPage), nil
}

// FetchBySlug serves a detail record from cache or the wrapped client.
// PRE: slug is non-empty
// POST: Successful results are cached per collection and slug
func (cc *CachedClient) FetchBySlug(ctx context.Context, c collection.Collection, slug string) (listing.Item, error) {
	key := "item:" + c.Endpoint + "/" + slug
	if it, ok := cc.items.Get(key); ok {
		return it, nil
	}
	v, _, err := cc.do(ctx, key, func(fctx context.Context) (any, error) {
		if it, ok := cc.items.Get(key); ok {
			return it, nil
		}
		it, err := cc.next.FetchBySlug(fctx, c, slug)
		if err != nil {
			return nil, err
		}
		cc.items.Add(key, it)
		return it, nil
	})
	if err != nil {
		return listing.Item{}, err
	}
	return v.(listing.Item), nil
}

// do runs fn once for all concurrent callers of key. fn gets a context
// detached from ctx and bounded by cc.timeout.
// POST: returns ctx.Err() if ctx is done before the shared call finishes
func (cc *CachedClient) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	ch := cc.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cc.timeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Purge drops every cached entry.
func (cc *CachedClient) Purge() {
	cc.pages.Purge()
	cc.items.Purge()
}

// Len returns the number of cached pages and items.
func (cc *CachedClient) Len() int {
	return cc.pages.Len() + cc.items.Len()
}
