package browse

import (
	"context"

	"investhub/internal/domain/listing"
)

// ticket identifies one dispatched request.
type ticket struct {
	seq    uint64
	query  listing.Query
	ctx    context.Context
	cancel context.CancelFunc
}

// Fetcher issues page requests and decides which responses are still wanted.
// Begin and Settle are not safe for concurrent use; Fetch is.
type Fetcher struct {
	source PageSource
	seq    uint64
	cancel context.CancelFunc
}

// NewFetcher returns a fetcher reading from src.
func NewFetcher(src PageSource) *Fetcher {
	return &Fetcher{source: src}
}

// Fetch requests one page from the source.
func (f *Fetcher) Fetch(ctx context.Context, q listing.Query) (listing.ResultPage, error) {
	return f.source.FetchPage(ctx, q)
}

// FetchRange requests pages first..q.Page and merges them into one page
// carrying the last page's HasMore and Total. It stops at the first page
// that reports no more results.
func (f *Fetcher) FetchRange(ctx context.Context, q listing.Query, first int) (listing.ResultPage, error) {
	if first >= q.Page {
		return f.Fetch(ctx, q)
	}
	var out listing.ResultPage
	for page := first; page <= q.Page; page++ {
		pq := q
		pq.Page = page
		rp, err := f.source.FetchPage(ctx, pq)
		if err != nil {
			return listing.ResultPage{}, err
		}
		out.Items = listing.Merge(out.Items, rp)
		out.Page, out.PageCount, out.HasMore, out.Total = page, rp.PageCount, rp.HasMore, rp.Total
		if !rp.HasMore {
			break
		}
	}
	return out, nil
}

// PageSize returns the source's page size.
func (f *Fetcher) PageSize() int {
	return f.source.PageSize()
}

// Begin registers a new request for q and cancels the one it supersedes.
// POST: the returned ticket is the only one Settle will accept until the next Begin
func (f *Fetcher) Begin(parent context.Context, q listing.Query) ticket {
	if f.cancel != nil {
		f.cancel()
	}
	f.seq++
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	return ticket{seq: f.seq, query: q, ctx: ctx, cancel: cancel}
}

// Settle reports whether the response for t may be applied given the
// query the store holds now.
// INVARIANT: a response is applied only if it is the latest dispatch and its
// query snapshot equals the current query
func (f *Fetcher) Settle(t ticket, current listing.Query) bool {
	if t.seq != f.seq {
		return false
	}
	f.cancel = nil
	return t.query.Equal(current)
}

// Abort cancels the in-flight request, if any.
func (f *Fetcher) Abort() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}
