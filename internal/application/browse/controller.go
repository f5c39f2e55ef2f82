package browse

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"investhub/internal/domain/listing"
)

// Debounce bounds for TypeSearch.
const (
	DefaultDebounce = 400 * time.Millisecond
	MinDebounce     = 300 * time.Millisecond
	MaxDebounce     = 500 * time.Millisecond
)

// MaxRestoredPages caps how many pages Mount and OnURLChange fetch to rebuild
// a list whose URL names a page past the first.
const MaxRestoredPages = 5

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("listing controller closed")

// View is an immutable snapshot of a listing page.
type View struct {
	Version uint64
	Status  listing.Status
	Query   listing.Query
	Items   []listing.Item
	HasMore bool
	Total   *int
	Err     error
}

// Options configures a Controller.
type Options struct {
	FilterKeys []string      // URL keys accepted by Decode; nil accepts all
	Debounce   time.Duration // search debounce; clamped to [MinDebounce, MaxDebounce]
	Navigator  Navigator     // optional; receives the encoded query on every change
}

// Controller owns one listing page: its filter store, its fetches and the
// items shown. All state changes are serialised behind mu; fetches run on
// their own goroutines so no method blocks on the network.
type Controller struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	store    *FilterStore
	fetcher  *Fetcher
	nav      Navigator
	keys     []string
	debounce time.Duration

	status  listing.Status
	items   []listing.Item
	hasMore bool
	total   *int
	err     error
	version uint64

	lastNavigated listing.Query
	searchTimer   *time.Timer
	searchGen     uint64
	pendingSearch string
	closed        bool
	wg            sync.WaitGroup

	notifyMu  sync.Mutex
	delivered uint64
	observers []Observer
}

// NewController returns an idle controller reading from src.
// PRE: src is non-nil
// POST: no request is made until Mount
func NewController(src PageSource, opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		ctx:           ctx,
		cancel:        cancel,
		store:         NewFilterStore(),
		fetcher:       NewFetcher(src),
		nav:           opts.Navigator,
		keys:          opts.FilterKeys,
		debounce:      clampDebounce(opts.Debounce),
		status:        listing.StatusIdle,
		lastNavigated: listing.NewQuery(),
	}
}

func clampDebounce(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultDebounce
	case d < MinDebounce:
		return MinDebounce
	case d > MaxDebounce:
		return MaxDebounce
	}
	return d
}

// Subscribe registers an observer for subsequent views.
func (c *Controller) Subscribe(o Observer) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.observers = append(c.observers, o)
}

// Mount adopts the query carried by the initial URL and fetches it. A URL
// naming page N rebuilds the list from pages N-MaxRestoredPages+1..N, floored at 1.
// PRE: the controller is idle
// POST: status is Loading and one fetch is in flight
func (c *Controller) Mount(v url.Values) error {
	q := listing.Decode(v, c.keys)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.store.Replace(q)
	q = c.store.Query()
	c.lastNavigated = q
	c.dispatchLocked(q, listing.EventQuery)
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// OnURLChange handles an external URL change such as back/forward navigation.
// A URL matching the query this controller last navigated to is ignored.
// POST: returns true if a fetch was dispatched
func (c *Controller) OnURLChange(v url.Values) bool {
	q := listing.Decode(v, c.keys)

	c.mu.Lock()
	if c.closed || q.Equal(c.lastNavigated) {
		c.mu.Unlock()
		return false
	}
	q, changed := c.store.Replace(q)
	c.lastNavigated = q
	if !changed {
		c.mu.Unlock()
		return false
	}
	c.dispatchLocked(q, listing.EventQuery)
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return true
}

// ApplyFilter selects values for a filter key and refetches from page 1.
func (c *Controller) ApplyFilter(key string, values []string) bool {
	return c.mutate(func(s *FilterStore) (listing.Query, bool) { return s.ApplyFilter(key, values) })
}

// ClearFilter drops a filter key and refetches from page 1.
func (c *Controller) ClearFilter(key string) bool {
	return c.mutate(func(s *FilterStore) (listing.Query, bool) { return s.ClearFilter(key) })
}

// ClearAll drops every filter and the search text.
func (c *Controller) ClearAll() bool {
	return c.mutate(func(s *FilterStore) (listing.Query, bool) { return s.ClearAll() })
}

// SetSortOrder changes the sort direction and refetches from page 1.
func (c *Controller) SetSortOrder(order listing.SortOrder) bool {
	return c.mutate(func(s *FilterStore) (listing.Query, bool) { return s.SetSortOrder(order) })
}

// SetSearchText applies search text immediately and drops any pending
// debounced search.
func (c *Controller) SetSearchText(text string) bool {
	c.mu.Lock()
	c.stopSearchLocked()
	c.mu.Unlock()
	return c.applySearch(text)
}

func (c *Controller) applySearch(text string) bool {
	return c.mutate(func(s *FilterStore) (listing.Query, bool) { return s.SetSearchText(text) })
}

// TypeSearch records a keystroke. The search is applied once no further
// keystroke arrives within the debounce window.
func (c *Controller) TypeSearch(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopSearchLocked()
	c.pendingSearch = text
	gen := c.searchGen
	c.searchTimer = time.AfterFunc(c.debounce, func() { c.flushSearch(gen) })
}

// flushSearch applies the pending text if no keystroke has arrived since
// the timer for gen was armed.
func (c *Controller) flushSearch(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.searchGen {
		c.mu.Unlock()
		return
	}
	text := c.pendingSearch
	c.searchTimer = nil
	c.mu.Unlock()

	c.applySearch(text)
}

// stopSearchLocked disarms the debounce timer. A callback that already
// fired sees a newer generation and does nothing.
// PRE: c.mu is held
func (c *Controller) stopSearchLocked() {
	c.searchGen++
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
}

// LoadMore fetches the next page and appends its unseen items.
// POST: returns false unless the page was Loaded with more results available
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	if c.closed || c.status != listing.StatusLoaded || !c.hasMore {
		c.mu.Unlock()
		return false
	}
	q := c.store.NextPage()
	c.lastNavigated = q
	c.dispatchLocked(q, listing.EventLoadMore)
	view := c.viewLocked()
	c.mu.Unlock()

	c.navigate(q)
	c.notify(view)
	return true
}

// Retry re-dispatches the current query after a failure.
// POST: returns false unless the status was Error
func (c *Controller) Retry() bool {
	c.mu.Lock()
	if c.closed || c.status != listing.StatusError {
		c.mu.Unlock()
		return false
	}
	q := c.store.Query()
	c.dispatchLocked(q, listing.EventRetry)
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return true
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Wait blocks until every dispatched fetch has completed or been discarded.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops the debounce timer, cancels in-flight fetches and waits for
// their goroutines to exit.
// POST: every later operation is a no-op
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopSearchLocked()
	c.fetcher.Abort()
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

// mutate applies a store mutation and, if the query changed, navigates and refetches.
func (c *Controller) mutate(fn func(*FilterStore) (listing.Query, bool)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	q, changed := fn(c.store)
	if !changed {
		c.mu.Unlock()
		return false
	}
	c.lastNavigated = q
	c.dispatchLocked(q, listing.EventQuery)
	view := c.viewLocked()
	c.mu.Unlock()

	c.navigate(q)
	c.notify(view)
	return true
}

// dispatchLocked moves the state machine for ev and starts a fetch for q.
// PRE: c.mu is held
func (c *Controller) dispatchLocked(q listing.Query, ev listing.Event) {
	c.transitionLocked(ev)
	if ev == listing.EventRetry && q.Page > 1 && len(c.items) > 0 {
		c.status = listing.StatusLoadingMore
	}
	if ev == listing.EventQuery {
		c.err = nil
	}

	appendItems := c.status == listing.StatusLoadingMore
	first := q.Page
	if !appendItems {
		first = max(1, q.Page-MaxRestoredPages+1)
	}
	t := c.fetcher.Begin(c.ctx, q)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer t.cancel()
		page, err := c.fetcher.FetchRange(t.ctx, q, first)
		c.complete(t, page, err, appendItems)
	}()
}

// complete applies a finished fetch unless it has been superseded.
func (c *Controller) complete(t ticket, page listing.ResultPage, err error, appendItems bool) {
	c.mu.Lock()
	if c.closed || !c.fetcher.Settle(t, c.store.Query()) {
		c.mu.Unlock()
		slog.Debug("listing_response_discarded", "seq", t.seq, "page", t.query.Page)
		return
	}

	if err != nil {
		c.transitionLocked(listing.EventFailed)
		c.err = err
		slog.Warn("listing_fetch_failed", "page", t.query.Page, "error", err)
	} else {
		base := c.items
		if !appendItems {
			base = nil
		}
		c.items = listing.Merge(base, page)
		c.hasMore = page.HasMore
		c.total = page.Total
		c.err = nil
		c.transitionLocked(listing.EventSucceeded)
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
}

// transitionLocked advances the status, logging transitions the machine rejects.
// PRE: c.mu is held
func (c *Controller) transitionLocked(ev listing.Event) {
	next, err := c.status.Next(ev)
	if err != nil {
		slog.Warn("listing_invalid_transition", "error", err)
		return
	}
	c.status = next
	c.version++
}

// viewLocked copies the current state.
// PRE: c.mu is held
func (c *Controller) viewLocked() View {
	return View{
		Version: c.version,
		Status:  c.status,
		Query:   c.store.Query(),
		Items:   append([]listing.Item(nil), c.items...),
		HasMore: c.hasMore,
		Total:   c.total,
		Err:     c.err,
	}
}

func (c *Controller) navigate(q listing.Query) {
	if c.nav != nil {
		c.nav.Navigate(listing.Encode(q))
	}
}

// notify delivers v to observers, dropping views older than one already delivered.
func (c *Controller) notify(v View) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if v.Version <= c.delivered {
		return
	}
	c.delivered = v.Version
	for _, o := range c.observers {
		o(v)
	}
}
