package browse

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"investhub/internal/domain/listing"
)

// fakeSource serves generated pages and records every query it receives.
type fakeSource struct {
	pageSize int

	mu      sync.Mutex
	calls   []listing.Query
	respond func(q listing.Query) (listing.ResultPage, error)
	hold    map[string]chan struct{} // search text -> gate closed to release the response
}

func (f *fakeSource) PageSize() int { return f.pageSize }

func (f *fakeSource) FetchPage(ctx context.Context, q listing.Query) (listing.ResultPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	gate := f.hold[q.SearchText]
	respond := f.respond
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if respond != nil {
		return respond(q)
	}
	return generatedPage(q, f.pageSize, f.pageSize), nil
}

func (f *fakeSource) queries() []listing.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listing.Query(nil), f.calls...)
}

func (f *fakeSource) count() int {
	return len(f.queries())
}

// generatedPage returns n items whose ids encode the query and page.
func generatedPage(q listing.Query, n, pageSize int) listing.ResultPage {
	items := make([]listing.Item, n)
	for i := range items {
		items[i] = listing.Item{
			ID:    fmt.Sprintf("%s-%d-%d", q.SearchText, q.Page, i),
			Type:  "stakeholders",
			Title: fmt.Sprintf("item %d", i),
		}
	}
	return listing.ResultPage{Items: items, Page: q.Page, HasMore: listing.HasMoreItems(n, pageSize)}
}

// recordingNavigator captures every URL the controller pushes.
type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNavigator) Navigate(v url.Values) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, v.Encode())
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}

func newTestController(t *testing.T, src *fakeSource) (*Controller, *recordingNavigator) {
	t.Helper()
	nav := &recordingNavigator{}
	c := NewController(src, Options{FilterKeys: []string{"region", "type", "valueChain"}, Navigator: nav, Debounce: MinDebounce})
	t.Cleanup(c.Close)
	return c, nav
}

func mounted(t *testing.T, src *fakeSource, rawQuery string) (*Controller, *recordingNavigator) {
	t.Helper()
	c, nav := newTestController(t, src)
	v, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Mount(v); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	c.Wait()
	return c, nav
}

func itemKeys(items []listing.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key()
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestController_MountFetchesDecodedQuery(t *testing.T) {
	src := &fakeSource{pageSize: 3}
	c, _ := mounted(t, src, "region=Turkana,Marsabit&sort=asc&unknown=x")

	calls := src.queries()
	if len(calls) != 1 {
		t.Fatalf("fetches = %d, want 1", len(calls))
	}
	want := listing.Query{Page: 1, Filters: listing.FilterState{"region": {"Marsabit", "Turkana"}}, Sort: listing.SortAsc}
	if diff := cmp.Diff(want, calls[0]); diff != "" {
		t.Errorf("fetched query mismatch (-want +got):\n%s", diff)
	}

	v := c.View()
	if v.Status != listing.StatusLoaded || len(v.Items) != 3 || !v.HasMore {
		t.Errorf("view = %s, %d items, hasMore=%v", v.Status, len(v.Items), v.HasMore)
	}
}

func TestController_ApplyFilterNavigatesWithoutDefaults(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, nav := mounted(t, src, "")

	if !c.ApplyFilter("region", []string{"Turkana"}) {
		t.Fatal("ApplyFilter reported no change")
	}
	c.Wait()

	if got := nav.last(); got != "region=Turkana" {
		t.Errorf("navigated to %q, want %q", got, "region=Turkana")
	}
}

func TestController_FilterChangeResetsToFirstPageAndReplaces(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")

	if !c.LoadMore() {
		t.Fatal("LoadMore refused on a full page")
	}
	c.Wait()
	if n := len(c.View().Items); n != 4 {
		t.Fatalf("after load more items = %d, want 4", n)
	}

	c.SetSearchText("fish")
	c.Wait()

	calls := src.queries()
	last := calls[len(calls)-1]
	if last.Page != 1 || last.SearchText != "fish" {
		t.Errorf("last fetch = %+v, want page 1 search fish", last)
	}
	v := c.View()
	want := []string{"stakeholders:fish-1-0", "stakeholders:fish-1-1"}
	if diff := cmp.Diff(want, itemKeys(v.Items)); diff != "" {
		t.Errorf("items not replaced (-want +got):\n%s", diff)
	}
}

func TestController_LoadMoreAppendsOnlyUnseenItems(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	src.respond = func(q listing.Query) (listing.ResultPage, error) {
		if q.Page == 1 {
			return listing.ResultPage{Page: 1, HasMore: true, Items: []listing.Item{
				{Type: "stakeholders", ID: "1"}, {Type: "stakeholders", ID: "2"},
			}}, nil
		}
		return listing.ResultPage{Page: q.Page, HasMore: false, Items: []listing.Item{
			{Type: "stakeholders", ID: "2"}, {Type: "knowledge-hub", ID: "2"},
		}}, nil
	}
	c, nav := mounted(t, src, "")

	c.LoadMore()
	c.Wait()

	v := c.View()
	want := []string{"stakeholders:1", "stakeholders:2", "knowledge-hub:2"}
	if diff := cmp.Diff(want, itemKeys(v.Items)); diff != "" {
		t.Errorf("merged items mismatch (-want +got):\n%s", diff)
	}
	if v.HasMore {
		t.Error("HasMore should follow the last page")
	}
	if v.Query.Page != 2 || nav.last() != "page=2" {
		t.Errorf("page = %d, url = %q", v.Query.Page, nav.last())
	}
	if c.LoadMore() {
		t.Error("LoadMore must refuse when no more results")
	}
}

func TestController_LoadMoreRequiresLoaded(t *testing.T) {
	src := &fakeSource{pageSize: 2, hold: map[string]chan struct{}{"": make(chan struct{})}}
	c, _ := newTestController(t, src)
	c.Mount(url.Values{})

	if c.LoadMore() {
		t.Error("LoadMore must refuse while loading")
	}
	close(src.hold[""])
	c.Wait()
}

func TestController_DiscardsSupersededResponse(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{pageSize: 2, hold: map[string]chan struct{}{"water": gate}}
	c, _ := mounted(t, src, "")

	c.SetSearchText("water")
	waitFor(t, func() bool { return src.count() == 2 })
	c.SetSearchText("tilapia")
	waitFor(t, func() bool { return c.View().Status == listing.StatusLoaded })

	close(gate) // the "water" response now arrives late
	c.Wait()

	v := c.View()
	if v.Query.SearchText != "tilapia" {
		t.Fatalf("query = %q, want tilapia", v.Query.SearchText)
	}
	want := []string{"stakeholders:tilapia-1-0", "stakeholders:tilapia-1-1"}
	if diff := cmp.Diff(want, itemKeys(v.Items)); diff != "" {
		t.Errorf("stale response applied (-want +got):\n%s", diff)
	}
}

func TestController_FailureAndRetry(t *testing.T) {
	var mu sync.Mutex
	fail := true
	src := &fakeSource{pageSize: 2}
	src.respond = func(q listing.Query) (listing.ResultPage, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return listing.ResultPage{}, errors.New("backend down")
		}
		return generatedPage(q, 2, 2), nil
	}
	c, _ := mounted(t, src, "")

	v := c.View()
	if v.Status != listing.StatusError || v.Err == nil || len(v.Items) != 0 {
		t.Fatalf("view = %s err=%v items=%d, want error state", v.Status, v.Err, len(v.Items))
	}
	if c.LoadMore() {
		t.Error("LoadMore must refuse in error state")
	}

	mu.Lock()
	fail = false
	mu.Unlock()
	if !c.Retry() {
		t.Fatal("Retry refused in error state")
	}
	c.Wait()

	v = c.View()
	if v.Status != listing.StatusLoaded || v.Err != nil || len(v.Items) != 2 {
		t.Errorf("after retry view = %s err=%v items=%d", v.Status, v.Err, len(v.Items))
	}
	if c.Retry() {
		t.Error("Retry must refuse outside the error state")
	}
}

func TestController_LoadMoreFailureKeepsItems(t *testing.T) {
	var mu sync.Mutex
	failPage2 := true
	src := &fakeSource{pageSize: 2}
	src.respond = func(q listing.Query) (listing.ResultPage, error) {
		mu.Lock()
		defer mu.Unlock()
		if q.Page == 2 && failPage2 {
			return listing.ResultPage{}, errors.New("timeout")
		}
		return generatedPage(q, 2, 2), nil
	}
	c, _ := mounted(t, src, "")

	c.LoadMore()
	c.Wait()
	v := c.View()
	if v.Status != listing.StatusError || len(v.Items) != 2 {
		t.Fatalf("view = %s items=%d, want error with the first page kept", v.Status, len(v.Items))
	}

	gate := make(chan struct{})
	mu.Lock()
	failPage2 = false
	mu.Unlock()
	src.mu.Lock()
	src.hold = map[string]chan struct{}{"": gate}
	src.mu.Unlock()

	c.Retry()
	if got := c.View().Status; got != listing.StatusLoadingMore {
		t.Errorf("retrying page 2 status = %s, want loading_more", got)
	}
	close(gate)
	c.Wait()

	if n := len(c.View().Items); n != 4 {
		t.Errorf("items after retry = %d, want 4", n)
	}
}

func TestController_DebouncedSearchFetchesOnce(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")

	c.TypeSearch("water")
	c.TypeSearch("tilapia")

	waitFor(t, func() bool { return src.count() == 2 })
	time.Sleep(MaxDebounce)
	c.Wait()

	calls := src.queries()
	if len(calls) != 2 {
		t.Fatalf("fetches = %d, want mount plus one search", len(calls))
	}
	if calls[1].SearchText != "tilapia" {
		t.Errorf("search fetched %q, want tilapia", calls[1].SearchText)
	}
}

func TestController_CloseCancelsPendingSearch(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")

	c.TypeSearch("water")
	c.Close()
	time.Sleep(MaxDebounce + 100*time.Millisecond)

	if n := src.count(); n != 1 {
		t.Errorf("fetches = %d, want only the mount", n)
	}
	if c.ApplyFilter("region", []string{"Turkana"}) {
		t.Error("closed controller must ignore mutations")
	}
	if err := c.Mount(url.Values{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Mount after Close = %v, want ErrClosed", err)
	}
}

func TestController_LateTimerForSupersededKeystrokeIsIgnored(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")

	c.TypeSearch("water")
	c.mu.Lock()
	stale := c.searchGen
	c.mu.Unlock()
	c.TypeSearch("tilapia")

	c.flushSearch(stale) // the "water" timer firing after it was stopped
	if n := src.count(); n != 1 {
		t.Fatalf("fetches = %d, want no search before the debounce elapses", n)
	}

	waitFor(t, func() bool { return src.count() == 2 })
	c.Wait()
	if got := src.queries()[1].SearchText; got != "tilapia" {
		t.Errorf("search fetched %q, want tilapia", got)
	}
}

func TestController_SetSearchTextDropsPendingKeystrokes(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")

	c.TypeSearch("water")
	c.SetSearchText("tilapia")
	c.Wait()
	time.Sleep(MaxDebounce + 100*time.Millisecond)
	c.Wait()

	calls := src.queries()
	if len(calls) != 2 {
		t.Fatalf("fetches = %d, want mount plus one search", len(calls))
	}
	if calls[1].SearchText != "tilapia" {
		t.Errorf("search fetched %q, want tilapia", calls[1].SearchText)
	}
	if got := c.View().Query.SearchText; got != "tilapia" {
		t.Errorf("query search = %q, want tilapia", got)
	}
}

func TestController_MountOnLaterPageRebuildsList(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "page=3")

	var pages []int
	for _, q := range src.queries() {
		pages = append(pages, q.Page)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, pages); diff != "" {
		t.Errorf("fetched pages (-want +got):\n%s", diff)
	}
	v := c.View()
	if len(v.Items) != 6 || v.Query.Page != 3 || !v.HasMore {
		t.Errorf("items=%d page=%d hasMore=%v, want 6 items on page 3 with more", len(v.Items), v.Query.Page, v.HasMore)
	}
}

func TestController_BackNavigationRestoresEarlierPages(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")
	c.LoadMore()
	c.Wait()
	c.LoadMore()
	c.Wait()

	if !c.OnURLChange(url.Values{"page": {"2"}}) {
		t.Fatal("back navigation to page 2 must refetch")
	}
	c.Wait()

	want := []string{"stakeholders:-1-0", "stakeholders:-1-1", "stakeholders:-2-0", "stakeholders:-2-1"}
	if diff := cmp.Diff(want, itemKeys(c.View().Items)); diff != "" {
		t.Errorf("items after back navigation (-want +got):\n%s", diff)
	}
}

func TestController_RestoreIsCapped(t *testing.T) {
	src := &fakeSource{pageSize: 1}
	c, _ := mounted(t, src, "page=40")

	calls := src.queries()
	if len(calls) != MaxRestoredPages {
		t.Fatalf("fetches = %d, want %d", len(calls), MaxRestoredPages)
	}
	if calls[0].Page != 40-MaxRestoredPages+1 {
		t.Errorf("first restored page = %d, want %d", calls[0].Page, 40-MaxRestoredPages+1)
	}
	if n := len(c.View().Items); n != MaxRestoredPages {
		t.Errorf("items = %d, want %d", n, MaxRestoredPages)
	}
}

func TestController_URLChangeGuard(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")

	c.ApplyFilter("region", []string{"Turkana"})
	c.Wait()
	if c.OnURLChange(url.Values{"region": {"Turkana"}}) {
		t.Error("URL echoing our own navigation must not refetch")
	}
	if n := src.count(); n != 2 {
		t.Fatalf("fetches = %d, want 2", n)
	}

	if !c.OnURLChange(url.Values{}) {
		t.Fatal("back navigation to the unfiltered URL must refetch")
	}
	c.Wait()
	if q := c.View().Query; !q.Equal(listing.NewQuery()) {
		t.Errorf("query = %+v, want default", q)
	}
}

func TestController_UnchangedMutationDoesNotFetch(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")

	c.ApplyFilter("valueChain", []string{"water", "tilapia"})
	c.Wait()
	if c.ApplyFilter("valueChain", []string{"tilapia", "water"}) {
		t.Error("same selection must be a no-op")
	}
	if c.ClearFilter("region") {
		t.Error("clearing an unset filter must be a no-op")
	}
	if n := src.count(); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestController_ClearRestoresUnfilteredResults(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := mounted(t, src, "")
	initial := itemKeys(c.View().Items)

	c.ApplyFilter("region", []string{"Turkana", "Marsabit"})
	c.Wait()
	c.ClearFilter("region")
	c.Wait()

	calls := src.queries()
	if last := calls[len(calls)-1]; !last.Equal(listing.NewQuery()) {
		t.Errorf("last fetch = %+v, want the default query", last)
	}
	if diff := cmp.Diff(initial, itemKeys(c.View().Items)); diff != "" {
		t.Errorf("items after clear (-want +got):\n%s", diff)
	}
}

func TestController_ObserversSeeFinalState(t *testing.T) {
	src := &fakeSource{pageSize: 2}
	c, _ := newTestController(t, src)

	var mu sync.Mutex
	var seen []listing.Status
	c.Subscribe(func(v View) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, v.Status)
	})
	c.Mount(url.Values{})
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[len(seen)-1] != listing.StatusLoaded {
		t.Errorf("observed %v, want to end in loaded", seen)
	}
}

func TestClampDebounce(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		0:                      DefaultDebounce,
		50 * time.Millisecond:  MinDebounce,
		450 * time.Millisecond: 450 * time.Millisecond,
		time.Second:            MaxDebounce,
	}
	for in, want := range cases {
		if got := clampDebounce(in); got != want {
			t.Errorf("clampDebounce(%v) = %v, want %v", in, got, want)
		}
	}
}
