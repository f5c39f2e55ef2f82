package listing

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
)

// SortOrder is the direction results are ordered in.
type SortOrder string

// Sort order constants
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultSort is the order used when none is requested.
const DefaultSort = SortDesc

// Domain errors
var (
	ErrInvalidPage = errors.New("page must be >= 1")
	ErrInvalidSort = errors.New("sort order must be 'asc' or 'desc'")
)

// Valid reports whether o is one of the known sort orders.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// FilterState maps a filter key (region, topic, valueChain, ...) to the
// selected values. An empty or missing set means no constraint.
type FilterState map[string][]string

// Normalize returns a copy with values trimmed, deduplicated and sorted, and
// with keys that have no values (or that collide with a URL parameter the
// codec reserves) removed.
// PRE: none
// POST: returned state is never nil; receiver is not mutated
func (f FilterState) Normalize() FilterState {
	sets := make(map[string]map[string]bool, len(f))
	for key, values := range f {
		key = strings.TrimSpace(key)
		if key == "" || IsReservedParam(key) {
			continue
		}
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if sets[key] == nil {
				sets[key] = make(map[string]bool)
			}
			sets[key][v] = true
		}
	}

	out := make(FilterState, len(sets))
	for key, set := range sets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		out[key] = values
	}
	return out
}

// Equal compares two filter states as unordered value sets.
func (f FilterState) Equal(other FilterState) bool {
	a, b := f.Normalize(), other.Normalize()
	if len(a) != len(b) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}

// Keys returns the filter keys that carry at least one value, sorted.
func (f FilterState) Keys() []string {
	n := f.Normalize()
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the filter state.
func (f FilterState) Clone() FilterState {
	out := make(FilterState, len(f))
	for k, v := range f {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Query is the normalized tuple driving a fetch for one listing page.
type Query struct {
	Page       int
	SearchText string
	Filters    FilterState
	Sort       SortOrder
}

// NewQuery returns the default query: first page, no search, no filters, newest first.
func NewQuery() Query {
	return Query{Page: 1, Filters: FilterState{}, Sort: DefaultSort}
}

// Validate checks the query invariants.
// PRE: none
// POST: Returns nil if Page >= 1 and Sort is asc or desc
func (q Query) Validate() error {
	if q.Page < 1 {
		return ErrInvalidPage
	}
	if !q.Sort.Valid() {
		return ErrInvalidSort
	}
	return nil
}

// Normalize repairs the query so that it satisfies Validate.
// PRE: none
// POST: Page >= 1, Sort valid, SearchText trimmed, Filters normalized
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if !q.Sort.Valid() {
		q.Sort = DefaultSort
	}
	q.SearchText = strings.TrimSpace(q.SearchText)
	q.Filters = q.Filters.Normalize()
	return q
}

// FirstPage returns the same query reset to page 1.
func (q Query) FirstPage() Query {
	q.Page = 1
	return q
}

// SameListing reports whether two queries select the same result set,
// ignoring the page number.
func (q Query) SameListing(other Query) bool {
	a, b := q.Normalize(), other.Normalize()
	return a.SearchText == b.SearchText && a.Sort == b.Sort && a.Filters.Equal(b.Filters)
}

// Equal reports whether two queries are equivalent, page included.
func (q Query) Equal(other Query) bool {
	return q.Normalize().Page == other.Normalize().Page && q.SameListing(other)
}

// IsDefault reports whether the query carries no search, filters or sort override.
func (q Query) IsDefault() bool {
	n := q.Normalize()
	return n.SearchText == "" && len(n.Filters) == 0 && n.Sort == DefaultSort
}

// Item is one content record shown on a listing page.
type Item struct {
	ID          string
	Type        string
	Slug        string
	Title       string
	Summary     string
	Body        string // markdown, populated on detail lookups
	PublishedAt time.Time
	Attributes  map[string]json.RawMessage
}

// Key returns the stable identity of the item: the type/id composite.
// INVARIANT: Item fields are not mutated
func (i Item) Key() string {
	return i.Type + ":" + i.ID
}

// Attr decodes a single raw attribute into a string, or returns "" when
// the attribute is missing or not a JSON string.
func (i Item) Attr(name string) string {
	raw, ok := i.Attributes[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// ResultPage is one page of items returned by the content backend.
type ResultPage struct {
	Items     []Item
	Page      int
	PageCount int
	HasMore   bool
	Total     *int // nil when the backend did not report a total
}

// HasMoreItems derives whether another page should be offered.
// There is no backend cursor, so a page that is exactly full reports true
// even when it was the last one; the following "load more" returns nothing.
// PRE: pageSize > 0
// POST: Returns count >= pageSize
func HasMoreItems(count, pageSize int) bool {
	if pageSize <= 0 {
		return false
	}
	return count >= pageSize
}
