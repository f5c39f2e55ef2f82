package collection

import (
	"errors"
	"sort"
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 12

// Filter operators understood by the content backend.
const (
	OpIn         = "$in"
	OpEq         = "$eq"
	OpContainsI  = "$containsi"
	OpOr         = "$or"
	defaultOrder = "publishedAt"
)

// Filter keys shared across directory pages.
const (
	KeyRegion     = "region"
	KeyTopic      = "topic"
	KeyValueChain = "valueChain"
	KeyDate       = "date"
	KeyType       = "type"
)

// ErrUnknownCollection is returned when a slug does not name a directory page.
var ErrUnknownCollection = errors.New("unknown collection")

// FilterField maps a URL filter key to a backend field path.
type FilterField struct {
	Key      string   // URL parameter name, e.g. "region"
	Label    string   // shown above the filter group
	Path     []string // backend path, e.g. ["county", "name"]
	Operator string   // backend operator applied per value
}

// Collection describes one directory listing page and the backend
// collection that feeds it.
type Collection struct {
	Slug          string // URL segment, e.g. "investment-profiles"
	Title         string
	Endpoint      string // backend collection path under /api/
	Filters       []FilterField
	SearchFields  []string // fields matched case-insensitively by free-text search
	SortField     string
	Populate      []string
	PageSize      int
	TypeAttribute string // attribute holding the record type; empty uses Slug
}

// FilterKeys returns the URL keys this collection accepts, in declaration order.
func (c Collection) FilterKeys() []string {
	keys := make([]string, len(c.Filters))
	for i, f := range c.Filters {
		keys[i] = f.Key
	}
	return keys
}

// Filter returns the field declared for key.
func (c Collection) Filter(key string) (FilterField, bool) {
	for _, f := range c.Filters {
		if f.Key == key {
			return f, true
		}
	}
	return FilterField{}, false
}

// EffectivePageSize returns PageSize, or the default when unset.
func (c Collection) EffectivePageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return DefaultPageSize
}

// Validate checks that the collection is usable.
// PRE: none
// POST: Returns nil if slug, endpoint and every filter path are set
func (c Collection) Validate() error {
	if c.Slug == "" {
		return errors.New("collection slug is required")
	}
	if c.Endpoint == "" {
		return errors.New("collection endpoint is required")
	}
	seen := make(map[string]bool, len(c.Filters))
	for _, f := range c.Filters {
		if f.Key == "" || len(f.Path) == 0 || f.Operator == "" {
			return errors.New("filter " + f.Key + " needs a key, path and operator")
		}
		if seen[f.Key] {
			return errors.New("duplicate filter key " + f.Key)
		}
		seen[f.Key] = true
	}
	return nil
}

func region() FilterField {
	return FilterField{Key: KeyRegion, Label: "County", Path: []string{"county", "name"}, Operator: OpIn}
}

func valueChain() FilterField {
	return FilterField{Key: KeyValueChain, Label: "Value chain", Path: []string{"value_chain", "name"}, Operator: OpIn}
}

func topic() FilterField {
	return FilterField{Key: KeyTopic, Label: "Topic", Path: []string{"topic", "name"}, Operator: OpIn}
}

var catalog = []Collection{
	{
		Slug:     "investment-profiles",
		Title:    "Investment Profiles",
		Endpoint: "investment-opportunities",
		Filters: []FilterField{
			region(),
			valueChain(),
			{Key: KeyType, Label: "Investment type", Path: []string{"investment_type"}, Operator: OpIn},
		},
		SearchFields: []string{"title", "summary"},
		SortField:    defaultOrder,
		Populate:     []string{"county", "value_chain", "cover_image"},
	},
	{
		Slug:     "knowledge-hub",
		Title:    "Knowledge Hub",
		Endpoint: "knowledge-hubs",
		Filters: []FilterField{
			topic(),
			{Key: KeyType, Label: "Document type", Path: []string{"document_type"}, Operator: OpIn},
			region(),
		},
		SearchFields: []string{"title", "summary"},
		SortField:    defaultOrder,
		Populate:     []string{"topic", "county", "file"},
	},
	{
		Slug:     "news-events",
		Title:    "News & Events",
		Endpoint: "news-and-events",
		Filters: []FilterField{
			{Key: KeyType, Label: "Category", Path: []string{"category"}, Operator: OpIn},
			{Key: KeyDate, Label: "Year", Path: []string{"year"}, Operator: OpIn},
			region(),
		},
		SearchFields:  []string{"title", "summary"},
		SortField:     "date",
		Populate:      []string{"county", "cover_image"},
		TypeAttribute: "category",
	},
	{
		Slug:     "social-accountability",
		Title:    "Social Accountability",
		Endpoint: "social-accountabilities",
		Filters: []FilterField{
			region(),
			topic(),
		},
		SearchFields: []string{"title", "summary"},
		SortField:    defaultOrder,
		Populate:     []string{"county", "topic", "file"},
	},
	{
		Slug:     "stakeholders",
		Title:    "Stakeholder Directory",
		Endpoint: "stakeholders",
		Filters: []FilterField{
			region(),
			{Key: KeyType, Label: "Stakeholder type", Path: []string{"stakeholder_type"}, Operator: OpIn},
			valueChain(),
		},
		SearchFields: []string{"name", "description"},
		SortField:    "name",
		Populate:     []string{"county", "value_chain", "logo"},
	},
}

// All returns every directory collection, sorted by slug.
// POST: returned slice is a copy; callers may modify it
func All() []Collection {
	out := make([]Collection, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Lookup returns the collection with the given slug.
// PRE: none
// POST: Returns ErrUnknownCollection if no collection matches
func Lookup(slug string) (Collection, error) {
	for _, c := range catalog {
		if c.Slug == slug {
			return c, nil
		}
	}
	return Collection{}, ErrUnknownCollection
}

// WithPageSize returns the catalog with every collection's page size set to n.
// A non-positive n leaves the defaults.
func WithPageSize(n int) []Collection {
	out := All()
	if n <= 0 {
		return out
	}
	for i := range out {
		out[i].PageSize = n
	}
	return out
}
