package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"investhub/internal/adapters/cms"
	"investhub/internal/application/projections"
	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// catalog returns the served collections in display order.
func catalog() []collection.Collection {
	return site.Collections
}

// lookupCollection resolves the {collection} path segment.
func lookupCollection(r *http.Request) (collection.Collection, bool) {
	c, ok := collections[r.PathValue("collection")]
	return c, ok
}

// listingURL builds the browse URL for q within collection slug.
func listingURL(slug string, q listing.Query) string {
	base := "/browse/" + slug
	if encoded := listing.EncodeString(q); encoded != "" {
		return base + "?" + encoded
	}
	return base
}

// filterGroup is one filter field on a listing page.
type filterGroup struct {
	Key      string
	Label    string
	Value    string // comma-joined selected values, as typed into the form
	Active   bool
	ClearURL string
}

// listingPage is the view model for listing.html.
type listingPage struct {
	Collection  collection.Collection
	Query       listing.Query
	Items       []listing.Item
	Total       *int
	HasMore     bool
	NextURL     string
	PrevURL     string // earlier pages trimmed from a deep accumulated listing
	Filters     []filterGroup
	Filtered    bool
	ClearAllURL string
	SortAscURL  string
	SortDescURL string
	SortAsc     bool
}

func newListingPage(res projections.GetListingResult) listingPage {
	c := res.Collection
	q := res.Query
	page := listingPage{
		Collection:  c,
		Query:       q,
		Items:       res.Items,
		Total:       res.Total,
		HasMore:     res.HasMore,
		Filtered:    !q.IsDefault(),
		SortAsc:     q.Sort == listing.SortAsc,
		ClearAllURL: listingURL(c.Slug, listing.Query{Page: 1, Filters: listing.FilterState{}, Sort: q.Sort}),
	}
	if res.NextParams != nil {
		page.NextURL = "/browse/" + c.Slug + "?" + res.NextParams.Encode()
	}
	if res.PrevParams != nil {
		page.PrevURL = "/browse/" + c.Slug + "?" + res.PrevParams.Encode()
	}

	asc, desc := q.FirstPage(), q.FirstPage()
	asc.Sort, desc.Sort = listing.SortAsc, listing.SortDesc
	page.SortAscURL = listingURL(c.Slug, asc)
	page.SortDescURL = listingURL(c.Slug, desc)

	for _, f := range c.Filters {
		values := q.Filters[f.Key]
		cleared := q.FirstPage()
		cleared.Filters = q.Filters.Clone()
		delete(cleared.Filters, f.Key)
		page.Filters = append(page.Filters, filterGroup{
			Key:      f.Key,
			Label:    f.Label,
			Value:    strings.Join(values, ", "),
			Active:   len(values) > 0,
			ClearURL: listingURL(c.Slug, cleared),
		})
	}
	return page
}

// handleHome handles GET / with the collection list.
func handleHome(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "home.html", map[string]any{
		"Collections": catalog(),
	})
}

// handleBrowse handles GET /browse/{collection}
func handleBrowse(w http.ResponseWriter, r *http.Request) {
	c, ok := lookupCollection(r)
	if !ok {
		renderError(w, r, http.StatusNotFound, "That directory does not exist.")
		return
	}

	res, err := projections.QueryGetListing(r.Context(), projections.GetListingQuery{
		Collection: c,
		Params:     r.URL.Query(),
		Accumulate: true,
	}, projections.GetListingDeps{Content: content})
	if err != nil {
		slog.Warn("listing_page_failed", "collection", c.Slug, "error", err)
		renderTemplateStatus(w, r, http.StatusBadGateway, "listing.html", map[string]any{
			"Page": newListingPage(projections.GetListingResult{
				Collection: c,
				Query:      listing.Decode(r.URL.Query(), c.FilterKeys()),
			}),
			"Error": "We could not load this directory right now. Please try again.",
			"Retry": r.URL.RequestURI(),
		})
		return
	}

	renderTemplate(w, r, "listing.html", map[string]any{
		"Page": newListingPage(res),
	})
}

// handleListingDetail handles GET /browse/{collection}/{slug}
func handleListingDetail(w http.ResponseWriter, r *http.Request) {
	c, ok := lookupCollection(r)
	if !ok {
		renderError(w, r, http.StatusNotFound, "That directory does not exist.")
		return
	}

	res, err := projections.QueryGetListingDetail(r.Context(), projections.GetListingDetailQuery{
		Collection: c,
		Slug:       r.PathValue("slug"),
	}, projections.GetListingDetailDeps{Content: content})
	switch {
	case errors.Is(err, cms.ErrNotFound):
		renderError(w, r, http.StatusNotFound, "We could not find that entry.")
		return
	case err != nil:
		slog.Warn("listing_detail_failed", "collection", c.Slug, "slug", r.PathValue("slug"), "error", err)
		renderError(w, r, http.StatusBadGateway, "We could not load this entry right now. Please try again.")
		return
	}

	renderTemplate(w, r, "detail.html", map[string]any{
		"Collection": res.Collection,
		"Item":       res.Item,
		"BackURL":    "/browse/" + c.Slug,
	})
}

// apiItem is the JSON shape of one listing item.
type apiItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Summary     string `json:"summary,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	URL         string `json:"url"`
}

// apiListing is the JSON body of GET /api/listings/{collection}.
type apiListing struct {
	Items   []apiItem  `json:"items"`
	HasMore bool       `json:"hasMore"`
	Total   *int       `json:"total"`
	Page    int        `json:"page"`
	Query   url.Values `json:"query"`
	Next    string     `json:"next,omitempty"`
}

// handleAPIListings handles GET /api/listings/{collection}, one page per call.
func handleAPIListings(w http.ResponseWriter, r *http.Request) {
	c, ok := lookupCollection(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown collection"})
		return
	}

	res, err := projections.QueryGetListing(r.Context(), projections.GetListingQuery{
		Collection: c,
		Params:     r.URL.Query(),
	}, projections.GetListingDeps{Content: content})
	if err != nil {
		slog.Warn("listing_api_failed", "collection", c.Slug, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "content service unavailable"})
		return
	}

	body := apiListing{
		Items:   make([]apiItem, 0, len(res.Items)),
		HasMore: res.HasMore,
		Total:   res.Total,
		Page:    res.Query.Page,
		Query:   listing.Encode(res.Query),
	}
	for _, it := range res.Items {
		ai := apiItem{
			ID:      it.ID,
			Type:    it.Type,
			Slug:    it.Slug,
			Title:   it.Title,
			Summary: it.Summary,
			URL:     "/browse/" + c.Slug + "/" + url.PathEscape(it.Slug),
		}
		if !it.PublishedAt.IsZero() {
			ai.PublishedAt = it.PublishedAt.Format(time.RFC3339)
		}
		body.Items = append(body.Items, ai)
	}
	if res.NextParams != nil {
		body.Next = "/api/listings/" + c.Slug + "?" + res.NextParams.Encode()
	}
	writeJSON(w, http.StatusOK, body)
}
