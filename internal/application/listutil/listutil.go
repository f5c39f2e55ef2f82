// Package listutil paginates operator tables backed by offset queries.
package listutil

import (
	"net/url"
	"strconv"
)

// DefaultPerPage is the number of rows shown when per_page is absent or not allowed.
const DefaultPerPage = 25

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 25, 50, 100}

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed
	PerPage int
}

// ParsePageParams extracts page and per_page from URL query values.
// PRE: none
// POST: Page >= 1 and PerPage is one of PerPageOptions
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !allowedPerPage(perPage) {
		perPage = DefaultPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// PageInfo is the pagination state of one rendered table.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
	base       url.Values
}

// NewPageInfo clamps p against total. base holds the query parameters to
// carry on page links; page and per_page in it are overwritten.
// PRE: total >= 0
// POST: 1 <= Page <= TotalPages; TotalPages >= 1
func NewPageInfo(p PageParams, total int, base url.Values) PageInfo {
	perPage := p.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	page := min(max(p.Page, 1), totalPages)

	carried := url.Values{}
	for k, v := range base {
		if k != "page" && k != "per_page" {
			carried[k] = append([]string(nil), v...)
		}
	}
	return PageInfo{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages, base: carried}
}

// Offset is the SQL OFFSET of the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow is the 1-indexed first row on the page, or 0 when there are no rows.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow is the 1-indexed last row on the page.
func (p PageInfo) EndRow() int {
	return min(p.Offset()+p.PerPage, p.Total)
}

// HasPrev reports whether a previous page exists.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// PageURL returns the query string selecting page n.
func (p PageInfo) PageURL(n int) string {
	v := url.Values{}
	for k, vals := range p.base {
		v[k] = vals
	}
	v.Set("page", strconv.Itoa(n))
	if p.PerPage != DefaultPerPage {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	}
	return "?" + v.Encode()
}

// PageNumbers returns at most five page numbers centred on the current page.
func (p PageInfo) PageNumbers() []int {
	const window = 5
	start := max(p.Page-window/2, 1)
	end := start + window - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = max(end-window+1, 1)
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ShowPagination reports whether the rows span more than one page.
func (p PageInfo) ShowPagination() bool {
	return p.TotalPages > 1
}

func allowedPerPage(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}
