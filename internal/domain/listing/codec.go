package listing

import (
	"net/url"
	"strconv"
	"strings"
)

// URL parameter names used by listing pages.
const (
	ParamSearch = "query"
	ParamSort   = "sort"
	ParamPage   = "page"
)

// valueSeparator joins multi-valued filters in a single URL parameter.
const valueSeparator = ","

var reservedParams = map[string]bool{
	ParamSearch: true,
	ParamSort:   true,
	ParamPage:   true,
}

// IsReservedParam reports whether name is used by the codec itself and
// therefore cannot be a filter key.
func IsReservedParam(name string) bool {
	return reservedParams[name]
}

// Encode serializes a query into URL parameters. Defaults are omitted to
// keep URLs short: page 1, sort "desc", empty search and empty filters
// produce no parameter at all.
// PRE: none
// POST: Decode(Encode(q), nil) equals q.Normalize()
func Encode(q Query) url.Values {
	q = q.Normalize()
	v := url.Values{}
	if q.SearchText != "" {
		v.Set(ParamSearch, q.SearchText)
	}
	if q.Sort != DefaultSort {
		v.Set(ParamSort, string(q.Sort))
	}
	if q.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(q.Page))
	}
	for key, values := range q.Filters {
		if IsReservedParam(key) {
			continue
		}
		v.Set(key, strings.Join(values, valueSeparator))
	}
	return v
}

// EncodeString is Encode followed by url.Values.Encode, which sorts keys.
func EncodeString(q Query) string {
	return Encode(q).Encode()
}

// Decode parses URL parameters into a normalized query. Missing or malformed
// parameters fall back to their defaults. Only keys listed in filterKeys are
// treated as filters; a nil filterKeys accepts every non-reserved key.
// PRE: none
// POST: returned query satisfies Validate
func Decode(v url.Values, filterKeys []string) Query {
	q := NewQuery()

	q.SearchText = v.Get(ParamSearch)

	if s := SortOrder(strings.ToLower(strings.TrimSpace(v.Get(ParamSort)))); s.Valid() {
		q.Sort = s
	}

	if page, err := strconv.Atoi(v.Get(ParamPage)); err == nil && page > 1 {
		q.Page = page
	}

	accept := func(key string) bool { return !IsReservedParam(key) }
	if filterKeys != nil {
		allowed := make(map[string]bool, len(filterKeys))
		for _, k := range filterKeys {
			allowed[k] = true
		}
		accept = func(key string) bool { return allowed[key] && !IsReservedParam(key) }
	}

	for key, raw := range v {
		if !accept(key) {
			continue
		}
		for _, joined := range raw {
			q.Filters[key] = append(q.Filters[key], splitValues(joined)...)
		}
	}

	return q.Normalize()
}

// splitValues splits a comma-joined parameter, dropping empty tokens.
func splitValues(joined string) []string {
	parts := strings.Split(joined, valueSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
