package cms

import (
	"net/url"
	"strconv"
	"strings"

	"investhub/internal/domain/collection"
	"investhub/internal/domain/listing"
)

// BuildQuery renders a listing query in the backend's query DSL:
//
//	pagination[page]=2&pagination[pageSize]=12
//	filters[county][name][$in][0]=Turkana
//	filters[$or][0][title][$containsi]=water
//	sort[0]=publishedAt:desc
//	populate[0]=county
//
// Filter keys the collection does not declare are ignored.
// PRE: none
// POST: returned values always carry pagination parameters
func BuildQuery(c collection.Collection, q listing.Query) url.Values {
	q = q.Normalize()
	v := url.Values{}
	v.Set("pagination[page]", strconv.Itoa(q.Page))
	v.Set("pagination[pageSize]", strconv.Itoa(c.EffectivePageSize()))

	for _, key := range q.Filters.Keys() {
		field, ok := c.Filter(key)
		if !ok {
			continue
		}
		prefix := "filters" + brackets(field.Path...) + brackets(field.Operator)
		values := q.Filters[key]
		if field.Operator == collection.OpIn {
			for i, val := range values {
				v.Set(prefix+brackets(strconv.Itoa(i)), val)
			}
			continue
		}
		for _, val := range values {
			v.Add(prefix, val)
		}
	}

	if q.SearchText != "" {
		for i, field := range c.SearchFields {
			key := "filters" + brackets(collection.OpOr, strconv.Itoa(i), field, collection.OpContainsI)
			v.Set(key, q.SearchText)
		}
	}

	if c.SortField != "" {
		v.Set("sort[0]", c.SortField+":"+string(q.Sort))
	}

	addPopulate(v, c.Populate)
	return v
}

// buildSlugQuery selects a single record by slug.
func buildSlugQuery(c collection.Collection, slug string) url.Values {
	v := url.Values{}
	v.Set("filters[slug]"+brackets(collection.OpEq), slug)
	v.Set("pagination[page]", "1")
	v.Set("pagination[pageSize]", "1")
	addPopulate(v, c.Populate)
	return v
}

func addPopulate(v url.Values, relations []string) {
	for i, rel := range relations {
		v.Set("populate"+brackets(strconv.Itoa(i)), rel)
	}
}

func brackets(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('[')
		b.WriteString(p)
		b.WriteByte(']')
	}
	return b.String()
}
