package listing

// Merge folds a fetched page into the currently displayed items.
// Page 1 replaces the list; later pages are appended, skipping any item whose
// type/id key is already present (the backend may return overlapping pages
// and "load more" can be triggered more than once).
// PRE: page.Page >= 1
// POST: Returned slice contains no two items with the same Key; existing is not mutated
func Merge(existing []Item, page ResultPage) []Item {
	if page.Page <= 1 {
		return dedupe(nil, page.Items)
	}
	out := make([]Item, len(existing), len(existing)+len(page.Items))
	copy(out, existing)
	return dedupe(out, page.Items)
}

// dedupe appends incoming items to base, skipping keys already seen.
func dedupe(base []Item, incoming []Item) []Item {
	seen := make(map[string]bool, len(base)+len(incoming))
	for _, it := range base {
		seen[it.Key()] = true
	}
	for _, it := range incoming {
		k := it.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		base = append(base, it)
	}
	return base
}
