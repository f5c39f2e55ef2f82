package listing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestFilterState_Normalize verifies trimming, dedupe, sorting and empty-key removal.
func TestFilterState_Normalize(t *testing.T) {
	f := FilterState{
		"region": {" Turkana", "Marsabit", "Turkana", ""},
		"topic":  {"", "  "},
		"page":   {"2"},
		"":       {"x"},
	}
	want := FilterState{"region": {"Marsabit", "Turkana"}}
	if diff := cmp.Diff(want, f.Normalize()); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
	if len(f["region"]) != 4 {
		t.Error("Normalize must not mutate the receiver")
	}
}

// TestFilterState_Equal verifies set semantics.
func TestFilterState_Equal(t *testing.T) {
	a := FilterState{"region": {"Turkana", "Marsabit"}}
	b := FilterState{"region": {"Marsabit", "Turkana", "Turkana"}, "topic": nil}
	if !a.Equal(b) {
		t.Error("expected equal filter states")
	}
	c := FilterState{"region": {"Turkana"}}
	if a.Equal(c) {
		t.Error("expected different filter states")
	}
	if !FilterState(nil).Equal(FilterState{}) {
		t.Error("nil and empty states should be equal")
	}
}

// TestQuery_Validate verifies the page and sort invariants.
func TestQuery_Validate(t *testing.T) {
	if err := (Query{Page: 0, Sort: SortAsc}).Validate(); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("expected ErrInvalidPage, got %v", err)
	}
	if err := (Query{Page: 1, Sort: "up"}).Validate(); !errors.Is(err, ErrInvalidSort) {
		t.Errorf("expected ErrInvalidSort, got %v", err)
	}
	if err := NewQuery().Validate(); err != nil {
		t.Errorf("default query should be valid: %v", err)
	}
}

// TestQuery_SameListingIgnoresPage verifies page is excluded from SameListing but not Equal.
func TestQuery_SameListingIgnoresPage(t *testing.T) {
	a := Query{Page: 1, SearchText: "water", Sort: SortDesc}
	b := Query{Page: 3, SearchText: " water ", Sort: SortDesc}
	if !a.SameListing(b) {
		t.Error("expected SameListing")
	}
	if a.Equal(b) {
		t.Error("expected pages to make queries unequal")
	}
	if !a.Equal(b.FirstPage()) {
		t.Error("expected Equal after FirstPage")
	}
}

// TestItem_KeyAndAttr verifies the composite identity and attribute access.
func TestItem_KeyAndAttr(t *testing.T) {
	it := Item{ID: "7", Type: "event", Attributes: map[string]json.RawMessage{
		"venue": json.RawMessage(`"Lodwar"`),
		"seats": json.RawMessage(`40`),
	}}
	if it.Key() != "event:7" {
		t.Errorf("Key = %q, want event:7", it.Key())
	}
	if it.Attr("venue") != "Lodwar" {
		t.Errorf("Attr(venue) = %q", it.Attr("venue"))
	}
	if it.Attr("seats") != "" || it.Attr("missing") != "" {
		t.Error("expected empty string for non-string or missing attributes")
	}
}

// TestHasMoreItems verifies the page-size heuristic, including the exactly-full last page.
func TestHasMoreItems(t *testing.T) {
	tests := []struct {
		count, size int
		want        bool
	}{
		{0, 12, false},
		{11, 12, false},
		{12, 12, true}, // may be the last page; the next load returns nothing
		{13, 12, true},
		{5, 0, false},
	}
	for _, tt := range tests {
		if got := HasMoreItems(tt.count, tt.size); got != tt.want {
			t.Errorf("HasMoreItems(%d, %d) = %v, want %v", tt.count, tt.size, got, tt.want)
		}
	}
}
