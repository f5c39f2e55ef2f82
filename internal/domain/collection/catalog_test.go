package collection

import (
	"errors"
	"testing"

	"investhub/internal/domain/listing"
)

// TestCatalog_AllValid verifies every shipped collection passes validation.
func TestCatalog_AllValid(t *testing.T) {
	all := All()
	if len(all) != 5 {
		t.Fatalf("expected 5 collections, got %d", len(all))
	}
	for _, c := range all {
		if err := c.Validate(); err != nil {
			t.Errorf("%s: %v", c.Slug, err)
		}
		for _, key := range c.FilterKeys() {
			if listing.IsReservedParam(key) {
				t.Errorf("%s: filter key %q collides with a reserved URL parameter", c.Slug, key)
			}
		}
	}
}

// TestLookup verifies known and unknown slugs.
func TestLookup(t *testing.T) {
	c, err := Lookup("stakeholders")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if c.Endpoint != "stakeholders" || c.SortField != "name" {
		t.Errorf("unexpected collection %+v", c)
	}
	if _, err := Lookup("casino"); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("expected ErrUnknownCollection, got %v", err)
	}
}

// TestCollection_Filter verifies filter lookup by key.
func TestCollection_Filter(t *testing.T) {
	c, _ := Lookup("investment-profiles")
	f, ok := c.Filter(KeyRegion)
	if !ok {
		t.Fatal("expected region filter")
	}
	if len(f.Path) != 2 || f.Path[0] != "county" || f.Operator != OpIn {
		t.Errorf("unexpected region filter %+v", f)
	}
	if _, ok := c.Filter(KeyTopic); ok {
		t.Error("investment profiles should not filter by topic")
	}
}

// TestValidate_Rejects verifies malformed collections are reported.
func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		c    Collection
	}{
		{"missing slug", Collection{Endpoint: "x"}},
		{"missing endpoint", Collection{Slug: "x"}},
		{"filter without path", Collection{Slug: "x", Endpoint: "x", Filters: []FilterField{{Key: "a", Operator: OpIn}}}},
		{"duplicate key", Collection{Slug: "x", Endpoint: "x", Filters: []FilterField{region(), region()}}},
	}
	for _, tt := range tests {
		if err := tt.c.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

// TestWithPageSize verifies page size overrides and defaults.
func TestWithPageSize(t *testing.T) {
	for _, c := range WithPageSize(24) {
		if c.EffectivePageSize() != 24 {
			t.Errorf("%s: page size %d, want 24", c.Slug, c.EffectivePageSize())
		}
	}
	for _, c := range WithPageSize(0) {
		if c.EffectivePageSize() != DefaultPageSize {
			t.Errorf("%s: page size %d, want default", c.Slug, c.EffectivePageSize())
		}
	}
}
