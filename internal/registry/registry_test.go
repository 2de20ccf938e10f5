package registry

import (
	"testing"

	"clinicboard/internal/domain"
)

func TestEmptyRegistry(t *testing.T) {
	r := New()
	if got := r.List(); len(got) != 0 {
		t.Fatalf("List = %v, want empty", got)
	}
	if r.Has("PR01") {
		t.Fatalf("Has on empty registry = true, want false")
	}
	if r.LocationID() != "" {
		t.Fatalf("LocationID = %q, want empty", r.LocationID())
	}
}

func TestReplaceAllSwapsWholesale(t *testing.T) {
	r := New()
	r.ReplaceAll("loc-1", []domain.Resource{
		{ID: "1 XRAYS", Label: "1 XRAYS"},
		{ID: "PR01", Label: "PR01"},
	})
	if !r.Has("PR01") || !r.Has("1 XRAYS") {
		t.Fatalf("expected loc-1 rooms present")
	}

	r.ReplaceAll("loc-2", []domain.Resource{{ID: "PR05", Label: "PR05"}})
	if r.Has("PR01") {
		t.Fatalf("prior location's rooms must be discarded")
	}
	if !r.Has("PR05") {
		t.Fatalf("new location's rooms must be present")
	}
	if r.LocationID() != "loc-2" {
		t.Fatalf("LocationID = %q, want loc-2", r.LocationID())
	}
	if got := r.List(); len(got) != 1 || got[0].ID != "PR05" {
		t.Fatalf("List = %v, want [PR05]", got)
	}
}

func TestReplaceAllPreservesOrderAndDedupes(t *testing.T) {
	r := New()
	r.ReplaceAll("loc-1", []domain.Resource{
		{ID: "PR02", Label: "PR02"},
		{ID: "PR01", Label: "PR01"},
		{ID: "PR02", Label: "dup"},
		{ID: "", Label: "blank"},
	})
	got := r.List()
	if len(got) != 2 {
		t.Fatalf("len(List) = %d, want 2", len(got))
	}
	if got[0].ID != "PR02" || got[1].ID != "PR01" {
		t.Fatalf("List order = [%s %s], want [PR02 PR01]", got[0].ID, got[1].ID)
	}
	if got[0].Label != "PR02" {
		t.Fatalf("duplicate id must keep first occurrence, got label %q", got[0].Label)
	}
}

func TestGet(t *testing.T) {
	r := New()
	r.ReplaceAll("loc-1", []domain.Resource{{ID: "PR01", Label: "Operatory 1", RoomNumber: "01"}})
	res, ok := r.Get("PR01")
	if !ok {
		t.Fatalf("Get(PR01) not found")
	}
	if res.Label != "Operatory 1" {
		t.Fatalf("label = %q, want %q", res.Label, "Operatory 1")
	}
	if _, ok := r.Get("PR99"); ok {
		t.Fatalf("Get(PR99) = found, want missing")
	}
}
