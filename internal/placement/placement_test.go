package placement

import (
	"errors"
	"testing"
	"time"

	"clinicboard/internal/domain"
	"clinicboard/internal/registry"
	"clinicboard/internal/store"
)

func candidate(id, resource string, h, m, durMin int) domain.Appointment {
	start := time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	return domain.Appointment{
		ID:         id,
		ResourceID: resource,
		Status:     domain.StatusScheduled,
		StartTime:  start,
		EndTime:    start.Add(time.Duration(durMin) * time.Minute),
	}
}

func newEngine(t *testing.T, seed ...domain.Appointment) (*Engine, *store.Store) {
	t.Helper()
	reg := registry.New()
	reg.ReplaceAll("loc-1", []domain.Resource{
		{ID: "1 XRAYS", Label: "1 XRAYS"},
		{ID: "PR01", Label: "PR01"},
		{ID: "PR02", Label: "PR02"},
	})
	st := store.New()
	for _, appt := range seed {
		st.Upsert(appt)
	}
	return New(reg, st), st
}

func TestEmptyRoomAccepts(t *testing.T) {
	eng, _ := newEngine(t)
	if err := eng.Validate(candidate("", "PR01", 9, 0, 30), ""); err != nil {
		t.Fatalf("Validate = %v, want accept", err)
	}
}

func TestOverlapRejectedWithConflictID(t *testing.T) {
	eng, _ := newEngine(t, candidate("first", "PR01", 9, 0, 30))

	err := eng.Validate(candidate("", "PR01", 9, 15, 30), "")
	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("err = %v, want *OverlapError", err)
	}
	if overlap.ConflictID != "first" {
		t.Fatalf("ConflictID = %q, want %q", overlap.ConflictID, "first")
	}
}

func TestTouchingEndpointsAccepted(t *testing.T) {
	eng, _ := newEngine(t, candidate("first", "PR01", 9, 0, 30))

	if err := eng.Validate(candidate("", "PR01", 9, 30, 30), ""); err != nil {
		t.Fatalf("back-to-back booking rejected: %v", err)
	}
	if err := eng.Validate(candidate("", "PR01", 8, 30, 30), ""); err != nil {
		t.Fatalf("booking ending at existing start rejected: %v", err)
	}
}

func TestUnknownResourceRejected(t *testing.T) {
	eng, st := newEngine(t)
	before := st.Len()

	err := eng.Validate(candidate("", "PR99", 9, 0, 30), "")
	if !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("err = %v, want ErrUnknownResource", err)
	}
	// interval does not matter for an unknown room
	err = eng.Validate(candidate("", "PR99", 9, 0, 0), "")
	if !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("err = %v, want ErrUnknownResource", err)
	}
	if st.Len() != before {
		t.Fatalf("validation must not touch the store")
	}
}

func TestInvalidIntervalRejected(t *testing.T) {
	eng, _ := newEngine(t)

	for _, durMin := range []int{0, -30} {
		err := eng.Validate(candidate("", "PR01", 9, 0, durMin), "")
		var invalid *InvalidIntervalError
		if !errors.As(err, &invalid) {
			t.Fatalf("duration %dm: err = %v, want *InvalidIntervalError", durMin, err)
		}
	}
}

func TestSameRoomDifferentTimesAccepted(t *testing.T) {
	eng, _ := newEngine(t,
		candidate("a", "PR01", 9, 0, 30),
		candidate("b", "PR01", 10, 0, 30),
	)
	if err := eng.Validate(candidate("", "PR01", 9, 30, 30), ""); err != nil {
		t.Fatalf("gap slot rejected: %v", err)
	}
}

func TestOtherRoomDoesNotConflict(t *testing.T) {
	eng, _ := newEngine(t, candidate("a", "PR01", 9, 0, 30))
	if err := eng.Validate(candidate("", "PR02", 9, 0, 30), ""); err != nil {
		t.Fatalf("same slot in another room rejected: %v", err)
	}
}

func TestCanceledDoesNotBlock(t *testing.T) {
	canceled := candidate("a", "PR01", 9, 0, 30)
	canceled.Status = domain.StatusCanceled
	eng, _ := newEngine(t, canceled)

	if err := eng.Validate(candidate("", "PR01", 9, 0, 30), ""); err != nil {
		t.Fatalf("canceled appointment blocked the slot: %v", err)
	}
}

func TestExcludingIDAllowsResize(t *testing.T) {
	eng, _ := newEngine(t,
		candidate("a", "PR01", 9, 0, 30),
		candidate("b", "PR01", 10, 0, 30),
	)

	// grow "a" by 20 minutes; it only conflicts with itself
	if err := eng.Validate(candidate("a", "PR01", 9, 0, 50), "a"); err != nil {
		t.Fatalf("resize rejected: %v", err)
	}

	// grow "a" into "b"
	err := eng.Validate(candidate("a", "PR01", 9, 0, 90), "a")
	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("err = %v, want *OverlapError", err)
	}
	if overlap.ConflictID != "b" {
		t.Fatalf("ConflictID = %q, want %q", overlap.ConflictID, "b")
	}
}

// every pairwise combination accepted by the engine keeps the no-overlap
// invariant on a room
func TestAcceptedPlacementsNeverOverlap(t *testing.T) {
	eng, st := newEngine(t)

	slots := []struct{ h, m, dur int }{
		{9, 0, 30}, {9, 15, 30}, {9, 30, 10}, {9, 40, 20}, {10, 0, 60}, {10, 30, 15},
	}
	next := 0
	for _, slot := range slots {
		c := candidate("", "PR01", slot.h, slot.m, slot.dur)
		if err := eng.Validate(c, ""); err != nil {
			continue
		}
		next++
		c.ID = string(rune('a' + next))
		st.Upsert(c)
	}

	rows := st.ForResource("PR01")
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			if rows[i].Overlaps(rows[j]) {
				t.Fatalf("store holds overlapping accepted rows: %v / %v", rows[i], rows[j])
			}
		}
	}
	if len(rows) == 0 {
		t.Fatalf("expected at least one accepted placement")
	}
}
