package scheduler

import (
	"testing"
	"time"
)

func TestNextRun(t *testing.T) {
	t.Parallel()

	loc := time.UTC

	// Before today's slot: fires later the same day.
	now := time.Date(2026, time.March, 10, 4, 30, 0, 0, loc)
	next := nextRun(now, 6, 0)
	want := time.Date(2026, time.March, 10, 6, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}

	// After today's slot: rolls over to tomorrow.
	now = time.Date(2026, time.March, 10, 7, 15, 0, 0, loc)
	next = nextRun(now, 6, 0)
	want = time.Date(2026, time.March, 11, 6, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}

	// Exactly at the slot: never fires twice for one instant.
	now = time.Date(2026, time.March, 10, 6, 0, 0, 0, loc)
	next = nextRun(now, 6, 0)
	if !next.After(now) {
		t.Fatalf("next run must be strictly after now, got %v", next)
	}

	// Month rollover.
	now = time.Date(2026, time.March, 31, 23, 0, 0, 0, loc)
	next = nextRun(now, 6, 0)
	want = time.Date(2026, time.April, 1, 6, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}
