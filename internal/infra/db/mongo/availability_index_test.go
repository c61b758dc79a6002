package mongo

import (
	"testing"
	"time"

	domainavailability "rentloop/internal/domain/availability"
	domainrange "rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/timeofday"
)

func calDay(offset int) time.Time {
	return time.Date(2026, time.September, 1+offset, 0, 0, 0, 0, time.UTC)
}

func TestConflictingBookingID(t *testing.T) {
	holds := []holdDocument{
		{BookingID: "b1", Start: calDay(0).UnixMilli(), End: calDay(3).UnixMilli(), WholeDay: true},
		{BookingID: "b2", Start: calDay(5).UnixMilli(), End: calDay(6).UnixMilli(), SlotStart: 600, SlotEnd: 750},
	}

	overlap := domainavailability.ReservedRange{
		ListingID: "l1",
		Range:     domainrange.DateRange{Start: calDay(2), End: calDay(4)},
	}
	if got := conflictingBookingID("l1", holds, overlap); got != "b1" {
		t.Fatalf("conflicting booking = %q, want b1", got)
	}

	slotMiss := domainavailability.ReservedRange{
		ListingID: "l1",
		Range:     domainrange.DateRange{Start: calDay(5), End: calDay(6)},
		Slot:      timeofday.Range{Start: 750, End: 810},
	}
	if got := conflictingBookingID("l1", holds, slotMiss); got != "" {
		t.Fatalf("conflicting booking = %q, want none for a non-overlapping slot", got)
	}

	slotHit := slotMiss
	slotHit.Slot = timeofday.Range{Start: 700, End: 760}
	if got := conflictingBookingID("l1", holds, slotHit); got != "b2" {
		t.Fatalf("conflicting booking = %q, want b2", got)
	}
}
