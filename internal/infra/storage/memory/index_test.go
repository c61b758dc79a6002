package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domainavailability "rentloop/internal/domain/availability"
	"rentloop/internal/domain/shared/daterange"
)

func weekOf(t *testing.T, day, days int) daterange.DateRange {
	t.Helper()
	start := time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
	dr, err := daterange.New(start, start.AddDate(0, 0, days))
	if err != nil {
		t.Fatal(err)
	}
	return dr
}

func TestTryReserveConflict(t *testing.T) {
	idx := NewAvailabilityIndex()
	ctx := context.Background()

	first := domainavailability.ReservedRange{ListingID: "l1", Range: weekOf(t, 2, 3), BookingID: "b1"}
	if err := idx.TryReserve(ctx, first); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	second := domainavailability.ReservedRange{ListingID: "l1", Range: weekOf(t, 3, 3), BookingID: "b2"}
	err := idx.TryReserve(ctx, second)
	if !errors.Is(err, domainavailability.ErrRangeConflict) {
		t.Fatalf("overlapping reserve = %v, want conflict", err)
	}

	// Same dates on another listing go through.
	other := domainavailability.ReservedRange{ListingID: "l2", Range: weekOf(t, 2, 3), BookingID: "b3"}
	if err := idx.TryReserve(ctx, other); err != nil {
		t.Fatalf("reserve on unrelated listing: %v", err)
	}
}

func TestConcurrentReserveExactlyOneWins(t *testing.T) {
	idx := NewAvailabilityIndex()
	ctx := context.Background()
	const racers = 32

	var wg sync.WaitGroup
	errs := make([]error, racers)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			hold := domainavailability.ReservedRange{
				ListingID: "l1",
				Range:     weekOf(t, 2, 2),
				BookingID: fmt.Sprintf("b%d", i),
			}
			errs[i] = idx.TryReserve(ctx, hold)
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domainavailability.ErrRangeConflict):
		default:
			t.Fatalf("racer %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	holds, err := idx.RangesFor(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(holds) != 1 {
		t.Fatalf("expected one hold in the index, got %d", len(holds))
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	idx := NewAvailabilityIndex()
	ctx := context.Background()

	hold := domainavailability.ReservedRange{ListingID: "l1", Range: weekOf(t, 2, 2), BookingID: "b1"}
	if err := idx.TryReserve(ctx, hold); err != nil {
		t.Fatal(err)
	}
	if err := idx.Release(ctx, "b1"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Release(ctx, "b1"); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if err := idx.Release(ctx, "never-existed"); err != nil {
		t.Fatalf("release of unknown booking: %v", err)
	}

	holds, err := idx.RangesFor(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(holds) != 0 {
		t.Fatalf("index should be empty after release, got %d holds", len(holds))
	}
}

func TestReserveAfterRelease(t *testing.T) {
	idx := NewAvailabilityIndex()
	ctx := context.Background()

	hold := domainavailability.ReservedRange{ListingID: "l1", Range: weekOf(t, 2, 2), BookingID: "b1"}
	if err := idx.TryReserve(ctx, hold); err != nil {
		t.Fatal(err)
	}
	if err := idx.Release(ctx, "b1"); err != nil {
		t.Fatal(err)
	}
	retry := domainavailability.ReservedRange{ListingID: "l1", Range: weekOf(t, 2, 2), BookingID: "b2"}
	if err := idx.TryReserve(ctx, retry); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
}
