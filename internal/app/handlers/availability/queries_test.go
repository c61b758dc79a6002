package availability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	availabilityapp "rentloop/internal/app/handlers/availability"
	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	"rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/money"
	"rentloop/internal/domain/shared/timeofday"
	"rentloop/internal/infra/storage/memory"
)

type fixture struct {
	listings *memory.ListingRepository
	index    *memory.AvailabilityIndex
	queries  *availabilityapp.QueryHandlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		listings: memory.NewListingRepository(),
		index:    memory.NewAvailabilityIndex(),
	}
	f.queries = &availabilityapp.QueryHandlers{UoWFactory: memory.Factory{
		ListingsRepo: f.listings,
		BookingRepo:  memory.NewBookingRepository(),
		Availability: f.index,
		PayoutsRepo:  memory.NewPayoutRepository(),
	}}
	return f
}

// allWeek opens the same window every day of the week so the test dates do
// not depend on which weekday they land on.
func allWeek(t *testing.T, start, end string) map[time.Weekday]timeofday.Range {
	t.Helper()
	r, err := timeofday.ParseRange(start, end)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[time.Weekday]timeofday.Range, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		out[d] = r
	}
	return out
}

func (f *fixture) addSlotListing(t *testing.T, id string, hours map[time.Weekday]timeofday.Range) {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:          domainlistings.ListingID(id),
		Host:        "host-1",
		Title:       "Rehearsal room",
		BookingType: domainlistings.BookSlot,
		Slots: &domainlistings.SlotConfiguration{
			SlotDurationMinutes: 60,
			OperatingHours:      hours,
			MinBookingSlots:     1,
			PricePerSlot:        money.Must(5000, "TND"),
		},
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := listing.Activate(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := f.listings.Save(context.Background(), listing); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) hold(t *testing.T, listing, booking string, day time.Time, slot timeofday.Range) {
	t.Helper()
	err := f.index.TryReserve(context.Background(), domainavailability.ReservedRange{
		ListingID: domainlistings.ListingID(listing),
		Range:     daterange.DateRange{Start: day, End: day.AddDate(0, 0, 1)},
		Slot:      slot,
		BookingID: booking,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func mustSlot(t *testing.T, start, end string) timeofday.Range {
	t.Helper()
	r, err := timeofday.ParseRange(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestGetDaySlotsFiltersHolds(t *testing.T) {
	f := newFixture(t)
	f.addSlotListing(t, "l1", allWeek(t, "08:00", "12:00"))
	day := daterange.StartOfDay(time.Now().UTC()).AddDate(0, 0, 7)
	f.hold(t, "l1", "b1", day, mustSlot(t, "09:00", "10:00"))

	view, err := f.queries.GetDaySlots(context.Background(), availabilityapp.GetDaySlotsQuery{ListingID: "l1", Date: day})
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	if !view.Open {
		t.Fatal("day should be open")
	}
	want := []string{"08:00", "10:00", "11:00"}
	if len(view.Slots) != len(want) {
		t.Fatalf("slots = %+v, want starts %v", view.Slots, want)
	}
	for i, s := range view.Slots {
		if s.Start != want[i] {
			t.Errorf("slot[%d].Start = %s, want %s", i, s.Start, want[i])
		}
	}
}

func TestGetDaySlotsWholeDayHoldBlocksAll(t *testing.T) {
	f := newFixture(t)
	f.addSlotListing(t, "l1", allWeek(t, "08:00", "12:00"))
	day := daterange.StartOfDay(time.Now().UTC()).AddDate(0, 0, 7)
	f.hold(t, "l1", "b1", day, timeofday.Range{})

	view, err := f.queries.GetDaySlots(context.Background(), availabilityapp.GetDaySlotsQuery{ListingID: "l1", Date: day})
	if err != nil {
		t.Fatal(err)
	}
	if !view.Open {
		t.Fatal("the day is still an operating day")
	}
	if len(view.Slots) != 0 {
		t.Fatalf("slots = %+v, want none under a whole-day hold", view.Slots)
	}
}

func TestGetDaySlotsClosedDay(t *testing.T) {
	f := newFixture(t)
	hours := map[time.Weekday]timeofday.Range{time.Monday: mustSlot(t, "08:00", "12:00")}
	f.addSlotListing(t, "l1", hours)

	// 2026-09-08 is a Tuesday.
	tuesday := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	view, err := f.queries.GetDaySlots(context.Background(), availabilityapp.GetDaySlotsQuery{ListingID: "l1", Date: tuesday})
	if err != nil {
		t.Fatal(err)
	}
	if view.Open || len(view.Slots) != 0 {
		t.Fatalf("closed day = %+v", view)
	}
}

func TestGetDaySlotsRequiresSlotListing(t *testing.T) {
	f := newFixture(t)
	daily, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:        "l-daily",
		Host:      "host-1",
		Title:     "City apartment",
		DailyRate: money.Must(10000, "TND"),
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := daily.Activate(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := f.listings.Save(context.Background(), daily); err != nil {
		t.Fatal(err)
	}

	if _, err := f.queries.GetDaySlots(context.Background(), availabilityapp.GetDaySlotsQuery{ListingID: "l-daily", Date: time.Now()}); !errors.Is(err, domainlistings.ErrSlotConfigNeeded) {
		t.Fatalf("daily listing = %v, want ErrSlotConfigNeeded", err)
	}
}

func TestGetCalendarWindow(t *testing.T) {
	f := newFixture(t)
	f.addSlotListing(t, "l1", allWeek(t, "08:00", "12:00"))
	base := daterange.StartOfDay(time.Now().UTC())
	f.hold(t, "l1", "b1", base.AddDate(0, 0, 7), mustSlot(t, "08:00", "09:00"))
	f.hold(t, "l1", "b2", base.AddDate(0, 0, 20), mustSlot(t, "08:00", "09:00"))

	all, err := f.queries.GetCalendar(context.Background(), availabilityapp.GetCalendarQuery{ListingID: "l1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Reserved) != 2 {
		t.Fatalf("reserved = %d, want 2", len(all.Reserved))
	}

	windowed, err := f.queries.GetCalendar(context.Background(), availabilityapp.GetCalendarQuery{
		ListingID: "l1",
		From:      base.AddDate(0, 0, 5),
		To:        base.AddDate(0, 0, 10),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(windowed.Reserved) != 1 || windowed.Reserved[0].BookingID != "b1" {
		t.Fatalf("windowed = %+v, want only b1", windowed.Reserved)
	}

	if _, err := f.queries.GetCalendar(context.Background(), availabilityapp.GetCalendarQuery{
		ListingID: "l1",
		From:      base.AddDate(0, 0, 10),
		To:        base.AddDate(0, 0, 5),
	}); !errors.Is(err, domainbooking.ErrInvalidRange) {
		t.Fatalf("inverted window = %v, want ErrInvalidRange", err)
	}

	if _, err := f.queries.GetCalendar(context.Background(), availabilityapp.GetCalendarQuery{ListingID: "missing"}); !errors.Is(err, domainlistings.ErrListingNotFound) {
		t.Fatalf("unknown listing = %v, want ErrListingNotFound", err)
	}
}
