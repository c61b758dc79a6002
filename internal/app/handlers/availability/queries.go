// Package availability serves read-side views over a listing's calendar:
// current holds and the free slots of a given day.
package availability

import (
	"context"
	"fmt"
	"time"

	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/uow"
	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainrange "rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/timeofday"
)

const (
	getCalendarKey = "availability.calendar"
	getDaySlotsKey = "availability.day_slots"
)

type GetCalendarQuery struct {
	ListingID string
	From      time.Time
	To        time.Time
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

// GetDaySlotsQuery lists a slot listing's bookable windows on one date,
// with the already-held ones filtered out.
type GetDaySlotsQuery struct {
	ListingID string
	Date      time.Time
}

func (q GetDaySlotsQuery) Key() string { return getDaySlotsKey }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
}

func (h *QueryHandlers) GetCalendar(ctx context.Context, q GetCalendarQuery) (*dto.Calendar, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	if _, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID)); err != nil {
		return nil, err
	}
	holds, err := unit.Availability().RangesFor(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return nil, err
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		window, err := domainrange.New(q.From, q.To)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domainbooking.ErrInvalidRange, err)
		}
		filtered := holds[:0]
		for _, hold := range holds {
			if hold.Range.Overlaps(window) {
				filtered = append(filtered, hold)
			}
		}
		holds = filtered
	}
	view := dto.MapCalendar(q.ListingID, holds)
	return &view, nil
}

func (h *QueryHandlers) GetDaySlots(ctx context.Context, q GetDaySlotsQuery) (*dto.DaySlots, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return nil, err
	}
	if listing.BookingType != domainlistings.BookSlot || listing.Slots == nil {
		return nil, domainlistings.ErrSlotConfigNeeded
	}

	day := domainrange.StartOfDay(q.Date)
	view := &dto.DaySlots{
		ListingID: q.ListingID,
		Date:      day.Format("2006-01-02"),
		Slots:     []dto.SlotView{},
	}
	slots := listing.Slots.SlotsFor(day)
	if len(slots) == 0 {
		return view, nil
	}
	view.Open = true

	holds, err := unit.Availability().RangesFor(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	dayRange := domainrange.DateRange{Start: day, End: day.AddDate(0, 0, 1)}
	for _, slot := range slots {
		if slotTaken(slot, dayRange, holds) {
			continue
		}
		view.Slots = append(view.Slots, dto.SlotView{Start: slot.Start.String(), End: slot.End.String()})
	}
	return view, nil
}

func slotTaken(slot timeofday.Range, day domainrange.DateRange, holds []domainavailability.ReservedRange) bool {
	for _, hold := range holds {
		if !hold.Range.Overlaps(day) {
			continue
		}
		if hold.WholeDay() || hold.Slot.Overlaps(slot) {
			return true
		}
	}
	return false
}
