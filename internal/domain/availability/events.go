package availability

import (
	"time"

	"rentloop/internal/domain/listings"
	"rentloop/internal/domain/shared/daterange"
)

type RangeReserved struct {
	ListingID string
	Range     daterange.DateRange
	BookingID string
	At        time.Time
}

func (e RangeReserved) EventName() string     { return "availability.reserved" }
func (e RangeReserved) AggregateID() string   { return e.ListingID }
func (e RangeReserved) OccurredAt() time.Time { return e.At }

type RangeReleased struct {
	ListingID string
	Range     daterange.DateRange
	BookingID string
	At        time.Time
}

func (e RangeReleased) EventName() string     { return "availability.released" }
func (e RangeReleased) AggregateID() string   { return e.ListingID }
func (e RangeReleased) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	ListingID string
	Range     daterange.DateRange
	LoserID   string
	WinnerID  string
	At        time.Time
}

func (e OverbookingPrevented) EventName() string     { return "availability.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return e.ListingID }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }

func RangeReservedEvent(id listings.ListingID, r daterange.DateRange, bookingID string, at time.Time) RangeReserved {
	return RangeReserved{ListingID: string(id), Range: r, BookingID: bookingID, At: at}
}

func RangeReleasedEvent(id listings.ListingID, r daterange.DateRange, bookingID string, at time.Time) RangeReleased {
	return RangeReleased{ListingID: string(id), Range: r, BookingID: bookingID, At: at}
}
