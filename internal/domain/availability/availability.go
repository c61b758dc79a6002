package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentloop/internal/domain/listings"
	"rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/timeofday"
)

var (
	ErrRangeConflict = errors.New("availability: range conflicts with an existing reservation")
)

// ReservedRange is the hold a single non-terminal booking places on a
// listing's calendar. Whole-day bookings leave Slot zero; slot bookings hold
// a time window (already padded with the listing's buffer) within the day.
type ReservedRange struct {
	ListingID listings.ListingID
	Range     daterange.DateRange
	Slot      timeofday.Range
	BookingID string
	CreatedAt time.Time
}

// WholeDay reports whether the hold covers full calendar days.
func (r ReservedRange) WholeDay() bool {
	return r.Slot == timeofday.Range{}
}

// Conflicts implements half-open overlap on days, refined by the time window
// when both holds are slot-scoped.
func (r ReservedRange) Conflicts(other ReservedRange) bool {
	if !r.Range.Overlaps(other.Range) {
		return false
	}
	if r.WholeDay() || other.WholeDay() {
		return true
	}
	return r.Slot.Overlaps(other.Slot)
}

// ConflictError names the booking already holding the range so the caller can
// report what it lost the race to.
type ConflictError struct {
	ListingID listings.ListingID
	BookingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("availability: listing %s already reserved by booking %s", e.ListingID, e.BookingID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrRangeConflict
}

// Index is the single source of truth for "is this listing free". TryReserve
// must be atomic per listing with respect to concurrent TryReserve/Release
// calls: check-then-insert cannot observe stale state.
type Index interface {
	// TryReserve inserts the hold iff no existing hold conflicts; on overlap
	// it returns a ConflictError and changes nothing.
	TryReserve(ctx context.Context, hold ReservedRange) error
	// Release drops the hold owned by the booking; no-op when absent.
	Release(ctx context.Context, bookingID string) error
	// RangesFor lists current holds for a listing.
	RangesFor(ctx context.Context, id listings.ListingID) ([]ReservedRange, error)
}
