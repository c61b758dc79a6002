package booking

import (
	"time"

	"rentloop/internal/domain/listings"
	"rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID BookingID
	ListingID listings.ListingID
	RenterID  string
	Range     daterange.DateRange
	Total     money.Money
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID
	ListingID listings.ListingID
	Range     daterange.DateRange
	At        time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID BookingID
	Reason    string
	At        time.Time
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type BookingPaid struct {
	BookingID BookingID
	IntentID  string
	Total     money.Money
	At        time.Time
}

func (e BookingPaid) EventName() string     { return "booking.paid" }
func (e BookingPaid) AggregateID() string   { return string(e.BookingID) }
func (e BookingPaid) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	Reason    string
	RefundDue bool
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

// RefundFailed is recorded when a cancellation commits but the refund call
// did not; a separate retry path picks these up.
type RefundFailed struct {
	BookingID BookingID
	Detail    string
	At        time.Time
}

func (e RefundFailed) EventName() string     { return "booking.refund_failed" }
func (e RefundFailed) AggregateID() string   { return string(e.BookingID) }
func (e RefundFailed) OccurredAt() time.Time { return e.At }
