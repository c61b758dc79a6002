package booking

import (
	"context"
	"errors"
	"time"

	"rentloop/internal/domain/listings"
	"rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/events"
	"rentloop/internal/domain/shared/money"
	"rentloop/internal/domain/shared/timeofday"
)

var (
	ErrBookingNotFound = errors.New("booking: not found")
	ErrForbidden       = errors.New("booking: acting user is not allowed to perform this action")
	ErrUnavailable     = errors.New("booking: listing is not available for the requested range")
	ErrPaymentFailed   = errors.New("booking: payment failed")
	ErrListingInactive = errors.New("booking: listing is not active")
	ErrOwnListing      = errors.New("booking: hosts cannot book their own listing")
	ErrStartInPast     = errors.New("booking: start date is in the past")
	ErrInvalidRange    = errors.New("booking: invalid booking range")
)

type BookingID string

type Booking struct {
	ID         BookingID
	ListingID  listings.ListingID
	RenterID   string
	HostID     string
	Type       listings.BookingType
	Range      daterange.DateRange
	Slot       timeofday.Range // set for SLOT bookings only
	Status     Status
	Paid       bool
	TotalPrice money.Money
	Commission money.Money
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByRenter(ctx context.Context, renterID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
	// ListPayableByHost returns the host's PAID and COMPLETED bookings, the
	// set the payout ledger derives earnings from.
	ListPayableByHost(ctx context.Context, hostID string) ([]*Booking, error)
	// ListElapsed returns PAID bookings whose range ended at or before the
	// cutoff; used by the completion sweep.
	ListElapsed(ctx context.Context, cutoff time.Time) ([]*Booking, error)
}

type CreateParams struct {
	ID         BookingID
	ListingID  listings.ListingID
	RenterID   string
	HostID     string
	Type       listings.BookingType
	Range      daterange.DateRange
	Slot       timeofday.Range
	TotalPrice money.Money
	Commission money.Money
	CreatedAt  time.Time
}

// NewBooking creates a PENDING booking. Price and commission are fixed here
// and never recomputed.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.RenterID == "" {
		return nil, errors.New("booking: renter id required")
	}
	if params.HostID == "" {
		return nil, errors.New("booking: host id required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		ListingID:  params.ListingID,
		RenterID:   params.RenterID,
		HostID:     params.HostID,
		Type:       params.Type,
		Range:      params.Range,
		Slot:       params.Slot,
		Status:     StatusPending,
		TotalPrice: params.TotalPrice,
		Commission: params.Commission,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingRequested{BookingID: b.ID, ListingID: b.ListingID, RenterID: b.RenterID, Range: b.Range, Total: b.TotalPrice, At: now})
	return b, nil
}

func (b *Booking) Confirm(now time.Time) error {
	if err := ValidateTransition(b.Status, StatusConfirmed, "confirm booking"); err != nil {
		return err
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, Range: b.Range, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Reject(reason string, now time.Time) error {
	if err := ValidateTransition(b.Status, StatusRejected, "reject booking"); err != nil {
		return err
	}
	b.Status = StatusRejected
	b.UpdatedAt = now.UTC()
	b.Record(BookingRejected{BookingID: b.ID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// MarkPaid moves the booking to PAID and flips the paid flag, exactly once.
// The caller commits this together with the payment capture confirmation.
func (b *Booking) MarkPaid(intentID string, now time.Time) error {
	if !CanPay(b.Status, b.Paid) {
		// Already PAID reads as a no-op; anything else is an illegal move.
		return ValidateTransition(b.Status, StatusPaid, "pay booking")
	}
	b.Status = StatusPaid
	b.Paid = true
	b.UpdatedAt = now.UTC()
	b.Record(BookingPaid{BookingID: b.ID, IntentID: intentID, Total: b.TotalPrice, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if err := ValidateTransition(b.Status, StatusCancelled, "cancel booking"); err != nil {
		return err
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, Reason: reason, RefundDue: b.Paid, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if err := ValidateTransition(b.Status, StatusCompleted, "complete booking"); err != nil {
		return err
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// HostPortion is what the host earns from this booking once paid.
func (b *Booking) HostPortion() money.Money {
	portion, err := b.TotalPrice.Sub(b.Commission)
	if err != nil {
		return money.Money{Amount: 0, Currency: b.TotalPrice.Currency}
	}
	return portion
}

// ValidateStart rejects calendar-day bookings that start before today.
func ValidateStart(dr daterange.DateRange, now time.Time) error {
	if daterange.StartOfDay(dr.Start).Before(daterange.StartOfDay(now)) {
		return ErrStartInPast
	}
	return nil
}
