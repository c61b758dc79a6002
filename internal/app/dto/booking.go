package dto

import (
	"time"

	domainbooking "rentloop/internal/domain/booking"
	"rentloop/internal/domain/listings"
	"rentloop/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type BookingView struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	RenterID   string    `json:"renter_id"`
	HostID     string    `json:"host_id"`
	Type       string    `json:"type"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	StartTime  string    `json:"start_time,omitempty"`
	EndTime    string    `json:"end_time,omitempty"`
	Status     string    `json:"status"`
	Paid       bool      `json:"paid"`
	Total      MoneyDTO  `json:"total"`
	Commission MoneyDTO  `json:"commission"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
}

// NextStatesView lists the legal transitions out of a booking's current
// status. Terminal bookings have an empty Next.
type NextStatesView struct {
	BookingID string   `json:"booking_id"`
	Status    string   `json:"status"`
	Terminal  bool     `json:"terminal"`
	Next      []string `json:"next"`
}

// CancellationView is the cancel result. RefundFailed means the booking is
// CANCELLED but the refund call did not go through and will be retried.
type CancellationView struct {
	Booking         BookingView `json:"booking"`
	RefundRequested bool        `json:"refund_requested"`
	RefundFailed    bool        `json:"refund_failed,omitempty"`
	RefundError     string      `json:"refund_error,omitempty"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

func MapBooking(b *domainbooking.Booking) BookingView {
	view := BookingView{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		RenterID:   b.RenterID,
		HostID:     b.HostID,
		Type:       string(b.Type),
		Start:      b.Range.Start,
		End:        b.Range.End,
		Status:     string(b.Status),
		Paid:       b.Paid,
		Total:      MapMoney(b.TotalPrice),
		Commission: MapMoney(b.Commission),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	if b.Type == listings.BookSlot {
		view.StartTime = b.Slot.Start.String()
		view.EndTime = b.Slot.End.String()
	}
	return view
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	out := BookingCollection{Items: make([]BookingView, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, MapBooking(b))
	}
	return out
}
