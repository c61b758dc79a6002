package booking

import (
	"context"

	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/uow"
	domainbooking "rentloop/internal/domain/booking"
)

const (
	getBookingKey         = "booking.get"
	listRenterBookingsKey = "booking.list_by_renter"
	listHostBookingsKey   = "booking.list_by_host"
	nextStatesKey         = "booking.next_states"
)

type GetBookingQuery struct {
	BookingID    string
	ActingUserID string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type ListRenterBookingsQuery struct {
	RenterID string
}

func (q ListRenterBookingsQuery) Key() string { return listRenterBookingsKey }

type ListHostBookingsQuery struct {
	HostID string
}

func (q ListHostBookingsQuery) Key() string { return listHostBookingsKey }

// NextStatesQuery reports where a booking may legally move next, so a client
// can render only the actions that will succeed.
type NextStatesQuery struct {
	BookingID    string
	ActingUserID string
}

func (q NextStatesQuery) Key() string { return nextStatesKey }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
}

func (h *QueryHandlers) GetBooking(ctx context.Context, q GetBookingQuery) (*dto.BookingView, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Booking().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return nil, err
	}
	if b.RenterID != q.ActingUserID && b.HostID != q.ActingUserID {
		return nil, domainbooking.ErrForbidden
	}
	view := dto.MapBooking(b)
	return &view, nil
}

func (h *QueryHandlers) ListByRenter(ctx context.Context, q ListRenterBookingsQuery) (*dto.BookingCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Booking().ListByRenter(ctx, q.RenterID)
	if err != nil {
		return nil, err
	}
	out := dto.MapBookings(items)
	return &out, nil
}

func (h *QueryHandlers) ListByHost(ctx context.Context, q ListHostBookingsQuery) (*dto.BookingCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Booking().ListByHost(ctx, q.HostID)
	if err != nil {
		return nil, err
	}
	out := dto.MapBookings(items)
	return &out, nil
}

func (h *QueryHandlers) NextStates(ctx context.Context, q NextStatesQuery) (*dto.NextStatesView, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Booking().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return nil, err
	}
	if b.RenterID != q.ActingUserID && b.HostID != q.ActingUserID {
		return nil, domainbooking.ErrForbidden
	}
	next := domainbooking.NextStates(b.Status)
	view := &dto.NextStatesView{
		BookingID: string(b.ID),
		Status:    string(b.Status),
		Terminal:  domainbooking.IsTerminal(b.Status),
		Next:      make([]string, 0, len(next)),
	}
	for _, s := range next {
		view.Next = append(view.Next, string(s))
	}
	return view, nil
}
