package booking

import (
	"context"
	"log/slog"
	"time"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/uow"
	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
)

const rejectBookingKey = "booking.reject"

type RejectBookingCommand struct {
	BookingID    string
	ActingHostID string
	Reason       string
}

func (c RejectBookingCommand) Key() string { return rejectBookingKey }

type RejectBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*dto.BookingView, error) {
	unit, ctx, finish, err := support.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}

	view, err := h.handle(ctx, unit, cmd)
	if err := finish(err); err != nil {
		return nil, err
	}
	return view, nil
}

func (h *RejectBookingHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd RejectBookingCommand) (*dto.BookingView, error) {
	b, err := unit.Booking().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if b.HostID != cmd.ActingHostID {
		return nil, domainbooking.ErrForbidden
	}
	if b.Status == domainbooking.StatusRejected {
		view := dto.MapBooking(b)
		return &view, nil
	}
	now := time.Now().UTC()
	if err := b.Reject(cmd.Reason, now); err != nil {
		return nil, err
	}
	if err := unit.Availability().Release(ctx, string(b.ID)); err != nil {
		return nil, err
	}
	b.Record(domainavailability.RangeReleasedEvent(b.ListingID, b.Range, string(b.ID), now))

	if err := unit.Booking().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

var _ commands.Handler[RejectBookingCommand, *dto.BookingView] = (*RejectBookingHandler)(nil)
