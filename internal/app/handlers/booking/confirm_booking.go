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
	domainbooking "rentloop/internal/domain/booking"
)

const confirmBookingKey = "booking.confirm"

type ConfirmBookingCommand struct {
	BookingID    string
	ActingHostID string
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

type ConfirmBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*dto.BookingView, error) {
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

func (h *ConfirmBookingHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd ConfirmBookingCommand) (*dto.BookingView, error) {
	b, err := unit.Booking().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if b.HostID != cmd.ActingHostID {
		return nil, domainbooking.ErrForbidden
	}
	if b.Status == domainbooking.StatusConfirmed {
		// Retried confirm; nothing left to do.
		view := dto.MapBooking(b)
		return &view, nil
	}
	if err := b.Confirm(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := unit.Booking().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

var _ commands.Handler[ConfirmBookingCommand, *dto.BookingView] = (*ConfirmBookingHandler)(nil)
