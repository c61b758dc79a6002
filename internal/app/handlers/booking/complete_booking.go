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

const completeBookingKey = "booking.complete"

// CompleteBookingCommand closes out a PAID booking whose rental period has
// ended. An empty ActingUserID marks a system-initiated completion from the
// elapsed-booking sweep; otherwise the actor must be the host.
type CompleteBookingCommand struct {
	BookingID    string
	ActingUserID string
}

func (c CompleteBookingCommand) Key() string { return completeBookingKey }

type CompleteBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (*dto.BookingView, error) {
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

func (h *CompleteBookingHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd CompleteBookingCommand) (*dto.BookingView, error) {
	b, err := unit.Booking().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if cmd.ActingUserID != "" && b.HostID != cmd.ActingUserID {
		return nil, domainbooking.ErrForbidden
	}
	if b.Status == domainbooking.StatusCompleted {
		view := dto.MapBooking(b)
		return &view, nil
	}
	if err := b.Complete(time.Now().UTC()); err != nil {
		return nil, err
	}
	// The hold stays in place: history blocks the dates either way.
	if err := unit.Booking().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

var _ commands.Handler[CompleteBookingCommand, *dto.BookingView] = (*CompleteBookingHandler)(nil)
