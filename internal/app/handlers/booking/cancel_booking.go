package booking

import (
	"context"
	"log/slog"
	"time"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/policies"
	"rentloop/internal/app/uow"
	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID    string
	ActingUserID string
	Reason       string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

// CancelBookingHandler cancels a booking from any non-terminal state and
// releases its hold. When the booking was already paid a refund is attempted;
// a refund failure never blocks the cancellation — it is surfaced on the
// result and recorded for a retry path.
type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Payments   policies.PaymentsPort
	Logger     *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.CancellationView, error) {
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

func (h *CancelBookingHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd CancelBookingCommand) (*dto.CancellationView, error) {
	b, err := unit.Booking().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if b.RenterID != cmd.ActingUserID && b.HostID != cmd.ActingUserID {
		return nil, domainbooking.ErrForbidden
	}
	if b.Status == domainbooking.StatusCancelled {
		return &dto.CancellationView{Booking: dto.MapBooking(b)}, nil
	}

	now := time.Now().UTC()
	wasPaid := b.Paid
	if err := b.Cancel(cmd.Reason, now); err != nil {
		return nil, err
	}
	if err := unit.Availability().Release(ctx, string(b.ID)); err != nil {
		return nil, err
	}
	b.Record(domainavailability.RangeReleasedEvent(b.ListingID, b.Range, string(b.ID), now))

	view := &dto.CancellationView{RefundRequested: wasPaid}
	if wasPaid {
		if err := h.Payments.Refund(ctx, string(b.ID), b.TotalPrice); err != nil {
			// The cancellation still commits; the refund is retried out of band.
			if h.Logger != nil {
				h.Logger.Error("refund failed", "booking_id", b.ID, "error", err)
			}
			b.Record(domainbooking.RefundFailed{BookingID: b.ID, Detail: err.Error(), At: now})
			view.RefundFailed = true
			view.RefundError = err.Error()
		}
	}

	if err := unit.Booking().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	view.Booking = dto.MapBooking(b)
	return view, nil
}

var _ commands.Handler[CancelBookingCommand, *dto.CancellationView] = (*CancelBookingHandler)(nil)
