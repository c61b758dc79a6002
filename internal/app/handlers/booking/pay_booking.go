package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/middleware"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/policies"
	"rentloop/internal/app/uow"
	domainbooking "rentloop/internal/domain/booking"
)

const payBookingKey = "booking.pay"

const defaultPaymentTimeout = 10 * time.Second

type PayBookingCommand struct {
	BookingID       string
	ActingRenterID  string
	PaymentToken    string
	IdempotencyKeyV string
}

func (c PayBookingCommand) Key() string { return payBookingKey }

func (c PayBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c PayBookingCommand) ResultPrototype() any { return &dto.BookingView{} }

// PayBookingHandler charges the renter for a CONFIRMED booking. The provider
// call runs under its own deadline; any failure rolls the transaction back so
// the booking stays CONFIRMED and unpaid, ready for a retry.
type PayBookingHandler struct {
	UoWFactory     uow.UoWFactory
	Outbox         outbox.Outbox
	Encoder        outbox.EventEncoder
	Payments       policies.PaymentsPort
	PaymentTimeout time.Duration
	Logger         *slog.Logger
}

func (h *PayBookingHandler) Handle(ctx context.Context, cmd PayBookingCommand) (*dto.BookingView, error) {
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

func (h *PayBookingHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd PayBookingCommand) (*dto.BookingView, error) {
	b, err := unit.Booking().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if b.RenterID != cmd.ActingRenterID {
		return nil, domainbooking.ErrForbidden
	}
	if b.Status == domainbooking.StatusPaid && b.Paid {
		view := dto.MapBooking(b)
		return &view, nil
	}
	if !domainbooking.CanPay(b.Status, b.Paid) {
		return nil, domainbooking.ValidateTransition(b.Status, domainbooking.StatusPaid, "pay booking")
	}

	payCtx, cancel := context.WithTimeout(ctx, h.paymentTimeout())
	defer cancel()

	intentID, err := h.Payments.Authorize(payCtx, string(b.ID), b.TotalPrice, cmd.PaymentToken)
	if err != nil {
		return nil, fmt.Errorf("%w: authorize: %w", domainbooking.ErrPaymentFailed, err)
	}
	if err := h.Payments.Capture(payCtx, intentID); err != nil {
		return nil, fmt.Errorf("%w: capture: %w", domainbooking.ErrPaymentFailed, err)
	}

	if err := b.MarkPaid(intentID, time.Now().UTC()); err != nil {
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

func (h *PayBookingHandler) paymentTimeout() time.Duration {
	if h.PaymentTimeout <= 0 {
		return defaultPaymentTimeout
	}
	return h.PaymentTimeout
}

var _ commands.Handler[PayBookingCommand, *dto.BookingView] = (*PayBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*PayBookingCommand)(nil)
