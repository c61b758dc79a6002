// Package payouts exposes the host earnings ledger: how much a host has
// earned from settled bookings and the payouts drawn against it.
package payouts

import (
	"context"
	"log/slog"
	"time"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/middleware"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/uow"
	domainpayouts "rentloop/internal/domain/payouts"
	"rentloop/internal/domain/shared/money"
)

const createPayoutKey = "payouts.create"

type CreatePayoutCommand struct {
	PayoutID        string
	HostID          string
	Amount          money.Money
	Method          string
	Reference       string
	IdempotencyKeyV string
}

func (c CreatePayoutCommand) Key() string { return createPayoutKey }

func (c CreatePayoutCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreatePayoutCommand) ResultPrototype() any { return &dto.PayoutView{} }

// CreatePayoutHandler opens a payout against the host's outstanding balance.
// The balance is recomputed inside the transaction so concurrent requests
// cannot jointly overdraw it.
type CreatePayoutHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CreatePayoutHandler) Handle(ctx context.Context, cmd CreatePayoutCommand) (*dto.PayoutView, error) {
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

func (h *CreatePayoutHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd CreatePayoutCommand) (*dto.PayoutView, error) {
	paid, err := unit.Booking().ListPayableByHost(ctx, cmd.HostID)
	if err != nil {
		return nil, err
	}
	existing, err := unit.Payouts().ListByHost(ctx, cmd.HostID)
	if err != nil {
		return nil, err
	}

	p, err := domainpayouts.NewPayout(domainpayouts.CreateParams{
		ID:          domainpayouts.PayoutID(cmd.PayoutID),
		HostID:      cmd.HostID,
		Amount:      cmd.Amount,
		Method:      cmd.Method,
		Reference:   cmd.Reference,
		Outstanding: domainpayouts.Outstanding(paid, existing),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Payouts().Save(ctx, p); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, p); err != nil {
		return nil, err
	}
	view := dto.MapPayout(p)
	return &view, nil
}

var _ commands.Handler[CreatePayoutCommand, *dto.PayoutView] = (*CreatePayoutHandler)(nil)
var _ middleware.IdempotentCommand = (*CreatePayoutCommand)(nil)
