package payouts

import (
	"context"
	"log/slog"
	"time"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/uow"
	domainpayouts "rentloop/internal/domain/payouts"
)

const markPayoutPaidKey = "payouts.mark_paid"

type MarkPayoutPaidCommand struct {
	PayoutID  string
	HostID    string
	Method    string
	Reference string
}

func (c MarkPayoutPaidCommand) Key() string { return markPayoutPaidKey }

type MarkPayoutPaidHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *MarkPayoutPaidHandler) Handle(ctx context.Context, cmd MarkPayoutPaidCommand) (*dto.PayoutView, error) {
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

func (h *MarkPayoutPaidHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd MarkPayoutPaidCommand) (*dto.PayoutView, error) {
	p, err := unit.Payouts().ByID(ctx, domainpayouts.PayoutID(cmd.PayoutID))
	if err != nil {
		return nil, err
	}
	if cmd.HostID != "" && p.HostID != cmd.HostID {
		return nil, domainpayouts.ErrPayoutNotFound
	}
	if err := p.MarkPaid(cmd.Method, cmd.Reference, time.Now().UTC()); err != nil {
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

var _ commands.Handler[MarkPayoutPaidCommand, *dto.PayoutView] = (*MarkPayoutPaidHandler)(nil)
