package payouts

import (
	"context"

	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/uow"
	domainpayouts "rentloop/internal/domain/payouts"
	"rentloop/internal/domain/shared/events"
)

const (
	getEarningsKey = "payouts.earnings"
	listPayoutsKey = "payouts.list"
)

type GetEarningsQuery struct {
	HostID string
}

func (q GetEarningsQuery) Key() string { return getEarningsKey }

type ListPayoutsQuery struct {
	HostID string
}

func (q ListPayoutsQuery) Key() string { return listPayoutsKey }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
}

func (h *QueryHandlers) GetEarnings(ctx context.Context, q GetEarningsQuery) (*dto.EarningsView, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	paid, err := unit.Booking().ListPayableByHost(ctx, q.HostID)
	if err != nil {
		return nil, err
	}
	existing, err := unit.Payouts().ListByHost(ctx, q.HostID)
	if err != nil {
		return nil, err
	}
	return &dto.EarningsView{
		HostID:      q.HostID,
		Earned:      dto.MapMoney(domainpayouts.Earnings(paid)),
		Outstanding: dto.MapMoney(domainpayouts.Outstanding(paid, existing)),
	}, nil
}

func (h *QueryHandlers) ListPayouts(ctx context.Context, q ListPayoutsQuery) (*dto.PayoutCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Payouts().ListByHost(ctx, q.HostID)
	if err != nil {
		return nil, err
	}
	out := dto.PayoutCollection{Items: make([]dto.PayoutView, 0, len(items))}
	for _, p := range items {
		out.Items = append(out.Items, dto.MapPayout(p))
	}
	return &out, nil
}

type eventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

func drainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, rec eventSource) error {
	if box == nil {
		return nil
	}
	evs := rec.PendingEvents()
	if len(evs) == 0 {
		return nil
	}
	if err := outbox.RecordDomainEvents(ctx, box, encoder, evs); err != nil {
		return err
	}
	rec.ClearEvents()
	return nil
}
