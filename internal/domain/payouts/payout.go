package payouts

import (
	"context"
	"errors"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/shared/events"
	"rentloop/internal/domain/shared/money"
)

var (
	ErrPayoutNotFound        = errors.New("payouts: not found")
	ErrPayoutCancelled       = errors.New("payouts: payout is cancelled")
	ErrInvalidAmount         = errors.New("payouts: amount must be positive")
	ErrPayoutExceedsEarnings = errors.New("payouts: amount exceeds outstanding earnings")
)

type PayoutID string

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "PENDING"
	PayoutPaid      PayoutStatus = "PAID"
	PayoutCancelled PayoutStatus = "CANCELLED"
)

// Payout is a recorded intent to transfer outstanding earnings to a host.
type Payout struct {
	ID        PayoutID
	HostID    string
	Amount    money.Money
	Status    PayoutStatus
	Method    string
	Reference string
	CreatedAt time.Time
	PaidAt    time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id PayoutID) (*Payout, error)
	Save(ctx context.Context, payout *Payout) error
	ListByHost(ctx context.Context, hostID string) ([]*Payout, error)
}

// Earnings sums the host portion over PAID and COMPLETED bookings. The
// bookings are assumed to share one currency.
func Earnings(paid []*booking.Booking) money.Money {
	var total money.Money
	for _, b := range paid {
		if b.Status != booking.StatusPaid && b.Status != booking.StatusCompleted {
			continue
		}
		portion := b.HostPortion()
		if total.Currency == "" {
			total = portion
			continue
		}
		if sum, err := total.Add(portion); err == nil {
			total = sum
		}
	}
	return total
}

// Outstanding is earnings minus everything already committed to payouts.
// Cancelled payouts do not count against the balance.
func Outstanding(paid []*booking.Booking, existing []*Payout) money.Money {
	balance := Earnings(paid)
	for _, p := range existing {
		if p.Status == PayoutCancelled {
			continue
		}
		if rest, err := balance.Sub(p.Amount); err == nil {
			balance = rest
		}
	}
	return balance
}

type CreateParams struct {
	ID          PayoutID
	HostID      string
	Amount      money.Money
	Method      string
	Reference   string
	Outstanding money.Money
	CreatedAt   time.Time
}

// NewPayout records a payout intent against the host's outstanding balance.
func NewPayout(params CreateParams) (*Payout, error) {
	if !params.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if params.Amount.Amount > params.Outstanding.Amount {
		return nil, ErrPayoutExceedsEarnings
	}
	now := params.CreatedAt.UTC()
	p := &Payout{
		ID:        params.ID,
		HostID:    params.HostID,
		Amount:    params.Amount,
		Status:    PayoutPending,
		Method:    params.Method,
		Reference: params.Reference,
		CreatedAt: now,
	}
	p.Record(PayoutCreated{PayoutID: p.ID, HostID: p.HostID, Amount: p.Amount, At: now})
	return p, nil
}

// MarkPaid settles a pending payout. Settling twice is a no-op; settling a
// cancelled payout is an error.
func (p *Payout) MarkPaid(method, reference string, now time.Time) error {
	switch p.Status {
	case PayoutPaid:
		return nil
	case PayoutCancelled:
		return ErrPayoutCancelled
	}
	p.Status = PayoutPaid
	p.Method = method
	p.Reference = reference
	p.PaidAt = now.UTC()
	p.Record(PayoutSettled{PayoutID: p.ID, HostID: p.HostID, Amount: p.Amount, At: p.PaidAt})
	return nil
}
