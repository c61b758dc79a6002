package dto

import (
	"time"

	"rentloop/internal/domain/payouts"
)

type EarningsView struct {
	HostID      string   `json:"host_id"`
	Earned      MoneyDTO `json:"earned"`
	Outstanding MoneyDTO `json:"outstanding"`
}

type PayoutView struct {
	ID        string    `json:"id"`
	HostID    string    `json:"host_id"`
	Amount    MoneyDTO  `json:"amount"`
	Status    string    `json:"status"`
	Method    string    `json:"method,omitempty"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	PaidAt    time.Time `json:"paid_at,omitzero"`
}

type PayoutCollection struct {
	Items []PayoutView `json:"items"`
}

func MapPayout(p *payouts.Payout) PayoutView {
	return PayoutView{
		ID:        string(p.ID),
		HostID:    p.HostID,
		Amount:    MapMoney(p.Amount),
		Status:    string(p.Status),
		Method:    p.Method,
		Reference: p.Reference,
		CreatedAt: p.CreatedAt,
		PaidAt:    p.PaidAt,
	}
}
