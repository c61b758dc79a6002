package payouts

import (
	"time"

	"rentloop/internal/domain/shared/money"
)

type PayoutCreated struct {
	PayoutID PayoutID
	HostID   string
	Amount   money.Money
	At       time.Time
}

func (e PayoutCreated) EventName() string     { return "payout.created" }
func (e PayoutCreated) AggregateID() string   { return string(e.PayoutID) }
func (e PayoutCreated) OccurredAt() time.Time { return e.At }

type PayoutSettled struct {
	PayoutID PayoutID
	HostID   string
	Amount   money.Money
	At       time.Time
}

func (e PayoutSettled) EventName() string     { return "payout.settled" }
func (e PayoutSettled) AggregateID() string   { return string(e.PayoutID) }
func (e PayoutSettled) OccurredAt() time.Time { return e.At }
