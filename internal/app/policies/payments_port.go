package policies

import (
	"context"

	"rentloop/internal/domain/shared/money"
)

// PaymentsPort is the contract the booking engine requires from the payment
// collaborator. Authorize issues an intent for the booking's total, Capture
// settles it, Refund returns captured funds. Implementations own the intent
// lifecycle; the engine only reacts to success or failure.
type PaymentsPort interface {
	Authorize(ctx context.Context, bookingID string, amount money.Money, token string) (string, error)
	Capture(ctx context.Context, intentID string) error
	Refund(ctx context.Context, bookingID string, amount money.Money) error
}
