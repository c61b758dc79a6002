// Package payments provides an in-process payment provider. It keeps the
// full intent state machine so the booking flow exercises the same
// authorize/capture/refund sequence a real gateway would demand.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentloop/internal/app/policies"
	"rentloop/internal/domain/shared/money"
)

const (
	IntentCreated    = "CREATED"
	IntentAuthorized = "AUTHORIZED"
	IntentCaptured   = "CAPTURED"
	IntentRefunded   = "REFUNDED"
	IntentCancelled  = "CANCELLED"
)

var (
	ErrDeclined        = errors.New("payments: card declined")
	ErrIntentNotFound  = errors.New("payments: intent not found")
	ErrIntentState     = errors.New("payments: intent in wrong state")
	ErrNothingToRefund = errors.New("payments: no captured intent for booking")
)

// Intent tracks one payment attempt through its lifecycle.
type Intent struct {
	ID        string
	BookingID string
	Amount    money.Money
	Token     string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Simulator implements policies.PaymentsPort in memory. Tokens with the
// "fail" prefix are declined at authorize time; RefundFailures makes the
// next N refund calls fail, which tests use to exercise the
// cancel-with-broken-refund path.
type Simulator struct {
	mu             sync.Mutex
	intents        map[string]*Intent
	byBooking      map[string]string
	RefundFailures int
}

func NewSimulator() *Simulator {
	return &Simulator{
		intents:   make(map[string]*Intent),
		byBooking: make(map[string]string),
	}
}

func (s *Simulator) Authorize(ctx context.Context, bookingID string, amount money.Money, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byBooking[bookingID]; ok {
		intent := s.intents[existing]
		if intent.State == IntentAuthorized || intent.State == IntentCaptured {
			return intent.ID, nil
		}
	}
	if strings.HasPrefix(token, "fail") {
		return "", ErrDeclined
	}
	now := time.Now().UTC()
	intent := &Intent{
		ID:        "pi-" + uuid.NewString(),
		BookingID: bookingID,
		Amount:    amount,
		Token:     token,
		State:     IntentCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	intent.State = IntentAuthorized
	s.intents[intent.ID] = intent
	s.byBooking[bookingID] = intent.ID
	return intent.ID, nil
}

func (s *Simulator) Capture(ctx context.Context, intentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[intentID]
	if !ok {
		return ErrIntentNotFound
	}
	switch intent.State {
	case IntentCaptured:
		return nil
	case IntentAuthorized:
		intent.State = IntentCaptured
		intent.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return fmt.Errorf("%w: capture from %s", ErrIntentState, intent.State)
	}
}

func (s *Simulator) Refund(ctx context.Context, bookingID string, amount money.Money) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RefundFailures > 0 {
		s.RefundFailures--
		return errors.New("payments: refund endpoint unavailable")
	}
	intentID, ok := s.byBooking[bookingID]
	if !ok {
		return ErrNothingToRefund
	}
	intent := s.intents[intentID]
	switch intent.State {
	case IntentRefunded:
		return nil
	case IntentCaptured:
		intent.State = IntentRefunded
		intent.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return fmt.Errorf("%w: refund from %s", ErrIntentState, intent.State)
	}
}

// CancelIntent voids an authorized-but-uncaptured intent.
func (s *Simulator) CancelIntent(ctx context.Context, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[intentID]
	if !ok {
		return ErrIntentNotFound
	}
	switch intent.State {
	case IntentCancelled:
		return nil
	case IntentCreated, IntentAuthorized:
		intent.State = IntentCancelled
		intent.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return fmt.Errorf("%w: cancel from %s", ErrIntentState, intent.State)
	}
}

// IntentFor returns the current intent for a booking, for assertions.
func (s *Simulator) IntentFor(bookingID string) (Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byBooking[bookingID]
	if !ok {
		return Intent{}, false
	}
	return *s.intents[id], true
}

var _ policies.PaymentsPort = (*Simulator)(nil)
