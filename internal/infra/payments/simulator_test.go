package payments

import (
	"context"
	"errors"
	"testing"

	"rentloop/internal/domain/shared/money"
)

func TestAuthorizeCaptureRefund(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()
	amount := money.Must(30000, "TND")

	id, err := s.Authorize(ctx, "b1", amount, "tok-visa")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if intent, ok := s.IntentFor("b1"); !ok || intent.State != IntentAuthorized {
		t.Fatalf("after authorize: %+v", intent)
	}

	if err := s.Capture(ctx, id); err != nil {
		t.Fatalf("capture: %v", err)
	}
	// Capturing twice is a no-op.
	if err := s.Capture(ctx, id); err != nil {
		t.Fatalf("repeated capture: %v", err)
	}

	if err := s.Refund(ctx, "b1", amount); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if intent, _ := s.IntentFor("b1"); intent.State != IntentRefunded {
		t.Fatalf("after refund: %+v", intent)
	}
	// Refunding twice is a no-op.
	if err := s.Refund(ctx, "b1", amount); err != nil {
		t.Fatalf("repeated refund: %v", err)
	}
}

func TestAuthorizeDeclines(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()
	amount := money.Must(30000, "TND")

	if _, err := s.Authorize(ctx, "b1", amount, "fail-insufficient-funds"); !errors.Is(err, ErrDeclined) {
		t.Fatalf("failing token = %v, want ErrDeclined", err)
	}
	if _, ok := s.IntentFor("b1"); ok {
		t.Fatal("declined authorize must not leave an intent behind")
	}

	// A later attempt with a good card succeeds.
	if _, err := s.Authorize(ctx, "b1", amount, "tok-visa"); err != nil {
		t.Fatalf("retry authorize: %v", err)
	}
}

func TestAuthorizeIdempotentPerBooking(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()
	amount := money.Must(30000, "TND")

	first, err := s.Authorize(ctx, "b1", amount, "tok-visa")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Authorize(ctx, "b1", amount, "tok-visa")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("retried authorize returned a new intent: %s vs %s", first, second)
	}
}

func TestRefundRules(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()
	amount := money.Must(30000, "TND")

	if err := s.Refund(ctx, "missing", amount); !errors.Is(err, ErrNothingToRefund) {
		t.Fatalf("refund without intent = %v, want ErrNothingToRefund", err)
	}

	id, err := s.Authorize(ctx, "b1", amount, "tok-visa")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Capture(ctx, id); err != nil {
		t.Fatal(err)
	}

	s.RefundFailures = 1
	if err := s.Refund(ctx, "b1", amount); err == nil {
		t.Fatal("want injected refund failure")
	}
	if intent, _ := s.IntentFor("b1"); intent.State != IntentCaptured {
		t.Fatalf("failed refund must not change intent state, got %s", intent.State)
	}
	// The failure budget is spent; the retry goes through.
	if err := s.Refund(ctx, "b1", amount); err != nil {
		t.Fatalf("retry refund: %v", err)
	}
}
