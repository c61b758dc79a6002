package payouts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	payoutsapp "rentloop/internal/app/handlers/payouts"
	"rentloop/internal/app/outbox"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainpayouts "rentloop/internal/domain/payouts"
	"rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/money"
	"rentloop/internal/infra/storage/memory"
)

type fixture struct {
	bookings *memory.BookingRepository
	payouts  *memory.PayoutRepository

	create   *payoutsapp.CreatePayoutHandler
	markPaid *payoutsapp.MarkPayoutPaidHandler
	queries  *payoutsapp.QueryHandlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bookings: memory.NewBookingRepository(),
		payouts:  memory.NewPayoutRepository(),
	}
	factory := memory.Factory{
		ListingsRepo: memory.NewListingRepository(),
		BookingRepo:  f.bookings,
		Availability: memory.NewAvailabilityIndex(),
		PayoutsRepo:  f.payouts,
	}
	box := memory.NewOutbox()
	encoder := outbox.JSONEventEncoder{}
	f.create = &payoutsapp.CreatePayoutHandler{UoWFactory: factory, Outbox: box, Encoder: encoder}
	f.markPaid = &payoutsapp.MarkPayoutPaidHandler{UoWFactory: factory, Outbox: box, Encoder: encoder}
	f.queries = &payoutsapp.QueryHandlers{UoWFactory: factory}
	return f
}

// seedPaidBooking stores a PAID booking worth the given total with a 10%
// commission, so the host portion is 90% of total.
func (f *fixture) seedPaidBooking(t *testing.T, id, host string, total int64) {
	t.Helper()
	start := daterange.StartOfDay(time.Now().UTC()).AddDate(0, 0, 7)
	dr, err := daterange.New(start, start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		ListingID:  domainlistings.ListingID("l1"),
		RenterID:   "renter-1",
		HostID:     host,
		Range:      dr,
		TotalPrice: money.Must(total, "TND"),
		Commission: money.Must(total/10, "TND"),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	if err := b.Confirm(now); err != nil {
		t.Fatal(err)
	}
	if err := b.MarkPaid("pi-test", now); err != nil {
		t.Fatal(err)
	}
	if err := f.bookings.Save(context.Background(), b); err != nil {
		t.Fatal(err)
	}
}

func TestCreatePayoutAgainstOutstanding(t *testing.T) {
	f := newFixture(t)
	f.seedPaidBooking(t, "b1", "host-1", 30000) // host portion 27000
	ctx := context.Background()

	view, err := f.create.Handle(ctx, payoutsapp.CreatePayoutCommand{
		PayoutID: "p1", HostID: "host-1",
		Amount: money.Must(20000, "TND"), Method: "bank_transfer",
	})
	if err != nil {
		t.Fatalf("create payout: %v", err)
	}
	if view.Status != string(domainpayouts.PayoutPending) {
		t.Fatalf("status = %s, want PENDING", view.Status)
	}

	earnings, err := f.queries.GetEarnings(ctx, payoutsapp.GetEarningsQuery{HostID: "host-1"})
	if err != nil {
		t.Fatal(err)
	}
	if earnings.Earned.Amount != 27000 {
		t.Fatalf("earned = %d, want 27000", earnings.Earned.Amount)
	}
	if earnings.Outstanding.Amount != 7000 {
		t.Fatalf("outstanding = %d, want 7000 after the pending payout", earnings.Outstanding.Amount)
	}

	// A second payout may not overdraw the balance.
	if _, err := f.create.Handle(ctx, payoutsapp.CreatePayoutCommand{
		PayoutID: "p2", HostID: "host-1", Amount: money.Must(8000, "TND"),
	}); !errors.Is(err, domainpayouts.ErrPayoutExceedsEarnings) {
		t.Fatalf("overdraw = %v, want ErrPayoutExceedsEarnings", err)
	}
}

func TestCreatePayoutValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.create.Handle(ctx, payoutsapp.CreatePayoutCommand{
		PayoutID: "p1", HostID: "host-1", Amount: money.Must(0, "TND"),
	}); !errors.Is(err, domainpayouts.ErrInvalidAmount) {
		t.Fatalf("zero amount = %v, want ErrInvalidAmount", err)
	}

	// No earnings at all: anything positive overdraws.
	if _, err := f.create.Handle(ctx, payoutsapp.CreatePayoutCommand{
		PayoutID: "p1", HostID: "host-1", Amount: money.Must(100, "TND"),
	}); !errors.Is(err, domainpayouts.ErrPayoutExceedsEarnings) {
		t.Fatalf("payout without earnings = %v, want ErrPayoutExceedsEarnings", err)
	}
}

func TestMarkPayoutPaid(t *testing.T) {
	f := newFixture(t)
	f.seedPaidBooking(t, "b1", "host-1", 30000)
	ctx := context.Background()

	if _, err := f.create.Handle(ctx, payoutsapp.CreatePayoutCommand{
		PayoutID: "p1", HostID: "host-1", Amount: money.Must(10000, "TND"),
	}); err != nil {
		t.Fatal(err)
	}

	view, err := f.markPaid.Handle(ctx, payoutsapp.MarkPayoutPaidCommand{
		PayoutID: "p1", HostID: "host-1", Method: "bank_transfer", Reference: "wire-42",
	})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if view.Status != string(domainpayouts.PayoutPaid) || view.Reference != "wire-42" {
		t.Fatalf("settled view = %+v", view)
	}
	if view.PaidAt.IsZero() {
		t.Fatal("PaidAt not set")
	}

	// Settling twice is a no-op.
	if _, err := f.markPaid.Handle(ctx, payoutsapp.MarkPayoutPaidCommand{PayoutID: "p1", HostID: "host-1"}); err != nil {
		t.Fatalf("repeated settle: %v", err)
	}

	// A settled payout still counts against the outstanding balance.
	earnings, err := f.queries.GetEarnings(ctx, payoutsapp.GetEarningsQuery{HostID: "host-1"})
	if err != nil {
		t.Fatal(err)
	}
	if earnings.Outstanding.Amount != 17000 {
		t.Fatalf("outstanding = %d, want 17000", earnings.Outstanding.Amount)
	}
}

func TestMarkPayoutPaidGuards(t *testing.T) {
	f := newFixture(t)
	f.seedPaidBooking(t, "b1", "host-1", 30000)
	ctx := context.Background()

	if _, err := f.create.Handle(ctx, payoutsapp.CreatePayoutCommand{
		PayoutID: "p1", HostID: "host-1", Amount: money.Must(10000, "TND"),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.markPaid.Handle(ctx, payoutsapp.MarkPayoutPaidCommand{
		PayoutID: "p1", HostID: "someone-else",
	}); !errors.Is(err, domainpayouts.ErrPayoutNotFound) {
		t.Fatalf("wrong host = %v, want ErrPayoutNotFound", err)
	}
	if _, err := f.markPaid.Handle(ctx, payoutsapp.MarkPayoutPaidCommand{
		PayoutID: "missing", HostID: "host-1",
	}); !errors.Is(err, domainpayouts.ErrPayoutNotFound) {
		t.Fatalf("unknown payout = %v, want ErrPayoutNotFound", err)
	}
}

func TestListPayouts(t *testing.T) {
	f := newFixture(t)
	f.seedPaidBooking(t, "b1", "host-1", 50000)
	ctx := context.Background()

	requests := []struct {
		id     string
		amount int64
	}{
		{"p1", 10000},
		{"p2", 20000},
	}
	for _, req := range requests {
		if _, err := f.create.Handle(ctx, payoutsapp.CreatePayoutCommand{
			PayoutID: req.id,
			HostID:   "host-1",
			Amount:   money.Must(req.amount, "TND"),
		}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := f.queries.ListPayouts(ctx, payoutsapp.ListPayoutsQuery{HostID: "host-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(list.Items))
	}
	if list.Items[0].ID != "p1" || list.Items[1].ID != "p2" {
		t.Fatalf("order = %s, %s", list.Items[0].ID, list.Items[1].ID)
	}
}
