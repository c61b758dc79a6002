package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentloop/internal/app/dto"
	bookingapp "rentloop/internal/app/handlers/booking"
	payoutsapp "rentloop/internal/app/handlers/payouts"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/uow"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	"rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/money"
	"rentloop/internal/domain/shared/timeofday"
	"rentloop/internal/infra/payments"
	"rentloop/internal/infra/storage/memory"
)

type fixture struct {
	factory  memory.Factory
	listings *memory.ListingRepository
	index    *memory.AvailabilityIndex
	outbox   *memory.Outbox
	sim      *payments.Simulator

	create   *bookingapp.CreateBookingHandler
	confirm  *bookingapp.ConfirmBookingHandler
	reject   *bookingapp.RejectBookingHandler
	pay      *bookingapp.PayBookingHandler
	cancel   *bookingapp.CancelBookingHandler
	complete *bookingapp.CompleteBookingHandler
	earnings *payoutsapp.QueryHandlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		listings: memory.NewListingRepository(),
		index:    memory.NewAvailabilityIndex(),
		outbox:   memory.NewOutbox(),
		sim:      payments.NewSimulator(),
	}
	f.factory = memory.Factory{
		ListingsRepo: f.listings,
		BookingRepo:  memory.NewBookingRepository(),
		Availability: f.index,
		PayoutsRepo:  memory.NewPayoutRepository(),
	}
	encoder := outbox.JSONEventEncoder{}
	f.create = &bookingapp.CreateBookingHandler{UoWFactory: f.factory, Outbox: f.outbox, Encoder: encoder, CommissionPercent: 10}
	f.confirm = &bookingapp.ConfirmBookingHandler{UoWFactory: f.factory, Outbox: f.outbox, Encoder: encoder}
	f.reject = &bookingapp.RejectBookingHandler{UoWFactory: f.factory, Outbox: f.outbox, Encoder: encoder}
	f.pay = &bookingapp.PayBookingHandler{UoWFactory: f.factory, Outbox: f.outbox, Encoder: encoder, Payments: f.sim}
	f.cancel = &bookingapp.CancelBookingHandler{UoWFactory: f.factory, Outbox: f.outbox, Encoder: encoder, Payments: f.sim}
	f.complete = &bookingapp.CompleteBookingHandler{UoWFactory: f.factory, Outbox: f.outbox, Encoder: encoder}
	f.earnings = &payoutsapp.QueryHandlers{UoWFactory: f.factory}
	return f
}

func (f *fixture) addDailyListing(t *testing.T, id, host string, rate int64) {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:        domainlistings.ListingID(id),
		Host:      domainlistings.HostID(host),
		Title:     "City apartment",
		DailyRate: money.Must(rate, "TND"),
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := listing.Activate(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := f.listings.Save(context.Background(), listing); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) addSlotListing(t *testing.T, id, host string) {
	t.Helper()
	window, err := timeofday.ParseRange("08:00", "22:00")
	if err != nil {
		t.Fatal(err)
	}
	hours := make(map[time.Weekday]timeofday.Range, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		hours[d] = window
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:          domainlistings.ListingID(id),
		Host:        domainlistings.HostID(host),
		Title:       "Rehearsal room",
		BookingType: domainlistings.BookSlot,
		Slots: &domainlistings.SlotConfiguration{
			SlotDurationMinutes: 60,
			OperatingHours:      hours,
			MinBookingSlots:     1,
			MaxBookingSlots:     4,
			BufferMinutes:       30,
			PricePerSlot:        money.Must(5000, "TND"),
		},
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := listing.Activate(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := f.listings.Save(context.Background(), listing); err != nil {
		t.Fatal(err)
	}
}

func futureDay(offset int) time.Time {
	return daterange.StartOfDay(time.Now().UTC()).AddDate(0, 0, offset)
}

func (f *fixture) createBooking(t *testing.T, id, listing, renter string, startDay, days int) *dto.BookingView {
	t.Helper()
	view, err := f.create.Handle(context.Background(), bookingapp.CreateBookingCommand{
		CommandID: id,
		ListingID: listing,
		RenterID:  renter,
		Start:     futureDay(startDay),
		End:       futureDay(startDay + days),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return view
}

func TestBookingPricingAndEarnings(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()

	view := f.createBooking(t, "b1", "l1", "renter-1", 7, 3)
	if view.Status != string(domainbooking.StatusPending) {
		t.Fatalf("status = %s, want PENDING", view.Status)
	}
	if view.Total.Amount != 30000 {
		t.Fatalf("total = %d, want 30000", view.Total.Amount)
	}
	if view.Commission.Amount != 3000 {
		t.Fatalf("commission = %d, want 3000", view.Commission.Amount)
	}

	if _, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "host-1"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	paid, err := f.pay.Handle(ctx, bookingapp.PayBookingCommand{BookingID: "b1", ActingRenterID: "renter-1", PaymentToken: "tok-visa"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != string(domainbooking.StatusPaid) || !paid.Paid {
		t.Fatalf("after pay: %+v", paid)
	}

	earned, err := f.earnings.GetEarnings(ctx, payoutsapp.GetEarningsQuery{HostID: "host-1"})
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if earned.Earned.Amount != 27000 {
		t.Fatalf("earned = %d, want 27000 (total minus commission)", earned.Earned.Amount)
	}
	if earned.Outstanding.Amount != 27000 {
		t.Fatalf("outstanding = %d, want 27000", earned.Outstanding.Amount)
	}
}

func TestCreateBookingGuards(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()

	if _, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b-own", ListingID: "l1", RenterID: "host-1",
		Start: futureDay(7), End: futureDay(9),
	}); !errors.Is(err, domainbooking.ErrOwnListing) {
		t.Fatalf("own-listing booking = %v, want ErrOwnListing", err)
	}

	if _, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b-past", ListingID: "l1", RenterID: "renter-1",
		Start: futureDay(-3), End: futureDay(-1),
	}); !errors.Is(err, domainbooking.ErrStartInPast) {
		t.Fatalf("past booking = %v, want ErrStartInPast", err)
	}

	if _, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b-missing", ListingID: "nope", RenterID: "renter-1",
		Start: futureDay(7), End: futureDay(9),
	}); !errors.Is(err, domainlistings.ErrListingNotFound) {
		t.Fatalf("unknown listing = %v, want ErrListingNotFound", err)
	}

	draft, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:        "l-draft",
		Host:      "host-2",
		Title:     "Unlisted garage",
		DailyRate: money.Must(5000, "TND"),
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.listings.Save(ctx, draft); err != nil {
		t.Fatal(err)
	}
	if _, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b-draft", ListingID: "l-draft", RenterID: "renter-1",
		Start: futureDay(7), End: futureDay(9),
	}); !errors.Is(err, domainbooking.ErrListingInactive) {
		t.Fatalf("draft listing = %v, want ErrListingInactive", err)
	}
}

func TestCreateBookingConflict(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()

	f.createBooking(t, "b1", "l1", "renter-1", 7, 3)
	_, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b2", ListingID: "l1", RenterID: "renter-2",
		Start: futureDay(8), End: futureDay(11),
	})
	if !errors.Is(err, domainbooking.ErrUnavailable) {
		t.Fatalf("overlapping booking = %v, want ErrUnavailable", err)
	}

	// Back-to-back is fine: the first hold ends where the second starts.
	if _, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b3", ListingID: "l1", RenterID: "renter-2",
		Start: futureDay(10), End: futureDay(12),
	}); err != nil {
		t.Fatalf("back-to-back booking: %v", err)
	}
}

func TestConfirmGuardsAndIdempotency(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()
	f.createBooking(t, "b1", "l1", "renter-1", 7, 2)

	if _, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "intruder"}); !errors.Is(err, domainbooking.ErrForbidden) {
		t.Fatalf("confirm by stranger = %v, want ErrForbidden", err)
	}
	if _, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "host-1"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	again, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "host-1"})
	if err != nil {
		t.Fatalf("repeated confirm: %v", err)
	}
	if again.Status != string(domainbooking.StatusConfirmed) {
		t.Fatalf("repeated confirm status = %s", again.Status)
	}
}

func TestPayFailureLeavesBookingConfirmed(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()
	f.createBooking(t, "b1", "l1", "renter-1", 7, 2)
	if _, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "host-1"}); err != nil {
		t.Fatal(err)
	}

	_, err := f.pay.Handle(ctx, bookingapp.PayBookingCommand{BookingID: "b1", ActingRenterID: "renter-1", PaymentToken: "fail-declined"})
	if !errors.Is(err, domainbooking.ErrPaymentFailed) {
		t.Fatalf("declined pay = %v, want ErrPaymentFailed", err)
	}

	b := f.mustBooking(t, "b1")
	if b.Status != domainbooking.StatusConfirmed || b.Paid {
		t.Fatalf("after declined pay: status=%s paid=%v, want CONFIRMED/unpaid", b.Status, b.Paid)
	}

	// Retry with a working card succeeds.
	view, err := f.pay.Handle(ctx, bookingapp.PayBookingCommand{BookingID: "b1", ActingRenterID: "renter-1", PaymentToken: "tok-visa"})
	if err != nil {
		t.Fatalf("retry pay: %v", err)
	}
	if view.Status != string(domainbooking.StatusPaid) {
		t.Fatalf("retry pay status = %s", view.Status)
	}
}

func TestPayGuards(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()
	f.createBooking(t, "b1", "l1", "renter-1", 7, 2)

	// PENDING bookings cannot be paid.
	if _, err := f.pay.Handle(ctx, bookingapp.PayBookingCommand{BookingID: "b1", ActingRenterID: "renter-1", PaymentToken: "tok-visa"}); !errors.Is(err, domainbooking.ErrInvalidTransition) {
		t.Fatalf("pay while PENDING = %v, want invalid transition", err)
	}
	if _, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "host-1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.pay.Handle(ctx, bookingapp.PayBookingCommand{BookingID: "b1", ActingRenterID: "someone-else", PaymentToken: "tok-visa"}); !errors.Is(err, domainbooking.ErrForbidden) {
		t.Fatalf("pay by stranger = %v, want ErrForbidden", err)
	}
}

func TestCancelReleasesHoldAndRefunds(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()
	f.createBooking(t, "b1", "l1", "renter-1", 7, 2)
	if _, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "host-1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.pay.Handle(ctx, bookingapp.PayBookingCommand{BookingID: "b1", ActingRenterID: "renter-1", PaymentToken: "tok-visa"}); err != nil {
		t.Fatal(err)
	}

	result, err := f.cancel.Handle(ctx, bookingapp.CancelBookingCommand{BookingID: "b1", ActingUserID: "renter-1", Reason: "plans changed"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Booking.Status != string(domainbooking.StatusCancelled) {
		t.Fatalf("cancel status = %s", result.Booking.Status)
	}
	if !result.RefundRequested || result.RefundFailed {
		t.Fatalf("refund flags = %+v", result)
	}
	intent, ok := f.sim.IntentFor("b1")
	if !ok || intent.State != payments.IntentRefunded {
		t.Fatalf("intent = %+v, want REFUNDED", intent)
	}

	holds, err := f.index.RangesFor(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(holds) != 0 {
		t.Fatalf("hold not released, %d remain", len(holds))
	}

	// The dates are immediately rebookable.
	f.createBooking(t, "b2", "l1", "renter-2", 7, 2)
}

func TestCancelSurvivesRefundFailure(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()
	f.createBooking(t, "b1", "l1", "renter-1", 7, 2)
	if _, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "host-1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.pay.Handle(ctx, bookingapp.PayBookingCommand{BookingID: "b1", ActingRenterID: "renter-1", PaymentToken: "tok-visa"}); err != nil {
		t.Fatal(err)
	}

	f.sim.RefundFailures = 1
	result, err := f.cancel.Handle(ctx, bookingapp.CancelBookingCommand{BookingID: "b1", ActingUserID: "renter-1"})
	if err != nil {
		t.Fatalf("cancel with broken refund: %v", err)
	}
	if result.Booking.Status != string(domainbooking.StatusCancelled) {
		t.Fatalf("status = %s, want CANCELLED even when refund fails", result.Booking.Status)
	}
	if !result.RefundFailed || result.RefundError == "" {
		t.Fatalf("refund failure not surfaced: %+v", result)
	}

	holds, err := f.index.RangesFor(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(holds) != 0 {
		t.Fatal("hold must be released regardless of the refund outcome")
	}
}

func TestCancelIdempotentAndGuarded(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()
	f.createBooking(t, "b1", "l1", "renter-1", 7, 2)

	if _, err := f.cancel.Handle(ctx, bookingapp.CancelBookingCommand{BookingID: "b1", ActingUserID: "stranger"}); !errors.Is(err, domainbooking.ErrForbidden) {
		t.Fatalf("cancel by stranger = %v, want ErrForbidden", err)
	}
	// The host may cancel too.
	if _, err := f.cancel.Handle(ctx, bookingapp.CancelBookingCommand{BookingID: "b1", ActingUserID: "host-1"}); err != nil {
		t.Fatalf("host cancel: %v", err)
	}
	again, err := f.cancel.Handle(ctx, bookingapp.CancelBookingCommand{BookingID: "b1", ActingUserID: "renter-1"})
	if err != nil {
		t.Fatalf("repeated cancel: %v", err)
	}
	if again.Booking.Status != string(domainbooking.StatusCancelled) {
		t.Fatalf("repeated cancel status = %s", again.Booking.Status)
	}
}

func TestRejectReleasesHold(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()
	f.createBooking(t, "b1", "l1", "renter-1", 7, 2)

	view, err := f.reject.Handle(ctx, bookingapp.RejectBookingCommand{BookingID: "b1", ActingHostID: "host-1", Reason: "maintenance"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if view.Status != string(domainbooking.StatusRejected) {
		t.Fatalf("status = %s", view.Status)
	}
	f.createBooking(t, "b2", "l1", "renter-2", 7, 2)
}

func TestCompleteLifecycle(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()
	f.createBooking(t, "b1", "l1", "renter-1", 7, 2)
	if _, err := f.confirm.Handle(ctx, bookingapp.ConfirmBookingCommand{BookingID: "b1", ActingHostID: "host-1"}); err != nil {
		t.Fatal(err)
	}

	// CONFIRMED cannot be completed.
	if _, err := f.complete.Handle(ctx, bookingapp.CompleteBookingCommand{BookingID: "b1", ActingUserID: "host-1"}); !errors.Is(err, domainbooking.ErrInvalidTransition) {
		t.Fatalf("complete before pay = %v, want invalid transition", err)
	}
	if _, err := f.pay.Handle(ctx, bookingapp.PayBookingCommand{BookingID: "b1", ActingRenterID: "renter-1", PaymentToken: "tok-visa"}); err != nil {
		t.Fatal(err)
	}

	// System completion passes an empty actor.
	view, err := f.complete.Handle(ctx, bookingapp.CompleteBookingCommand{BookingID: "b1"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if view.Status != string(domainbooking.StatusCompleted) {
		t.Fatalf("status = %s", view.Status)
	}

	// Completed bookings still count toward earnings.
	earned, err := f.earnings.GetEarnings(ctx, payoutsapp.GetEarningsQuery{HostID: "host-1"})
	if err != nil {
		t.Fatal(err)
	}
	if earned.Earned.Amount != 18000 {
		t.Fatalf("earned = %d, want 18000", earned.Earned.Amount)
	}
}

func TestCreateSlotBooking(t *testing.T) {
	f := newFixture(t)
	f.addSlotListing(t, "l1", "host-1")
	ctx := context.Background()

	view, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b1", ListingID: "l1", RenterID: "renter-1",
		Start: futureDay(7), End: futureDay(7),
		StartTime: "10:00", EndTime: "13:00",
	})
	if err != nil {
		t.Fatalf("create slot booking: %v", err)
	}
	if view.Total.Amount != 15000 {
		t.Fatalf("total = %d, want 15000 for three slots", view.Total.Amount)
	}
	if view.StartTime != "10:00" || view.EndTime != "13:00" {
		t.Fatalf("slot window = %s-%s", view.StartTime, view.EndTime)
	}

	// The hold carries the buffer, so the adjacent 13:00 slot is blocked.
	if _, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b2", ListingID: "l1", RenterID: "renter-2",
		Start: futureDay(7), End: futureDay(7),
		StartTime: "13:00", EndTime: "14:00",
	}); !errors.Is(err, domainbooking.ErrUnavailable) {
		t.Fatalf("adjacent slot inside buffer = %v, want ErrUnavailable", err)
	}

	// Past the buffer the day is free again.
	if _, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b3", ListingID: "l1", RenterID: "renter-2",
		Start: futureDay(7), End: futureDay(7),
		StartTime: "14:00", EndTime: "15:00",
	}); err != nil {
		t.Fatalf("slot outside buffer: %v", err)
	}

	// Five hours exceeds the configured four-slot maximum.
	if _, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b4", ListingID: "l1", RenterID: "renter-2",
		Start: futureDay(8), End: futureDay(8),
		StartTime: "08:00", EndTime: "13:00",
	}); !errors.Is(err, domainbooking.ErrInvalidRange) {
		t.Fatalf("over-long slot booking = %v, want ErrInvalidRange", err)
	}

	// Same day, different listing: no cross-talk.
	f.addDailyListing(t, "l2", "host-2", 10000)
	f.createBooking(t, "b5", "l2", "renter-1", 7, 1)
}

func (f *fixture) mustBooking(t *testing.T, id string) *domainbooking.Booking {
	t.Helper()
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	b, err := unit.Booking().ByID(context.Background(), domainbooking.BookingID(id))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFailedCreateLeavesNoHold(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	ctx := context.Background()

	_, err := f.create.Handle(ctx, bookingapp.CreateBookingCommand{
		CommandID: "b-bad",
		ListingID: "l1",
		Start:     futureDay(7),
		End:       futureDay(10),
	})
	if err == nil {
		t.Fatal("create without a renter id should fail")
	}

	holds, err := f.index.RangesFor(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(holds) != 0 {
		t.Fatalf("holds after failed create = %d, want 0", len(holds))
	}

	// The range stays bookable for the next renter.
	view := f.createBooking(t, "b1", "l1", "renter-1", 7, 3)
	if view.Status != string(domainbooking.StatusPending) {
		t.Fatalf("status = %s, want PENDING", view.Status)
	}
}

func TestZeroCommissionIsHonored(t *testing.T) {
	f := newFixture(t)
	f.addDailyListing(t, "l1", "host-1", 10000)
	f.create.CommissionPercent = 0

	view := f.createBooking(t, "b1", "l1", "renter-1", 7, 2)
	if view.Total.Amount != 20000 {
		t.Fatalf("total = %d, want 20000", view.Total.Amount)
	}
	if view.Commission.Amount != 0 {
		t.Fatalf("commission = %d, want 0 when the platform takes no cut", view.Commission.Amount)
	}
}
