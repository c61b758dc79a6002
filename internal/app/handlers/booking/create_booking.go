package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/dto"
	"rentloop/internal/app/handlers/support"
	"rentloop/internal/app/middleware"
	"rentloop/internal/app/outbox"
	"rentloop/internal/app/uow"
	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainrange "rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/money"
	"rentloop/internal/domain/shared/timeofday"
)

const createBookingKey = "booking.create"

const defaultCommissionPercent = 10

type CreateBookingCommand struct {
	CommandID       string
	ListingID       string
	RenterID        string
	Start           time.Time
	End             time.Time
	StartTime       string // HH:mm, slot listings only
	EndTime         string
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &dto.BookingView{} }

type CreateBookingHandler struct {
	UoWFactory        uow.UoWFactory
	Outbox            outbox.Outbox
	Encoder           outbox.EventEncoder
	CommissionPercent int
	Logger            *slog.Logger
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.BookingView, error) {
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

func (h *CreateBookingHandler) handle(ctx context.Context, unit uow.UnitOfWork, cmd CreateBookingCommand) (*dto.BookingView, error) {
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if !listing.IsActive() {
		return nil, domainbooking.ErrListingInactive
	}
	if string(listing.Host) == cmd.RenterID {
		return nil, domainbooking.ErrOwnListing
	}

	now := time.Now().UTC()

	var (
		dr    domainrange.DateRange
		total money.Money
		slot  timeofday.Range
		hold  timeofday.Range
	)
	switch listing.BookingType {
	case domainlistings.BookSlot:
		cfg := listing.Slots
		if cfg == nil {
			return nil, domainlistings.ErrSlotConfigNeeded
		}
		var err error
		slot, err = timeofday.ParseRange(cmd.StartTime, cmd.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domainbooking.ErrInvalidRange, err)
		}
		// Slot requests carry one date; only Start matters here.
		day := domainrange.StartOfDay(cmd.Start)
		if err := cfg.ValidateRange(day, slot); err != nil {
			return nil, fmt.Errorf("%w: %w", domainbooking.ErrInvalidRange, err)
		}
		dr = domainrange.DateRange{Start: day, End: day.AddDate(0, 0, 1)}
		if err := domainbooking.ValidateStart(dr, now); err != nil {
			return nil, err
		}
		total = cfg.Price(slot)
		hold = slot.Pad(timeofday.Minutes(cfg.BufferMinutes))
	default:
		parsed, err := domainrange.New(cmd.Start, cmd.End)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domainbooking.ErrInvalidRange, err)
		}
		dr = parsed.Normalize()
		if dr.Days() < 1 {
			return nil, domainbooking.ErrInvalidRange
		}
		if err := domainbooking.ValidateStart(dr, now); err != nil {
			return nil, err
		}
		total = listing.DailyRate.Multiply(int64(dr.Days()))
	}

	commission := total.Percent(h.commissionPercent())

	// Build the aggregate before touching the index: every hold must belong
	// to a booking, so parameter validation has to fail first.
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(cmd.CommandID),
		ListingID:  listing.ID,
		RenterID:   cmd.RenterID,
		HostID:     string(listing.Host),
		Type:       listing.BookingType,
		Range:      dr,
		Slot:       slot,
		TotalPrice: total,
		Commission: commission,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	reservation := domainavailability.ReservedRange{
		ListingID: listing.ID,
		Range:     dr,
		Slot:      hold,
		BookingID: string(b.ID),
		CreatedAt: now,
	}
	if err := unit.Availability().TryReserve(ctx, reservation); err != nil {
		if errors.Is(err, domainavailability.ErrRangeConflict) {
			if h.Logger != nil {
				h.Logger.Info("reservation race lost", "listing_id", listing.ID, "booking_id", cmd.CommandID, "error", err)
			}
			return nil, fmt.Errorf("%w: %w", domainbooking.ErrUnavailable, err)
		}
		return nil, err
	}

	b.Record(domainavailability.RangeReservedEvent(listing.ID, dr, string(b.ID), now))

	if err := unit.Booking().Save(ctx, b); err != nil {
		h.releaseHold(ctx, unit, b)
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, b); err != nil {
		h.releaseHold(ctx, unit, b)
		return nil, err
	}

	view := dto.MapBooking(b)
	return &view, nil
}

// releaseHold drops the index hold when the booking cannot be persisted. The
// memory unit has no rollback, so the index must be unwound explicitly.
func (h *CreateBookingHandler) releaseHold(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) {
	if err := unit.Availability().Release(ctx, string(b.ID)); err != nil && h.Logger != nil {
		h.Logger.Error("failed to release hold for unpersisted booking", "booking_id", b.ID, "error", err)
	}
}

func (h *CreateBookingHandler) commissionPercent() int {
	if h.CommissionPercent < 0 {
		return defaultCommissionPercent
	}
	return h.CommissionPercent
}

var _ commands.Handler[CreateBookingCommand, *dto.BookingView] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
