// Package schedule holds background jobs that advance bookings without a
// user action.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rentloop/internal/app/commands"
	bookinghandlers "rentloop/internal/app/handlers/booking"
	"rentloop/internal/app/uow"
	domainbooking "rentloop/internal/domain/booking"
)

// CompletionSweeper periodically moves PAID bookings whose rental period has
// ended to COMPLETED. Each booking goes through the command bus so the usual
// middleware (transaction, outbox flush) applies.
type CompletionSweeper struct {
	UoWFactory uow.UoWFactory
	Bus        commands.Bus
	Interval   time.Duration
	Logger     *slog.Logger
}

func (s *CompletionSweeper) Run(ctx context.Context) error {
	if s.UoWFactory == nil || s.Bus == nil {
		return ErrSweeperNotConfigured
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *CompletionSweeper) sweepOnce(ctx context.Context) error {
	elapsed, err := s.listElapsed(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("completion sweep: listing elapsed bookings", "error", err)
		}
		return nil
	}
	for _, b := range elapsed {
		cmd := bookinghandlers.CompleteBookingCommand{BookingID: string(b.ID)}
		if _, err := s.Bus.Dispatch(ctx, cmd); err != nil {
			// A lost race with a manual complete or cancel is fine.
			if errors.Is(err, domainbooking.ErrInvalidTransition) {
				continue
			}
			if s.Logger != nil {
				s.Logger.Error("completion sweep: completing booking", "booking_id", b.ID, "error", err)
			}
		}
	}
	return nil
}

func (s *CompletionSweeper) listElapsed(ctx context.Context) ([]*domainbooking.Booking, error) {
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()
	return unit.Booking().ListElapsed(ctx, time.Now().UTC())
}

func (s *CompletionSweeper) interval() time.Duration {
	if s.Interval <= 0 {
		return time.Minute
	}
	return s.Interval
}

var ErrSweeperNotConfigured = errors.New("schedule: sweeper missing dependencies")
