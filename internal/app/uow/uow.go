package uow

import (
	"context"

	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainpayouts "rentloop/internal/domain/payouts"
)

// UnitOfWork coordinates repositories inside a transaction boundary. The
// booking status update and its availability hold are committed together so
// a cancelled booking can never keep blocking the calendar.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Booking() domainbooking.Repository
	Availability() domainavailability.Index
	Payouts() domainpayouts.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
