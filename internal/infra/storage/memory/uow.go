package memory

import (
	"context"
	"errors"

	"rentloop/internal/app/uow"
	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainpayouts "rentloop/internal/domain/payouts"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo domainlistings.Repository
	BookingRepo  domainbooking.Repository
	Availability domainavailability.Index
	PayoutsRepo  domainpayouts.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided
// but the abstraction matches the application ports; atomicity of the
// reserve step comes from the index itself.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.BookingRepo == nil || f.Availability == nil || f.PayoutsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		listings:     f.ListingsRepo,
		booking:      f.BookingRepo,
		availability: f.Availability,
		payouts:      f.PayoutsRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	listings     domainlistings.Repository
	booking      domainbooking.Repository
	availability domainavailability.Index
	payouts      domainpayouts.Repository
}

func (u *Unit) Listings() domainlistings.Repository {
	return u.listings
}

func (u *Unit) Booking() domainbooking.Repository {
	return u.booking
}

func (u *Unit) Availability() domainavailability.Index {
	return u.availability
}

func (u *Unit) Payouts() domainpayouts.Repository {
	return u.payouts
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}

var _ uow.UnitOfWork = (*Unit)(nil)
var _ uow.UoWFactory = Factory{}
