package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentloop/internal/app/uow"
	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainpayouts "rentloop/internal/domain/payouts"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	ListingsRepo domainlistings.Repository
	BookingRepo  domainbooking.Repository
	Availability domainavailability.Index
	PayoutsRepo  domainpayouts.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:           f.DB,
		session:      session,
		listings:     f.ListingsRepo,
		booking:      f.BookingRepo,
		availability: f.Availability,
		payouts:      f.PayoutsRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for
// downstream repositories.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UnitOfWork = (*Unit)(nil)
var _ uow.UoWFactory = Factory{}
