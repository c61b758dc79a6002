package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentloop/internal/domain/booking"
	"rentloop/internal/domain/listings"
	domainrange "rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/money"
	"rentloop/internal/domain/shared/timeofday"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "renter_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "range.end", Value: 1}},
	})
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"renter_id": renterID})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"host_id": hostID})
}

func (r *BookingRepository) ListPayableByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"host_id": hostID,
		"paid":    true,
		"status":  bson.M{"$in": []string{string(domainbooking.StatusPaid), string(domainbooking.StatusCompleted)}},
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ListElapsed(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":    string(domainbooking.StatusPaid),
		"range.end": bson.M{"$lte": cutoff.UnixMilli()},
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID         string        `bson:"_id"`
	ListingID  string        `bson:"listing_id"`
	RenterID   string        `bson:"renter_id"`
	HostID     string        `bson:"host_id"`
	Type       string        `bson:"type"`
	Range      rangeDocument `bson:"range"`
	SlotStart  int           `bson:"slot_start"`
	SlotEnd    int           `bson:"slot_end"`
	Status     string        `bson:"status"`
	Paid       bool          `bson:"paid"`
	Total      moneyDocument `bson:"total"`
	Commission moneyDocument `bson:"commission"`
	CreatedAt  int64         `bson:"created_at"`
	UpdatedAt  int64         `bson:"updated_at"`
	Version    int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		RenterID:   b.RenterID,
		HostID:     b.HostID,
		Type:       string(b.Type),
		Range:      rangeDocument{Start: b.Range.Start.UnixMilli(), End: b.Range.End.UnixMilli()},
		SlotStart:  int(b.Slot.Start),
		SlotEnd:    int(b.Slot.End),
		Status:     string(b.Status),
		Paid:       b.Paid,
		Total:      newMoneyDocument(b.TotalPrice),
		Commission: newMoneyDocument(b.Commission),
		CreatedAt:  b.CreatedAt.UnixMilli(),
		UpdatedAt:  b.UpdatedAt.UnixMilli(),
		Version:    b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		ListingID:  listings.ListingID(d.ListingID),
		RenterID:   d.RenterID,
		HostID:     d.HostID,
		Type:       listings.BookingType(d.Type),
		Range:      domainrange.DateRange{Start: timestampToTime(d.Range.Start), End: timestampToTime(d.Range.End)},
		Slot:       timeofday.Range{Start: timeofday.Minutes(d.SlotStart), End: timeofday.Minutes(d.SlotEnd)},
		Status:     domainbooking.Status(d.Status),
		Paid:       d.Paid,
		TotalPrice: d.Total.toMoney(),
		Commission: d.Commission.toMoney(),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
