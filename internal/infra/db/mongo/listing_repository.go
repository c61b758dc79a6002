package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "rentloop/internal/domain/listings"
	"rentloop/internal/domain/shared/timeofday"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("agg_listing")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	filter := bson.M{"_id": doc.ID, "version": listing.Version}
	doc.Version = listing.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	listing.Version = doc.Version
	return nil
}

type listingDocument struct {
	ID          string              `bson:"_id"`
	Host        string              `bson:"host"`
	Title       string              `bson:"title"`
	Description string              `bson:"description"`
	BookingType string              `bson:"booking_type"`
	DailyRate   moneyDocument       `bson:"daily_rate"`
	Slots       *slotConfigDocument `bson:"slots,omitempty"`
	State       string              `bson:"state"`
	CreatedAt   int64               `bson:"created_at"`
	UpdatedAt   int64               `bson:"updated_at"`
	Version     int64               `bson:"version"`
}

type slotConfigDocument struct {
	SlotDurationMinutes int              `bson:"slot_duration_minutes"`
	OperatingHours      map[string][]int `bson:"operating_hours"`
	MinBookingSlots     int              `bson:"min_booking_slots"`
	MaxBookingSlots     int              `bson:"max_booking_slots"`
	BufferMinutes       int              `bson:"buffer_minutes"`
	PricePerSlot        moneyDocument    `bson:"price_per_slot"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	doc := listingDocument{
		ID:          string(l.ID),
		Host:        string(l.Host),
		Title:       l.Title,
		Description: l.Description,
		BookingType: string(l.BookingType),
		DailyRate:   newMoneyDocument(l.DailyRate),
		State:       string(l.State),
		CreatedAt:   l.CreatedAt.UnixMilli(),
		UpdatedAt:   l.UpdatedAt.UnixMilli(),
		Version:     l.Version,
	}
	if l.Slots != nil {
		hours := make(map[string][]int, len(l.Slots.OperatingHours))
		for day, window := range l.Slots.OperatingHours {
			hours[day.String()] = []int{int(window.Start), int(window.End)}
		}
		doc.Slots = &slotConfigDocument{
			SlotDurationMinutes: l.Slots.SlotDurationMinutes,
			OperatingHours:      hours,
			MinBookingSlots:     l.Slots.MinBookingSlots,
			MaxBookingSlots:     l.Slots.MaxBookingSlots,
			BufferMinutes:       l.Slots.BufferMinutes,
			PricePerSlot:        newMoneyDocument(l.Slots.PricePerSlot),
		}
	}
	return doc
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	l := &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		Host:        domainlistings.HostID(d.Host),
		Title:       d.Title,
		Description: d.Description,
		BookingType: domainlistings.BookingType(d.BookingType),
		DailyRate:   d.DailyRate.toMoney(),
		State:       domainlistings.ListingState(d.State),
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
		Version:     d.Version,
	}
	if d.Slots != nil {
		hours := make(map[time.Weekday]timeofday.Range, len(d.Slots.OperatingHours))
		for name, window := range d.Slots.OperatingHours {
			day, ok := weekdayFromName(name)
			if !ok || len(window) != 2 {
				continue
			}
			hours[day] = timeofday.Range{Start: timeofday.Minutes(window[0]), End: timeofday.Minutes(window[1])}
		}
		l.Slots = &domainlistings.SlotConfiguration{
			SlotDurationMinutes: d.Slots.SlotDurationMinutes,
			OperatingHours:      hours,
			MinBookingSlots:     d.Slots.MinBookingSlots,
			MaxBookingSlots:     d.Slots.MaxBookingSlots,
			BufferMinutes:       d.Slots.BufferMinutes,
			PricePerSlot:        d.Slots.PricePerSlot.toMoney(),
		}
	}
	return l
}

func weekdayFromName(name string) (time.Weekday, bool) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if day.String() == name {
			return day, true
		}
	}
	return 0, false
}
