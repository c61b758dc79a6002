package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "rentloop/internal/domain/availability"
	domainlistings "rentloop/internal/domain/listings"
	domainrange "rentloop/internal/domain/shared/daterange"
	"rentloop/internal/domain/shared/timeofday"
)

// AvailabilityIndex stores one calendar document per listing. TryReserve is a
// single filtered update: the filter asserts no conflicting hold exists and
// the update pushes the new one, so two racing reservations cannot both
// match — the loser either matches nothing or trips the _id unique index.
type AvailabilityIndex struct {
	col *mongo.Collection
}

func NewAvailabilityIndex(db *mongo.Database) *AvailabilityIndex {
	return &AvailabilityIndex{col: db.Collection("cal_availability")}
}

func (idx *AvailabilityIndex) TryReserve(ctx context.Context, hold domainavailability.ReservedRange) error {
	doc := newHoldDocument(hold)

	conflict := bson.M{
		"start": bson.M{"$lt": doc.End},
		"end":   bson.M{"$gt": doc.Start},
	}
	if !hold.WholeDay() {
		conflict["$or"] = bson.A{
			bson.M{"whole_day": true},
			bson.M{"slot_start": bson.M{"$lt": doc.SlotEnd}, "slot_end": bson.M{"$gt": doc.SlotStart}},
		}
	}
	filter := bson.M{
		"_id":   string(hold.ListingID),
		"holds": bson.M{"$not": bson.M{"$elemMatch": conflict}},
	}
	update := bson.M{"$push": bson.M{"holds": doc}}
	opts := options.Update().SetUpsert(true)
	res, err := idx.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		// The upsert collides with the existing calendar doc exactly when
		// the conflict filter excluded it.
		if mongo.IsDuplicateKeyError(err) {
			return idx.conflictError(ctx, hold)
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return idx.conflictError(ctx, hold)
	}
	return nil
}

// conflictError re-reads the calendar to name the hold the reservation lost
// to. The lookup is best effort; when the doc cannot be read the error still
// carries the listing.
func (idx *AvailabilityIndex) conflictError(ctx context.Context, hold domainavailability.ReservedRange) error {
	conflict := &domainavailability.ConflictError{ListingID: hold.ListingID}
	var doc calendarDocument
	if err := idx.col.FindOne(ctx, bson.M{"_id": string(hold.ListingID)}).Decode(&doc); err == nil {
		conflict.BookingID = conflictingBookingID(hold.ListingID, doc.Holds, hold)
	}
	return conflict
}

// conflictingBookingID returns the id of the first stored hold overlapping
// the candidate, or "" when none does.
func conflictingBookingID(id domainlistings.ListingID, holds []holdDocument, candidate domainavailability.ReservedRange) string {
	for _, h := range holds {
		if h.toHold(id).Conflicts(candidate) {
			return h.BookingID
		}
	}
	return ""
}

func (idx *AvailabilityIndex) Release(ctx context.Context, bookingID string) error {
	filter := bson.M{"holds.booking_id": bookingID}
	update := bson.M{"$pull": bson.M{"holds": bson.M{"booking_id": bookingID}}}
	_, err := idx.col.UpdateMany(ctx, filter, update)
	return err
}

func (idx *AvailabilityIndex) RangesFor(ctx context.Context, id domainlistings.ListingID) ([]domainavailability.ReservedRange, error) {
	var doc calendarDocument
	if err := idx.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]domainavailability.ReservedRange, 0, len(doc.Holds))
	for _, h := range doc.Holds {
		out = append(out, h.toHold(id))
	}
	return out, nil
}

type calendarDocument struct {
	ID    string         `bson:"_id"`
	Holds []holdDocument `bson:"holds"`
}

type holdDocument struct {
	BookingID string `bson:"booking_id"`
	Start     int64  `bson:"start"`
	End       int64  `bson:"end"`
	WholeDay  bool   `bson:"whole_day"`
	SlotStart int    `bson:"slot_start"`
	SlotEnd   int    `bson:"slot_end"`
	CreatedAt int64  `bson:"created_at"`
}

func newHoldDocument(hold domainavailability.ReservedRange) holdDocument {
	return holdDocument{
		BookingID: hold.BookingID,
		Start:     hold.Range.Start.UnixMilli(),
		End:       hold.Range.End.UnixMilli(),
		WholeDay:  hold.WholeDay(),
		SlotStart: int(hold.Slot.Start),
		SlotEnd:   int(hold.Slot.End),
		CreatedAt: hold.CreatedAt.UnixMilli(),
	}
}

func (d holdDocument) toHold(id domainlistings.ListingID) domainavailability.ReservedRange {
	hold := domainavailability.ReservedRange{
		ListingID: id,
		Range:     domainrange.DateRange{Start: timestampToTime(d.Start), End: timestampToTime(d.End)},
		BookingID: d.BookingID,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
	if !d.WholeDay {
		hold.Slot = timeofday.Range{Start: timeofday.Minutes(d.SlotStart), End: timeofday.Minutes(d.SlotEnd)}
	}
	return hold
}
