package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpayouts "rentloop/internal/domain/payouts"
)

type PayoutRepository struct {
	col *mongo.Collection
}

func NewPayoutRepository(db *mongo.Database) *PayoutRepository {
	col := db.Collection("agg_payout")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return &PayoutRepository{col: col}
}

func (r *PayoutRepository) ByID(ctx context.Context, id domainpayouts.PayoutID) (*domainpayouts.Payout, error) {
	var doc payoutDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpayouts.ErrPayoutNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PayoutRepository) Save(ctx context.Context, p *domainpayouts.Payout) error {
	doc := newPayoutDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
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
	p.Version = doc.Version
	return nil
}

func (r *PayoutRepository) ListByHost(ctx context.Context, hostID string) ([]*domainpayouts.Payout, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"host_id": hostID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainpayouts.Payout
	for cur.Next(ctx) {
		var doc payoutDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type payoutDocument struct {
	ID        string        `bson:"_id"`
	HostID    string        `bson:"host_id"`
	Amount    moneyDocument `bson:"amount"`
	Status    string        `bson:"status"`
	Method    string        `bson:"method"`
	Reference string        `bson:"reference"`
	CreatedAt int64         `bson:"created_at"`
	PaidAt    int64         `bson:"paid_at"`
	Version   int64         `bson:"version"`
}

func newPayoutDocument(p *domainpayouts.Payout) payoutDocument {
	doc := payoutDocument{
		ID:        string(p.ID),
		HostID:    p.HostID,
		Amount:    newMoneyDocument(p.Amount),
		Status:    string(p.Status),
		Method:    p.Method,
		Reference: p.Reference,
		CreatedAt: p.CreatedAt.UnixMilli(),
		Version:   p.Version,
	}
	if !p.PaidAt.IsZero() {
		doc.PaidAt = p.PaidAt.UnixMilli()
	}
	return doc
}

func (d payoutDocument) toAggregate() *domainpayouts.Payout {
	p := &domainpayouts.Payout{
		ID:        domainpayouts.PayoutID(d.ID),
		HostID:    d.HostID,
		Amount:    d.Amount.toMoney(),
		Status:    domainpayouts.PayoutStatus(d.Status),
		Method:    d.Method,
		Reference: d.Reference,
		CreatedAt: timestampToTime(d.CreatedAt),
		Version:   d.Version,
	}
	if d.PaidAt != 0 {
		p.PaidAt = timestampToTime(d.PaidAt)
	}
	return p
}
