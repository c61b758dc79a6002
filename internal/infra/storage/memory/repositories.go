// Package memory provides in-process implementations of the storage ports,
// used by tests and by single-node deployments that do not need Mongo.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainpayouts "rentloop/internal/domain/payouts"
)

// ListingRepository is an in-memory listing store.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

// ByID returns a listing or listings.ErrListingNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return listing, nil
}

// Save stores/updates a listing entry.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = listing
	return nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)

// BookingRepository is an in-memory booking store.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items: make(map[domainbooking.BookingID]*domainbooking.Booking),
	}
}

// ByID returns a booking or booking.ErrBookingNotFound.
func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Version++
	r.items[b.ID] = b
	return nil
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		return b.RenterID == renterID
	})
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		return b.HostID == hostID
	})
}

func (r *BookingRepository) ListPayableByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		if b.HostID != hostID || !b.Paid {
			return false
		}
		return b.Status == domainbooking.StatusPaid || b.Status == domainbooking.StatusCompleted
	})
}

func (r *BookingRepository) ListElapsed(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		return b.Status == domainbooking.StatusPaid && !b.Range.End.After(cutoff)
	})
}

func (r *BookingRepository) list(match func(*domainbooking.Booking) bool) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)

// PayoutRepository is an in-memory payout store.
type PayoutRepository struct {
	mu    sync.RWMutex
	items map[domainpayouts.PayoutID]*domainpayouts.Payout
}

func NewPayoutRepository() *PayoutRepository {
	return &PayoutRepository{
		items: make(map[domainpayouts.PayoutID]*domainpayouts.Payout),
	}
}

func (r *PayoutRepository) ByID(ctx context.Context, id domainpayouts.PayoutID) (*domainpayouts.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainpayouts.ErrPayoutNotFound
	}
	return p, nil
}

func (r *PayoutRepository) Save(ctx context.Context, p *domainpayouts.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
	return nil
}

func (r *PayoutRepository) ListByHost(ctx context.Context, hostID string) ([]*domainpayouts.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainpayouts.Payout, 0)
	for _, p := range r.items {
		if p.HostID == hostID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

var _ domainpayouts.Repository = (*PayoutRepository)(nil)
