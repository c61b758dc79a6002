package memory

import (
	"context"
	"sync"

	domainavailability "rentloop/internal/domain/availability"
	domainlistings "rentloop/internal/domain/listings"
)

// AvailabilityIndex keeps reservation holds in memory. A single mutex guards
// the whole index so a check-then-insert pair is atomic: two goroutines racing
// for overlapping ranges serialize and exactly one wins.
type AvailabilityIndex struct {
	mu        sync.Mutex
	byListing map[domainlistings.ListingID][]domainavailability.ReservedRange
	byBooking map[string]domainlistings.ListingID
}

func NewAvailabilityIndex() *AvailabilityIndex {
	return &AvailabilityIndex{
		byListing: make(map[domainlistings.ListingID][]domainavailability.ReservedRange),
		byBooking: make(map[string]domainlistings.ListingID),
	}
}

func (idx *AvailabilityIndex) TryReserve(ctx context.Context, hold domainavailability.ReservedRange) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, existing := range idx.byListing[hold.ListingID] {
		if existing.Conflicts(hold) {
			return &domainavailability.ConflictError{
				ListingID: hold.ListingID,
				BookingID: existing.BookingID,
			}
		}
	}
	idx.byListing[hold.ListingID] = append(idx.byListing[hold.ListingID], hold)
	idx.byBooking[hold.BookingID] = hold.ListingID
	return nil
}

func (idx *AvailabilityIndex) Release(ctx context.Context, bookingID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	listingID, ok := idx.byBooking[bookingID]
	if !ok {
		return nil
	}
	holds := idx.byListing[listingID]
	kept := holds[:0]
	for _, h := range holds {
		if h.BookingID != bookingID {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(idx.byListing, listingID)
	} else {
		idx.byListing[listingID] = kept
	}
	delete(idx.byBooking, bookingID)
	return nil
}

func (idx *AvailabilityIndex) RangesFor(ctx context.Context, id domainlistings.ListingID) ([]domainavailability.ReservedRange, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	holds := idx.byListing[id]
	out := make([]domainavailability.ReservedRange, len(holds))
	copy(out, holds)
	return out, nil
}

var _ domainavailability.Index = (*AvailabilityIndex)(nil)
