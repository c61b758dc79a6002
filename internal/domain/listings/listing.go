package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentloop/internal/domain/shared/events"
	"rentloop/internal/domain/shared/money"
)

var (
	ErrTitleRequired    = errors.New("listings: title is required")
	ErrDailyRate        = errors.New("listings: daily rate must be non-negative")
	ErrSlotConfigNeeded = errors.New("listings: slot listings require a slot configuration")
	ErrInvalidState     = errors.New("listings: invalid state transition")
	ErrListingNotFound  = errors.New("listings: not found")
)

type ListingID string
type HostID string

type ListingState string

const (
	ListingDraft     ListingState = "DRAFT"
	ListingActive    ListingState = "ACTIVE"
	ListingSuspended ListingState = "SUSPENDED"
)

// BookingType selects the granularity a listing is rented at: whole calendar
// days or configured time slots within a day.
type BookingType string

const (
	BookDaily BookingType = "DAILY"
	BookSlot  BookingType = "SLOT"
)

type Listing struct {
	ID          ListingID
	Host        HostID
	Title       string
	Description string
	BookingType BookingType
	DailyRate   money.Money
	Slots       *SlotConfiguration
	State       ListingState
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateParams struct {
	ID          ListingID
	Host        HostID
	Title       string
	Description string
	BookingType BookingType
	DailyRate   money.Money
	Slots       *SlotConfiguration
	CreatedAt   time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	bt := params.BookingType
	if bt == "" {
		bt = BookDaily
	}
	switch bt {
	case BookDaily:
		if params.DailyRate.Amount < 0 {
			return nil, ErrDailyRate
		}
	case BookSlot:
		if params.Slots == nil {
			return nil, ErrSlotConfigNeeded
		}
		if err := params.Slots.Validate(); err != nil {
			return nil, err
		}
	}
	now := params.CreatedAt.UTC()
	l := &Listing{
		ID:          params.ID,
		Host:        params.Host,
		Title:       params.Title,
		Description: params.Description,
		BookingType: bt,
		DailyRate:   params.DailyRate,
		Slots:       params.Slots,
		State:       ListingDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return l, nil
}

func (l *Listing) Activate(now time.Time) error {
	if l.State == ListingActive {
		return nil
	}
	if l.State != ListingDraft && l.State != ListingSuspended {
		return ErrInvalidState
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) Suspend(now time.Time) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) IsActive() bool {
	return l.State == ListingActive
}

// SetSlotConfiguration replaces the slot configuration; host-facing edit,
// never called by the booking engine.
func (l *Listing) SetSlotConfiguration(cfg SlotConfiguration, now time.Time) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	l.Slots = &cfg
	l.BookingType = BookSlot
	l.UpdatedAt = now.UTC()
	return nil
}
