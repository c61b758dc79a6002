package dto

import (
	"time"

	"rentloop/internal/domain/availability"
)

type ReservedRangeView struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	BookingID string    `json:"booking_id"`
}

type Calendar struct {
	ListingID string              `json:"listing_id"`
	Reserved  []ReservedRangeView `json:"reserved"`
}

func MapCalendar(listingID string, holds []availability.ReservedRange) Calendar {
	reserved := make([]ReservedRangeView, 0, len(holds))
	for _, h := range holds {
		view := ReservedRangeView{
			Start:     h.Range.Start,
			End:       h.Range.End,
			BookingID: h.BookingID,
		}
		if !h.WholeDay() {
			view.StartTime = h.Slot.Start.String()
			view.EndTime = h.Slot.End.String()
		}
		reserved = append(reserved, view)
	}
	return Calendar{ListingID: listingID, Reserved: reserved}
}

type SlotView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DaySlots struct {
	ListingID string     `json:"listing_id"`
	Date      string     `json:"date"`
	Open      bool       `json:"open"`
	Slots     []SlotView `json:"slots"`
}
