package listings

import (
	"errors"
	"fmt"
	"time"

	"rentloop/internal/domain/shared/money"
	"rentloop/internal/domain/shared/timeofday"
)

var (
	ErrSlotDuration          = errors.New("listings: slot duration must be between 15 and 480 minutes")
	ErrMinBookingSlots       = errors.New("listings: minimum booking slots must be at least 1")
	ErrMaxBookingSlots       = errors.New("listings: maximum booking slots must be >= minimum")
	ErrBufferMinutes         = errors.New("listings: buffer minutes must be between 0 and 60")
	ErrSlotPrice             = errors.New("listings: price per slot cannot be negative")
	ErrOperatingHours        = errors.New("listings: at least one operating day is required")
	ErrDayClosed             = errors.New("listings: closed on the requested day")
	ErrOutsideOperatingHours = errors.New("listings: requested time is outside operating hours")
	ErrBelowMinimumSlots     = errors.New("listings: requested range is below the minimum booking slots")
	ErrAboveMaximumSlots     = errors.New("listings: requested range exceeds the maximum booking slots")
)

// SlotConfiguration describes how a listing's day is cut into bookable slots.
// Owned by the listing; read-only to the booking engine. Operating hours are
// kept pre-parsed as minute windows so validation never re-reads HH:mm text.
type SlotConfiguration struct {
	SlotDurationMinutes int
	OperatingHours      map[time.Weekday]timeofday.Range
	MinBookingSlots     int
	MaxBookingSlots     int // 0 means unbounded
	BufferMinutes       int
	PricePerSlot        money.Money
}

// ParseOperatingHours builds the weekday window map from "HH:mm" pairs keyed
// by lowercase English day names, the shape host-facing clients submit.
func ParseOperatingHours(raw map[string][2]string) (map[time.Weekday]timeofday.Range, error) {
	out := make(map[time.Weekday]timeofday.Range, len(raw))
	for name, window := range raw {
		day, ok := weekdayByName[name]
		if !ok {
			return nil, fmt.Errorf("listings: unknown weekday %q", name)
		}
		r, err := timeofday.ParseRange(window[0], window[1])
		if err != nil {
			return nil, err
		}
		out[day] = r
	}
	return out, nil
}

var weekdayByName = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

func (c SlotConfiguration) Validate() error {
	if c.SlotDurationMinutes < 15 || c.SlotDurationMinutes > 480 {
		return ErrSlotDuration
	}
	if c.MinBookingSlots < 1 {
		return ErrMinBookingSlots
	}
	if c.MaxBookingSlots != 0 && c.MaxBookingSlots < c.MinBookingSlots {
		return ErrMaxBookingSlots
	}
	if c.BufferMinutes < 0 || c.BufferMinutes > 60 {
		return ErrBufferMinutes
	}
	if c.PricePerSlot.Amount < 0 {
		return ErrSlotPrice
	}
	if len(c.OperatingHours) == 0 {
		return ErrOperatingHours
	}
	for _, window := range c.OperatingHours {
		if err := window.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Window returns the operating window for a date's weekday, false when closed.
func (c SlotConfiguration) Window(date time.Time) (timeofday.Range, bool) {
	w, ok := c.OperatingHours[date.UTC().Weekday()]
	return w, ok
}

// SlotsFor partitions the date's operating window into fixed-duration slots,
// inserting the buffer after each slot and dropping a trailing partial slot.
// A closed day yields nil.
func (c SlotConfiguration) SlotsFor(date time.Time) []timeofday.Range {
	window, open := c.Window(date)
	if !open {
		return nil
	}
	step := timeofday.Minutes(c.SlotDurationMinutes + c.BufferMinutes)
	dur := timeofday.Minutes(c.SlotDurationMinutes)
	var slots []timeofday.Range
	for start := window.Start; start+dur <= window.End; start += step {
		slots = append(slots, timeofday.Range{Start: start, End: start + dur})
	}
	return slots
}

// SlotCount reports how many slots a requested window spans, rounding up so a
// partial slot is charged and bounded as a whole one.
func (c SlotConfiguration) SlotCount(r timeofday.Range) int {
	dur := int(r.Duration())
	return (dur + c.SlotDurationMinutes - 1) / c.SlotDurationMinutes
}

// ValidateRange checks a requested time window for a given date against
// operating hours and the configured slot-count bounds.
func (c SlotConfiguration) ValidateRange(date time.Time, r timeofday.Range) error {
	if err := r.Validate(); err != nil {
		return err
	}
	window, open := c.Window(date)
	if !open {
		return fmt.Errorf("%w: %s", ErrDayClosed, date.UTC().Weekday())
	}
	if !window.Contains(r) {
		return fmt.Errorf("%w: %s outside %s", ErrOutsideOperatingHours, r, window)
	}
	slots := c.SlotCount(r)
	if slots < c.MinBookingSlots {
		return fmt.Errorf("%w: %d < %d", ErrBelowMinimumSlots, slots, c.MinBookingSlots)
	}
	if c.MaxBookingSlots != 0 && slots > c.MaxBookingSlots {
		return fmt.Errorf("%w: %d > %d", ErrAboveMaximumSlots, slots, c.MaxBookingSlots)
	}
	return nil
}

// Price quotes a requested window: slot count times the per-slot price.
func (c SlotConfiguration) Price(r timeofday.Range) money.Money {
	return c.PricePerSlot.Multiply(int64(c.SlotCount(r)))
}
