package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end must be after start")
)

// DateRange represents a half-open interval [start, end)
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: start.UTC(), End: end.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Days() int {
	return int(dr.End.Sub(dr.Start).Hours() / 24)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

func (dr DateRange) Contains(other DateRange) bool {
	return (dr.Start.Before(other.Start) || dr.Start.Equal(other.Start)) &&
		(dr.End.After(other.End) || dr.End.Equal(other.End))
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(dr.Start) || t.After(dr.Start)) && t.Before(dr.End)
}

// Normalize truncates both bounds to midnight UTC. Calendar-day bookings
// compare at day granularity regardless of the wall clock in the request.
func (dr DateRange) Normalize() DateRange {
	return DateRange{Start: StartOfDay(dr.Start), End: StartOfDay(dr.End)}
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
