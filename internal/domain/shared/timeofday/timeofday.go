package timeofday

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat = errors.New("timeofday: time must be in HH:mm format")
	ErrInvalidRange  = errors.New("timeofday: end must be after start")
)

// Minutes counts minutes since midnight. Slot arithmetic stays in integers so
// slot boundaries never drift.
type Minutes int

const DayEnd Minutes = 24 * 60

// Parse reads a strict "HH:mm" string into Minutes.
func Parse(s string) (Minutes, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	h, ok1 := atoi2(s[0], s[1])
	m, ok2 := atoi2(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return Minutes(h*60 + m), nil
}

func MustParse(s string) Minutes {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Range is a half-open [start, end) window within one day.
type Range struct {
	Start Minutes
	End   Minutes
}

func NewRange(start, end Minutes) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func ParseRange(start, end string) (Range, error) {
	s, err := Parse(start)
	if err != nil {
		return Range{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Range{}, err
	}
	return NewRange(s, e)
}

func (r Range) Validate() error {
	if r.Start < 0 || r.End > DayEnd {
		return ErrInvalidRange
	}
	if r.End <= r.Start {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Duration() Minutes {
	return r.End - r.Start
}

func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Pad widens the window by pad minutes on both bounds, clamped to the day.
func (r Range) Pad(pad Minutes) Range {
	start := r.Start - pad
	if start < 0 {
		start = 0
	}
	end := r.End + pad
	if end > DayEnd {
		end = DayEnd
	}
	return Range{Start: start, End: end}
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

func atoi2(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}
