package timeofday

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Minutes
		ok   bool
	}{
		{"00:00", 0, true},
		{"08:30", 510, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"9:00", 0, false},
		{"09-00", 0, false},
		{"ab:cd", 0, false},
		{"", 0, false},
		{"09:00 ", 0, false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("Parse(%q) unexpected error: %v", tc.in, err)
			} else if got != tc.want {
				t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidFormat", tc.in, err)
		}
	}
}

func TestMinutesString(t *testing.T) {
	if got := Minutes(510).String(); got != "08:30" {
		t.Fatalf("String() = %q, want 08:30", got)
	}
}

func TestRangeValidate(t *testing.T) {
	if _, err := ParseRange("10:00", "09:00"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("inverted range: %v, want ErrInvalidRange", err)
	}
	if _, err := ParseRange("10:00", "10:00"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("empty range: %v, want ErrInvalidRange", err)
	}
	if _, err := ParseRange("10:00", "11:00"); err != nil {
		t.Fatalf("valid range: %v", err)
	}
}

func TestRangeOverlaps(t *testing.T) {
	base := Range{Start: MustParse("10:00"), End: MustParse("12:00")}
	cases := []struct {
		other Range
		want  bool
	}{
		{Range{MustParse("11:00"), MustParse("13:00")}, true},
		{Range{MustParse("09:00"), MustParse("10:30")}, true},
		{Range{MustParse("10:00"), MustParse("12:00")}, true},
		{Range{MustParse("12:00"), MustParse("13:00")}, false}, // touching, half-open
		{Range{MustParse("08:00"), MustParse("10:00")}, false},
	}
	for _, tc := range cases {
		if got := base.Overlaps(tc.other); got != tc.want {
			t.Errorf("%s.Overlaps(%s) = %v, want %v", base, tc.other, got, tc.want)
		}
	}
}

func TestRangePadClamps(t *testing.T) {
	r := Range{Start: MustParse("00:10"), End: MustParse("23:55")}
	padded := r.Pad(30)
	if padded.Start != 0 {
		t.Fatalf("padded start = %d, want 0", padded.Start)
	}
	if padded.End != DayEnd {
		t.Fatalf("padded end = %d, want %d", padded.End, DayEnd)
	}
}
