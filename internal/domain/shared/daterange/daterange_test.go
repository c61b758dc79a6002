package daterange

import (
	"errors"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestNewRejectsInvertedRange(t *testing.T) {
	if _, err := New(day(5), day(3)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("New(inverted) = %v, want ErrInvalidRange", err)
	}
	if _, err := New(day(3), day(3)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("New(empty) = %v, want ErrInvalidRange", err)
	}
}

func TestDays(t *testing.T) {
	dr, err := New(day(2), day(5))
	if err != nil {
		t.Fatal(err)
	}
	if got := dr.Days(); got != 3 {
		t.Fatalf("Days() = %d, want 3", got)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	a, _ := New(day(2), day(5))
	b, _ := New(day(5), day(7))
	if a.Overlaps(b) {
		t.Fatal("back-to-back ranges must not overlap")
	}
	c, _ := New(day(4), day(6))
	if !a.Overlaps(c) {
		t.Fatal("expected overlap on shared day 4")
	}
}

func TestNormalizeTruncatesToMidnight(t *testing.T) {
	dr, _ := New(
		time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 5, 9, 15, 0, 0, time.UTC),
	)
	n := dr.Normalize()
	if !n.Start.Equal(day(2)) || !n.End.Equal(day(5)) {
		t.Fatalf("Normalize() = %v..%v", n.Start, n.End)
	}
}

func TestContainsDate(t *testing.T) {
	dr, _ := New(day(2), day(5))
	if !dr.ContainsDate(day(2)) {
		t.Fatal("start must be contained")
	}
	if dr.ContainsDate(day(5)) {
		t.Fatal("end must be excluded")
	}
}
