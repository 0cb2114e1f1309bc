package daterange

import (
	"testing"
	"time"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := ParseDay(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestOverlapsHalfOpen(t *testing.T) {
	tests := []struct {
		name    string
		aIn     string
		aOut    string
		bIn     string
		bOut    string
		overlap bool
	}{
		{"identical ranges", "2024-06-01", "2024-06-05", "2024-06-01", "2024-06-05", true},
		{"partial overlap", "2024-06-01", "2024-06-05", "2024-06-03", "2024-06-08", true},
		{"contained range", "2024-06-01", "2024-06-10", "2024-06-03", "2024-06-05", true},
		{"single shared night", "2024-06-01", "2024-06-05", "2024-06-04", "2024-06-06", true},
		{"checkout equals checkin", "2024-06-01", "2024-06-05", "2024-06-05", "2024-06-08", false},
		{"checkin equals checkout", "2024-06-05", "2024-06-08", "2024-06-01", "2024-06-05", false},
		{"disjoint", "2024-06-01", "2024-06-03", "2024-06-10", "2024-06-12", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(day(t, tt.aIn), day(t, tt.aOut))
			if err != nil {
				t.Fatalf("range a: %v", err)
			}
			b, err := New(day(t, tt.bIn), day(t, tt.bOut))
			if err != nil {
				t.Fatalf("range b: %v", err)
			}
			if got := a.Overlaps(b); got != tt.overlap {
				t.Errorf("Overlaps() = %v, want %v", got, tt.overlap)
			}
			if got := b.Overlaps(a); got != tt.overlap {
				t.Errorf("Overlaps() reversed = %v, want %v", got, tt.overlap)
			}
		})
	}
}

func TestNewRejectsInvertedRange(t *testing.T) {
	if _, err := New(day(t, "2024-06-05"), day(t, "2024-06-01")); err == nil {
		t.Fatal("expected error for check-out before check-in")
	}
	if _, err := New(day(t, "2024-06-05"), day(t, "2024-06-05")); err == nil {
		t.Fatal("expected error for zero-night range")
	}
}

func TestNights(t *testing.T) {
	tests := []struct {
		in     string
		out    string
		nights int
	}{
		{"2024-06-01", "2024-06-02", 1},
		{"2024-06-01", "2024-06-05", 4},
		{"2024-06-01", "2024-07-01", 30},
	}
	for _, tt := range tests {
		dr, err := New(day(t, tt.in), day(t, tt.out))
		if err != nil {
			t.Fatalf("New(%s, %s): %v", tt.in, tt.out, err)
		}
		if got := dr.Nights(); got != tt.nights {
			t.Errorf("Nights(%s, %s) = %d, want %d", tt.in, tt.out, got, tt.nights)
		}
	}
}

func TestParseNormalizesToUTCMidnight(t *testing.T) {
	dr, err := Parse("2024-06-01", "2024-06-03")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if dr.CheckIn.Hour() != 0 || dr.CheckIn.Location() != time.UTC {
		t.Errorf("CheckIn not UTC midnight: %v", dr.CheckIn)
	}
	if _, err := Parse("June 1st", "2024-06-03"); err == nil {
		t.Error("expected error for malformed date")
	}
}
