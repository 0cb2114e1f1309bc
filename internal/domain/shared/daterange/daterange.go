package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
	ErrUnparseable  = errors.New("daterange: date must be formatted as YYYY-MM-DD")
)

// DayFormat is the calendar-date wire format used across the API.
const DayFormat = "2006-01-02"

// DateRange represents a half-open interval [checkIn, checkOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDay(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDay(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return New(in, out)
}

// ParseDay parses a single calendar date in the API wire format.
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(DayFormat, value)
	if err != nil {
		return time.Time{}, ErrUnparseable
	}
	return t.UTC(), nil
}

// Day truncates a timestamp to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.CheckIn.IsZero() || dr.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) IsZero() bool {
	return dr.CheckIn.IsZero() && dr.CheckOut.IsZero()
}

// Nights returns the number of nights covered by the range, at least 1 for a
// valid range.
func (dr DateRange) Nights() int {
	n := int(dr.CheckOut.Sub(dr.CheckIn).Hours() / 24)
	if n < 1 {
		n = 1
	}
	return n
}

// Overlaps reports half-open interval intersection: a shared boundary day
// (checkout == checkin) is not an overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// ContainsDate reports whether the day falls inside the half-open interval.
func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Day(t)
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}
