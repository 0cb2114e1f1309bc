package booking

import (
	"context"
	"strings"
	"time"

	"tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/daterange"
	"tripnest/internal/domain/shared/events"
	"tripnest/internal/domain/shared/fault"
	"tripnest/internal/domain/shared/money"
)

type BookingID string

// Target names the one bookable entity a booking refers to.
type Target struct {
	Kind listing.Kind
	ID   listing.ID
}

// Key is a stable identifier used for per-target admission serialization.
func (t Target) Key() string {
	return string(t.Kind) + ":" + string(t.ID)
}

// SlotFormat is the 24-hour wire format for experience slot times.
const SlotFormat = "15:04"

// DateSpec holds the booked dates: a half-open stay range for accommodations,
// or a single event date (plus optional slot time) for experiences. Exactly
// one of the two shapes is set.
type DateSpec struct {
	Stay      daterange.DateRange
	EventDate time.Time
	EventTime string
}

func StayOver(dr daterange.DateRange) DateSpec {
	return DateSpec{Stay: dr}
}

func EventOn(date time.Time, slot string) DateSpec {
	return DateSpec{EventDate: daterange.Day(date), EventTime: strings.TrimSpace(slot)}
}

func (s DateSpec) IsStay() bool {
	return !s.Stay.IsZero()
}

// Validate checks the date shape against the target kind.
func (s DateSpec) Validate(kind listing.Kind) error {
	switch kind {
	case listing.KindAccommodation:
		if !s.EventDate.IsZero() || s.EventTime != "" {
			return fault.New(fault.Validation, "accommodation bookings take a check-in and check-out range")
		}
		if err := s.Stay.Validate(); err != nil {
			return fault.Wrap(fault.Validation, err, "invalid stay dates")
		}
	case listing.KindExperience:
		if s.IsStay() {
			return fault.New(fault.Validation, "experience bookings take a single booking date")
		}
		if s.EventDate.IsZero() {
			return fault.New(fault.Validation, "booking date is required")
		}
		if s.EventTime != "" {
			if _, err := time.Parse(SlotFormat, s.EventTime); err != nil {
				return fault.New(fault.Validation, "booking time must be formatted as HH:MM")
			}
		}
	default:
		return fault.Newf(fault.Validation, "unknown target kind %q", kind)
	}
	return nil
}

// Intersects reports whether two specs compete for the same capacity: range
// overlap for stays, same date (and same slot, when both declare one) for
// events.
func (s DateSpec) Intersects(other DateSpec) bool {
	if s.IsStay() != other.IsStay() {
		return false
	}
	if s.IsStay() {
		return s.Stay.Overlaps(other.Stay)
	}
	if !s.EventDate.Equal(other.EventDate) {
		return false
	}
	if s.EventTime != "" && other.EventTime != "" {
		return s.EventTime == other.EventTime
	}
	return true
}

// StartAt returns the moment the booked dates begin, used for cancellation
// window policy.
func (s DateSpec) StartAt() time.Time {
	if s.IsStay() {
		return s.Stay.CheckIn
	}
	start := s.EventDate
	if s.EventTime != "" {
		if clock, err := time.Parse(SlotFormat, s.EventTime); err == nil {
			start = start.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
		}
	}
	return start
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", fault.Newf(fault.Validation, "unknown booking status %q", value)
	}
}

// ActiveStatuses are the statuses that hold capacity against a target.
// Cancelled and completed bookings release it.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed}
}

// Upcoming reports the derived timeframe partition: pending and confirmed
// bookings are upcoming, cancelled and completed are past.
func (s Status) Upcoming() bool {
	return s == StatusPending || s == StatusConfirmed
}

var transitions = map[Status]map[Status]struct{}{
	StatusPending:   {StatusConfirmed: {}, StatusCancelled: {}},
	StatusConfirmed: {StatusCompleted: {}, StatusCancelled: {}},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Booking is a ledger entry. Status only changes through the transition
// methods below; the ledger is never mutated around the state machine.
type Booking struct {
	ID              BookingID
	GuestID         string
	Target          Target
	Dates           DateSpec
	Guests          int
	Total           money.Money
	Status          Status
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type CreateParams struct {
	ID              BookingID
	GuestID         string
	Target          Target
	Dates           DateSpec
	Guests          int
	Total           money.Money
	SpecialRequests string
	CreatedAt       time.Time
}

func New(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, fault.New(fault.Validation, "booking id is required")
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, fault.New(fault.Validation, "booking owner is required")
	}
	if params.Guests < 1 {
		return nil, fault.New(fault.Validation, "guests count must be positive")
	}
	if err := params.Dates.Validate(params.Target.Kind); err != nil {
		return nil, err
	}
	if params.Total.Amount < 0 {
		return nil, fault.New(fault.Validation, "total price cannot be negative")
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		GuestID:         params.GuestID,
		Target:          params.Target,
		Dates:           params.Dates,
		Guests:          params.Guests,
		Total:           params.Total,
		Status:          StatusPending,
		SpecialRequests: strings.TrimSpace(params.SpecialRequests),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingRequested{BookingID: b.ID, Target: b.Target, GuestID: b.GuestID, GuestsCount: b.Guests, Total: b.Total, At: now})
	return b, nil
}

func (b *Booking) transition(to Status, now time.Time) error {
	if !CanTransition(b.Status, to) {
		return fault.Newf(fault.InvalidTransition, "cannot move booking from %q to %q", b.Status, to)
	}
	b.Status = to
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	b.Record(BookingConfirmed{BookingID: b.ID, Target: b.Target, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if err := b.transition(StatusCancelled, now); err != nil {
		return err
	}
	b.Record(BookingCancelled{BookingID: b.ID, Target: b.Target, Reason: reason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if err := b.transition(StatusCompleted, now); err != nil {
		return err
	}
	b.Record(BookingCompleted{BookingID: b.ID, Target: b.Target, At: b.UpdatedAt})
	return nil
}

// TransitionTo applies the requested status through the matching transition
// method so the right event is recorded.
func (b *Booking) TransitionTo(to Status, reason string, now time.Time) error {
	switch to {
	case StatusConfirmed:
		return b.Confirm(now)
	case StatusCancelled:
		return b.Cancel(reason, now)
	case StatusCompleted:
		return b.Complete(now)
	default:
		return fault.Newf(fault.InvalidTransition, "cannot move booking from %q to %q", b.Status, to)
	}
}

// Filter narrows ledger reads for listing projections.
type Filter struct {
	GuestID  string
	Statuses []Status
	Target   *Target
}

func (f Filter) MatchesStatus(s Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, candidate := range f.Statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Insert persists a brand new ledger entry. The caller holds the
	// per-target admission guard, so insert-after-check is race free.
	Insert(ctx context.Context, b *Booking) error
	Save(ctx context.Context, b *Booking) error
	List(ctx context.Context, filter Filter) ([]*Booking, error)
	// ActiveForTarget returns the pending and confirmed bookings of the
	// target whose dates intersect the given spec.
	ActiveForTarget(ctx context.Context, target Target, dates DateSpec) ([]*Booking, error)
}
