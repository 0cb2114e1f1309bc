package booking

import (
	"time"

	"tripnest/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID   BookingID   `json:"booking_id"`
	Target      Target      `json:"target"`
	GuestID     string      `json:"guest_id"`
	GuestsCount int         `json:"guests"`
	Total       money.Money `json:"total"`
	At          time.Time   `json:"at"`
}

func (e BookingRequested) EventName() string { return "booking.requested" }
func (e BookingRequested) AggregateID() string { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID `json:"booking_id"`
	Target    Target    `json:"target"`
	At        time.Time `json:"at"`
}

func (e BookingConfirmed) EventName() string { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID `json:"booking_id"`
	Target    Target    `json:"target"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e BookingCancelled) EventName() string { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID `json:"booking_id"`
	Target    Target    `json:"target"`
	At        time.Time `json:"at"`
}

func (e BookingCompleted) EventName() string { return "booking.completed" }
func (e BookingCompleted) AggregateID() string { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }
