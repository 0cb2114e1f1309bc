package dto

import (
	"time"

	domainbooking "tripnest/internal/domain/booking"
	"tripnest/internal/domain/shared/daterange"
)

type TargetRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type MoneyView struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// BookingView is the wire projection of a ledger entry. Timeframe is derived
// from the status partition: pending/confirmed are upcoming, the terminal
// statuses are past.
type BookingView struct {
	ID              string    `json:"id"`
	GuestID         string    `json:"guest_id"`
	Target          TargetRef `json:"target"`
	CheckIn         string    `json:"check_in,omitempty"`
	CheckOut        string    `json:"check_out,omitempty"`
	BookingDate     string    `json:"booking_date,omitempty"`
	BookingTime     string    `json:"booking_time,omitempty"`
	Guests          int       `json:"guests"`
	Total           MoneyView `json:"total_price"`
	Status          string    `json:"status"`
	Timeframe       string    `json:"timeframe"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
	Total int           `json:"total"`
}

func MapBooking(b *domainbooking.Booking) BookingView {
	view := BookingView{
		ID:              string(b.ID),
		GuestID:         b.GuestID,
		Target:          TargetRef{Kind: string(b.Target.Kind), ID: string(b.Target.ID)},
		Guests:          b.Guests,
		Total:           MoneyView{Amount: b.Total.Amount, Currency: b.Total.Currency},
		Status:          string(b.Status),
		Timeframe:       timeframe(b.Status),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Dates.IsStay() {
		view.CheckIn = b.Dates.Stay.CheckIn.Format(daterange.DayFormat)
		view.CheckOut = b.Dates.Stay.CheckOut.Format(daterange.DayFormat)
	} else {
		view.BookingDate = b.Dates.EventDate.Format(daterange.DayFormat)
		view.BookingTime = b.Dates.EventTime
	}
	return view
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	views := make([]BookingView, 0, len(items))
	for _, b := range items {
		views = append(views, MapBooking(b))
	}
	return BookingCollection{Items: views, Total: len(views)}
}

func timeframe(s domainbooking.Status) string {
	if s.Upcoming() {
		return "upcoming"
	}
	return "past"
}
