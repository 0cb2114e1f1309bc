package booking

import (
	"context"
	"time"

	handlersupport "tripnest/internal/app/handlers/support"
	"tripnest/internal/app/queries"
	"tripnest/internal/app/uow"
	domainbooking "tripnest/internal/domain/booking"
	domainlisting "tripnest/internal/domain/listing"
)

const checkAvailabilityKey = "booking.check_availability"

type CheckAvailabilityQuery struct {
	TargetKind  string
	TargetID    string
	CheckIn     time.Time
	CheckOut    time.Time
	BookingDate time.Time
	BookingTime string
	Guests      int
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityResult struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle is a pure read: it never creates or holds capacity.
func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (CheckAvailabilityResult, error) {
	kind, err := domainlisting.ParseKind(q.TargetKind)
	if err != nil {
		return CheckAvailabilityResult{}, invalidKind(q.TargetKind)
	}
	dates, err := buildDateSpec(kind, q.CheckIn, q.CheckOut, q.BookingDate, q.BookingTime)
	if err != nil {
		return CheckAvailabilityResult{}, err
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return CheckAvailabilityResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	target, err := unit.Listings().ByID(execCtx, kind, domainlisting.ID(q.TargetID))
	if err != nil {
		return CheckAvailabilityResult{}, err
	}

	checker := domainbooking.AvailabilityChecker{Bookings: unit.Bookings()}
	result, err := checker.Check(execCtx, target, dates, q.Guests)
	if err != nil {
		return CheckAvailabilityResult{}, err
	}
	return CheckAvailabilityResult{Available: result.Available, Message: result.Reason}, nil
}

var _ queries.Handler[CheckAvailabilityQuery, CheckAvailabilityResult] = (*CheckAvailabilityHandler)(nil)
