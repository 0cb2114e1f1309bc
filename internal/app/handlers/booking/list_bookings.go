package booking

import (
	"context"
	"strings"

	"tripnest/internal/app/dto"
	handlersupport "tripnest/internal/app/handlers/support"
	"tripnest/internal/app/queries"
	"tripnest/internal/app/uow"
	domainbooking "tripnest/internal/domain/booking"
	"tripnest/internal/domain/identity"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/fault"
)

const listBookingsKey = "booking.list"

type ListBookingsQuery struct {
	Actor identity.Actor
	// All requests every guest's bookings; requires operator access.
	All        bool
	Statuses   []string
	TargetKind string
	TargetID   string
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle is a read-only projection over the ledger. Guests see their own
// bookings; operators may widen the scope to every guest.
func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	if q.All && !q.Actor.Can(identity.ManageBookings) {
		return dto.BookingCollection{}, fault.New(fault.Forbidden, "listing all bookings requires operator access")
	}
	filter := domainbooking.Filter{}
	if !q.All {
		if strings.TrimSpace(q.Actor.ID) == "" {
			return dto.BookingCollection{}, fault.New(fault.Forbidden, "authentication required")
		}
		filter.GuestID = q.Actor.ID
	}
	for _, raw := range q.Statuses {
		status, err := domainbooking.ParseStatus(raw)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if q.TargetID != "" {
		kind, err := domainlisting.ParseKind(q.TargetKind)
		if err != nil {
			return dto.BookingCollection{}, invalidKind(q.TargetKind)
		}
		filter.Target = &domainbooking.Target{Kind: kind, ID: domainlisting.ID(q.TargetID)}
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	items, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return dto.MapBookings(items), nil
}

var _ queries.Handler[ListBookingsQuery, dto.BookingCollection] = (*ListBookingsHandler)(nil)
