package booking

import (
	"context"
	"time"

	"tripnest/internal/app/commands"
	"tripnest/internal/app/dto"
	handlersupport "tripnest/internal/app/handlers/support"
	"tripnest/internal/app/middleware"
	"tripnest/internal/app/outbox"
	"tripnest/internal/app/policies"
	"tripnest/internal/app/uow"
	domainbooking "tripnest/internal/domain/booking"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/fault"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	CommandID       string
	GuestID         string
	TargetKind      string
	TargetID        string
	CheckIn         time.Time
	CheckOut        time.Time
	BookingDate     time.Time
	BookingTime     string
	Guests          int
	SpecialRequests string
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

type CreateBookingResult struct {
	Booking dto.BookingView `json:"booking"`
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Guard      policies.AdmissionGuard
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

// Handle admits a booking: validate, check availability and insert the
// pending ledger entry while holding the per-target admission guard, so no
// two concurrent requests for the same target can both pass the check.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	kind, err := domainlisting.ParseKind(cmd.TargetKind)
	if err != nil {
		return nil, invalidKind(cmd.TargetKind)
	}
	if cmd.Guests < 1 {
		return nil, fault.New(fault.Validation, "guests count must be positive")
	}
	dates, err := buildDateSpec(kind, cmd.CheckIn, cmd.CheckOut, cmd.BookingDate, cmd.BookingTime)
	if err != nil {
		return nil, err
	}
	bookingTarget := domainbooking.Target{Kind: kind, ID: domainlisting.ID(cmd.TargetID)}

	if h.Guard != nil {
		release, err := h.Guard.Acquire(ctx, bookingTarget)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	unit, execCtx, cleanup, err := handlersupport.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	managed := cleanup != nil
	committed := false
	if managed {
		defer func() {
			if !committed {
				cleanup()
			}
		}()
	}

	target, err := unit.Listings().ByID(execCtx, kind, bookingTarget.ID)
	if err != nil {
		return nil, err
	}

	checker := domainbooking.AvailabilityChecker{Bookings: unit.Bookings()}
	availability, err := checker.Check(execCtx, target, dates, cmd.Guests)
	if err != nil {
		return nil, err
	}
	if !availability.Available {
		return nil, fault.New(fault.Unavailable, availability.Reason)
	}

	total, err := domainbooking.QuoteTotal(target, dates, cmd.Guests)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry, err := domainbooking.New(domainbooking.CreateParams{
		ID:              domainbooking.BookingID(cmd.CommandID),
		GuestID:         cmd.GuestID,
		Target:          bookingTarget,
		Dates:           dates,
		Guests:          cmd.Guests,
		Total:           total,
		SpecialRequests: cmd.SpecialRequests,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Insert(execCtx, entry); err != nil {
		return nil, err
	}

	pending := entry.PendingEvents()
	entry.ClearEvents()
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &CreateBookingResult{Booking: dto.MapBooking(entry)}, nil
}

func (h *CreateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
