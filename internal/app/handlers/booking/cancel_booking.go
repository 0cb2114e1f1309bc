package booking

import (
	"context"
	"time"

	"tripnest/internal/app/commands"
	"tripnest/internal/app/dto"
	handlersupport "tripnest/internal/app/handlers/support"
	"tripnest/internal/app/outbox"
	"tripnest/internal/app/uow"
	domainbooking "tripnest/internal/domain/booking"
	"tripnest/internal/domain/identity"
	"tripnest/internal/domain/shared/fault"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID string
	Actor     identity.Actor
	Reason    string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingResult struct {
	Booking dto.BookingView `json:"booking"`
}

type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Policy     domainbooking.CancellationPolicy
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

// Handle cancels a booking on behalf of its owner or an operator. Capacity
// held by the booking is released implicitly: the availability checker skips
// cancelled entries.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
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

	entry, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}

	operator := cmd.Actor.Can(identity.ManageBookings)
	if !operator && !cmd.Actor.Owns(entry.GuestID) {
		return nil, fault.New(fault.Forbidden, "not allowed to cancel this booking")
	}

	now := time.Now().UTC()
	if !operator {
		if err := h.Policy.AllowOwnerCancel(entry, now); err != nil {
			return nil, err
		}
	}

	if err := entry.Cancel(cmd.Reason, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(execCtx, entry); err != nil {
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

	return &CancelBookingResult{Booking: dto.MapBooking(entry)}, nil
}

func (h *CancelBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
