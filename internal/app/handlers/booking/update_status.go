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

const updateStatusKey = "booking.update_status"

type UpdateStatusCommand struct {
	BookingID string
	Status    string
	Actor     identity.Actor
}

func (c UpdateStatusCommand) Key() string { return updateStatusKey }

type UpdateStatusResult struct {
	Booking dto.BookingView `json:"booking"`
}

type UpdateStatusHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

// Handle applies an operator-driven status transition. The state machine is
// the only mutation path; an unknown or disallowed transition is rejected
// without touching the ledger.
func (h *UpdateStatusHandler) Handle(ctx context.Context, cmd UpdateStatusCommand) (*UpdateStatusResult, error) {
	if !cmd.Actor.Can(identity.ManageBookings) {
		return nil, fault.New(fault.Forbidden, "managing bookings requires operator access")
	}
	status, err := domainbooking.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
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

	entry, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}

	if err := entry.TransitionTo(status, "", time.Now().UTC()); err != nil {
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

	return &UpdateStatusResult{Booking: dto.MapBooking(entry)}, nil
}

func (h *UpdateStatusHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[UpdateStatusCommand, *UpdateStatusResult] = (*UpdateStatusHandler)(nil)
