package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"tripnest/internal/app/commands"
	"tripnest/internal/app/middleware"
	"tripnest/internal/app/policies"
	domainbooking "tripnest/internal/domain/booking"
	"tripnest/internal/domain/identity"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/daterange"
	"tripnest/internal/domain/shared/fault"
	"tripnest/internal/infra/storage/memory"
)

type testEnv struct {
	factory  memory.Factory
	listings *memory.ListingRepository
	bookings *memory.BookingRepository
	guard    policies.AdmissionGuard
	outbox   *memory.Outbox
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	listings := memory.NewListingRepository()
	bookings := memory.NewBookingRepository()
	env := testEnv{
		factory:  memory.Factory{ListingsRepo: listings, BookingsRepo: bookings},
		listings: listings,
		bookings: bookings,
		guard:    memory.NewAdmissionLocks(),
		outbox:   memory.NewOutbox(),
	}
	seed := []domainlisting.CreateParams{
		{ID: "acc-1", Kind: domainlisting.KindAccommodation, Title: "City flat", MaxGuests: 4, PriceCents: 10000, Currency: "EUR"},
		{ID: "exp-1", Kind: domainlisting.KindExperience, Title: "Wine tour", MaxGuests: 10, PriceCents: 5000, Currency: "EUR"},
	}
	for _, params := range seed {
		item, err := domainlisting.New(params)
		if err != nil {
			t.Fatalf("seed listing %s: %v", params.ID, err)
		}
		if err := listings.Save(context.Background(), item); err != nil {
			t.Fatalf("save listing %s: %v", params.ID, err)
		}
	}
	return env
}

func (e testEnv) createHandler() *CreateBookingHandler {
	return &CreateBookingHandler{UoWFactory: e.factory, Guard: e.guard, Outbox: e.outbox}
}

func (e testEnv) cancelHandler(window time.Duration) *CancelBookingHandler {
	return &CancelBookingHandler{
		UoWFactory: e.factory,
		Policy:     domainbooking.CancellationPolicy{OwnerWindow: window},
		Outbox:     e.outbox,
	}
}

func (e testEnv) statusHandler() *UpdateStatusHandler {
	return &UpdateStatusHandler{UoWFactory: e.factory, Outbox: e.outbox}
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := daterange.ParseDay(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func stayCommand(t *testing.T, id, guest, in, out string, guests int) CreateBookingCommand {
	t.Helper()
	return CreateBookingCommand{
		CommandID:  id,
		GuestID:    guest,
		TargetKind: "accommodation",
		TargetID:   "acc-1",
		CheckIn:    day(t, in),
		CheckOut:   day(t, out),
		Guests:     guests,
	}
}

func operator(id string) identity.Actor {
	return identity.Actor{ID: id, Capabilities: []identity.Capability{identity.ManageBookings}}
}

func TestCreateBookingAdmitsPendingEntry(t *testing.T) {
	env := newTestEnv(t)
	handler := env.createHandler()

	result, err := handler.Handle(context.Background(), stayCommand(t, "bk-1", "guest-1", "2024-06-01", "2024-06-05", 2))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	view := result.Booking
	if view.Status != "pending" {
		t.Errorf("status = %q, want pending", view.Status)
	}
	if view.Timeframe != "upcoming" {
		t.Errorf("timeframe = %q, want upcoming", view.Timeframe)
	}
	// 4 nights * 2 guests * 10000
	if view.Total.Amount != 80000 || view.Total.Currency != "EUR" {
		t.Errorf("total = %+v", view.Total)
	}
	if _, err := env.bookings.ByID(context.Background(), "bk-1"); err != nil {
		t.Errorf("ledger entry missing: %v", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	env := newTestEnv(t)
	handler := env.createHandler()

	tests := []struct {
		name string
		cmd  CreateBookingCommand
		kind fault.Kind
	}{
		{"zero guests", stayCommand(t, "bk-z", "guest-1", "2024-06-01", "2024-06-05", 0), fault.Validation},
		{"unknown kind", CreateBookingCommand{CommandID: "bk-k", GuestID: "g", TargetKind: "boat", TargetID: "x", Guests: 1}, fault.Validation},
		{"missing dates", CreateBookingCommand{CommandID: "bk-d", GuestID: "g", TargetKind: "accommodation", TargetID: "acc-1", Guests: 1}, fault.Validation},
		{"unknown target", func() CreateBookingCommand {
			cmd := stayCommand(t, "bk-n", "guest-1", "2024-06-01", "2024-06-05", 2)
			cmd.TargetID = "acc-missing"
			return cmd
		}(), fault.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := handler.Handle(context.Background(), tt.cmd); !fault.IsKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	handler := env.createHandler()
	ctx := context.Background()

	if _, err := handler.Handle(ctx, stayCommand(t, "bk-1", "guest-1", "2024-06-10", "2024-06-15", 2)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := handler.Handle(ctx, stayCommand(t, "bk-2", "guest-2", "2024-06-12", "2024-06-16", 2))
	if !fault.IsKind(err, fault.Unavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err.Error() != domainbooking.ReasonDatesUnavailable {
		t.Errorf("message = %q", err.Error())
	}
	// Back-to-back stay is fine.
	if _, err := handler.Handle(ctx, stayCommand(t, "bk-3", "guest-3", "2024-06-15", "2024-06-18", 2)); err != nil {
		t.Errorf("adjacent create: %v", err)
	}
}

func TestCreateBookingExperienceCapacity(t *testing.T) {
	env := newTestEnv(t)
	handler := env.createHandler()
	ctx := context.Background()

	eventCmd := func(id, guest string, guests int) CreateBookingCommand {
		return CreateBookingCommand{
			CommandID:   id,
			GuestID:     guest,
			TargetKind:  "experience",
			TargetID:    "exp-1",
			BookingDate: day(t, "2024-06-20"),
			Guests:      guests,
		}
	}

	if _, err := handler.Handle(ctx, eventCmd("bk-1", "guest-1", 7)); err != nil {
		t.Fatalf("first group: %v", err)
	}
	if _, err := handler.Handle(ctx, eventCmd("bk-2", "guest-2", 4)); !fault.IsKind(err, fault.Unavailable) {
		t.Fatalf("expected capacity rejection, got %v", err)
	}
	if _, err := handler.Handle(ctx, eventCmd("bk-3", "guest-3", 3)); err != nil {
		t.Errorf("exact fill rejected: %v", err)
	}
}

func TestCancelReleasesCapacity(t *testing.T) {
	env := newTestEnv(t)
	create := env.createHandler()
	cancel := env.cancelHandler(0)
	ctx := context.Background()

	if _, err := create.Handle(ctx, stayCommand(t, "bk-1", "guest-1", "2024-06-10", "2024-06-15", 2)); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := cancel.Handle(ctx, CancelBookingCommand{
		BookingID: "bk-1",
		Actor:     identity.Actor{ID: "guest-1"},
		Reason:    "plans changed",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Booking.Status != "cancelled" || result.Booking.Timeframe != "past" {
		t.Errorf("view = %+v", result.Booking)
	}

	// The freed dates admit a new booking.
	if _, err := create.Handle(ctx, stayCommand(t, "bk-2", "guest-2", "2024-06-12", "2024-06-14", 2)); err != nil {
		t.Errorf("rebook after cancel: %v", err)
	}
}

func TestCancelAuthorization(t *testing.T) {
	env := newTestEnv(t)
	create := env.createHandler()
	cancel := env.cancelHandler(0)
	ctx := context.Background()

	if _, err := create.Handle(ctx, stayCommand(t, "bk-1", "guest-1", "2024-06-10", "2024-06-15", 2)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", Actor: identity.Actor{ID: "guest-2"}}); !fault.IsKind(err, fault.Forbidden) {
		t.Errorf("stranger cancel: expected forbidden, got %v", err)
	}
	if _, err := cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", Actor: operator("ops-1")}); err != nil {
		t.Errorf("operator cancel: %v", err)
	}
}

func TestCancelOwnerWindow(t *testing.T) {
	env := newTestEnv(t)
	create := env.createHandler()
	status := env.statusHandler()
	ctx := context.Background()

	// A confirmed booking starting within the window cannot be cancelled by
	// its owner.
	soon := time.Now().UTC().Add(24 * time.Hour)
	cmd := stayCommand(t, "bk-1", "guest-1", soon.Format(daterange.DayFormat), soon.Add(96*time.Hour).Format(daterange.DayFormat), 2)
	if _, err := create.Handle(ctx, cmd); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := status.Handle(ctx, UpdateStatusCommand{BookingID: "bk-1", Status: "confirmed", Actor: operator("ops-1")}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	cancel := env.cancelHandler(72 * time.Hour)
	if _, err := cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", Actor: identity.Actor{ID: "guest-1"}}); !fault.IsKind(err, fault.Forbidden) {
		t.Errorf("expected window rejection, got %v", err)
	}
	// The operator bypasses the window.
	if _, err := cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", Actor: operator("ops-1")}); err != nil {
		t.Errorf("operator cancel: %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	create := env.createHandler()
	status := env.statusHandler()
	ctx := context.Background()

	if _, err := create.Handle(ctx, stayCommand(t, "bk-1", "guest-1", "2024-06-10", "2024-06-15", 2)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := status.Handle(ctx, UpdateStatusCommand{BookingID: "bk-1", Status: "confirmed", Actor: identity.Actor{ID: "guest-1"}}); !fault.IsKind(err, fault.Forbidden) {
		t.Errorf("guest transition: expected forbidden, got %v", err)
	}
	if _, err := status.Handle(ctx, UpdateStatusCommand{BookingID: "bk-1", Status: "completed", Actor: operator("ops-1")}); !fault.IsKind(err, fault.InvalidTransition) {
		t.Errorf("pending->completed: expected invalid transition, got %v", err)
	}
	result, err := status.Handle(ctx, UpdateStatusCommand{BookingID: "bk-1", Status: "confirmed", Actor: operator("ops-1")})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Booking.Status != "confirmed" {
		t.Errorf("status = %q", result.Booking.Status)
	}
	if _, err := status.Handle(ctx, UpdateStatusCommand{BookingID: "bk-1", Status: "departed", Actor: operator("ops-1")}); !fault.IsKind(err, fault.Validation) {
		t.Errorf("unknown status: expected validation, got %v", err)
	}
}

func TestCheckAvailabilityDoesNotHoldCapacity(t *testing.T) {
	env := newTestEnv(t)
	check := &CheckAvailabilityHandler{UoWFactory: env.factory}
	create := env.createHandler()
	ctx := context.Background()

	query := CheckAvailabilityQuery{
		TargetKind: "accommodation",
		TargetID:   "acc-1",
		CheckIn:    day(t, "2024-06-10"),
		CheckOut:   day(t, "2024-06-15"),
		Guests:     2,
	}
	for i := 0; i < 3; i++ {
		result, err := check.Handle(ctx, query)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !result.Available {
			t.Fatalf("check %d: %q", i, result.Message)
		}
	}
	// Checking never held the dates.
	if _, err := create.Handle(ctx, stayCommand(t, "bk-1", "guest-1", "2024-06-10", "2024-06-15", 2)); err != nil {
		t.Errorf("create after checks: %v", err)
	}
	result, err := check.Handle(ctx, query)
	if err != nil {
		t.Fatalf("check after create: %v", err)
	}
	if result.Available || result.Message != domainbooking.ReasonDatesUnavailable {
		t.Errorf("result = %+v", result)
	}
}

func TestListBookingsScope(t *testing.T) {
	env := newTestEnv(t)
	create := env.createHandler()
	list := &ListBookingsHandler{UoWFactory: env.factory}
	ctx := context.Background()

	if _, err := create.Handle(ctx, stayCommand(t, "bk-1", "guest-1", "2024-06-01", "2024-06-03", 2)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := create.Handle(ctx, stayCommand(t, "bk-2", "guest-2", "2024-06-03", "2024-06-05", 2)); err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := list.Handle(ctx, ListBookingsQuery{Actor: identity.Actor{ID: "guest-1"}})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if mine.Total != 1 || mine.Items[0].ID != "bk-1" {
		t.Errorf("mine = %+v", mine)
	}

	if _, err := list.Handle(ctx, ListBookingsQuery{Actor: identity.Actor{ID: "guest-1"}, All: true}); !fault.IsKind(err, fault.Forbidden) {
		t.Errorf("guest listing all: expected forbidden, got %v", err)
	}
	all, err := list.Handle(ctx, ListBookingsQuery{Actor: operator("ops-1"), All: true})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if all.Total != 2 {
		t.Errorf("all.Total = %d", all.Total)
	}
}

func TestConcurrentCreateAdmitsExactlyOne(t *testing.T) {
	env := newTestEnv(t)
	handler := env.createHandler()
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			cmd := stayCommand(t, "bk-"+string(rune('a'+i)), "guest-1", "2024-06-10", "2024-06-15", 2)
			_, errs[i] = handler.Handle(ctx, cmd)
		}(i)
	}
	start.Done()
	wg.Wait()

	admitted := 0
	for i, err := range errs {
		switch {
		case err == nil:
			admitted++
		case fault.IsKind(err, fault.Unavailable):
		default:
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if admitted != 1 {
		t.Fatalf("admitted = %d, want exactly 1", admitted)
	}
}

func TestConcurrentLifecycleCommandsSerialize(t *testing.T) {
	env := newTestEnv(t)
	create := env.createHandler()
	cancel := env.cancelHandler(0)
	status := env.statusHandler()
	ctx := context.Background()

	if _, err := create.Handle(ctx, stayCommand(t, "bk-1", "guest-1", "2024-06-10", "2024-06-15", 2)); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var start sync.WaitGroup
	start.Add(1)
	var cancelErr, confirmErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		start.Wait()
		_, cancelErr = cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", Actor: operator("op-1"), Reason: "overbooked"})
	}()
	go func() {
		defer wg.Done()
		start.Wait()
		_, confirmErr = status.Handle(ctx, UpdateStatusCommand{BookingID: "bk-1", Status: "confirmed", Actor: operator("op-2")})
	}()
	start.Done()
	wg.Wait()

	for _, err := range []error{cancelErr, confirmErr} {
		if err == nil {
			continue
		}
		if !fault.IsKind(err, fault.Conflict) && !fault.IsKind(err, fault.InvalidTransition) {
			t.Errorf("unexpected error: %v", err)
		}
	}

	entry, err := env.bookings.ByID(ctx, "bk-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if entry.Status != domainbooking.StatusCancelled && entry.Status != domainbooking.StatusConfirmed {
		t.Errorf("status = %q, want cancelled or confirmed", entry.Status)
	}
	if cancelErr == nil && confirmErr != nil && entry.Status != domainbooking.StatusCancelled {
		t.Errorf("cancel won but ledger shows %q", entry.Status)
	}
	if confirmErr == nil && cancelErr != nil && entry.Status != domainbooking.StatusConfirmed {
		t.Errorf("confirm won but ledger shows %q", entry.Status)
	}
}

func TestCreateBookingIdempotencyReplay(t *testing.T) {
	env := newTestEnv(t)
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, CreateBookingCommand{}.Key(), env.createHandler())
	chained := middleware.ChainCommands(
		bus,
		middleware.Idempotency(memory.NewIdempotencyStore(), nil),
		middleware.Transaction(env.factory, nil),
	)
	ctx := context.Background()

	cmd := stayCommand(t, "bk-1", "guest-1", "2024-06-10", "2024-06-15", 2)
	cmd.IdempotencyKeyV = "req-abc"
	first, err := commands.Dispatch[CreateBookingCommand, *CreateBookingResult](ctx, chained, cmd)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}

	retry := cmd
	retry.CommandID = "bk-2"
	second, err := commands.Dispatch[CreateBookingCommand, *CreateBookingResult](ctx, chained, retry)
	if err != nil {
		t.Fatalf("replay dispatch: %v", err)
	}
	if second.Booking.ID != first.Booking.ID {
		t.Errorf("replay produced a different booking: %q vs %q", second.Booking.ID, first.Booking.ID)
	}
	entries, err := env.bookings.List(ctx, domainbooking.Filter{GuestID: "guest-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(entries))
	}
}
