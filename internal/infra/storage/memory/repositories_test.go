package memory

import (
	"context"
	"testing"
	"time"

	domainbooking "tripnest/internal/domain/booking"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/daterange"
	"tripnest/internal/domain/shared/fault"
	"tripnest/internal/domain/shared/money"
)

func stay(t *testing.T, in, out string) domainbooking.DateSpec {
	t.Helper()
	dr, err := daterange.Parse(in, out)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return domainbooking.StayOver(dr)
}

func seedBooking(t *testing.T, repo *BookingRepository, id, guest string, dates domainbooking.DateSpec, status domainbooking.Status) *domainbooking.Booking {
	t.Helper()
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:      domainbooking.BookingID(id),
		GuestID: guest,
		Target:  domainbooking.Target{Kind: domainlisting.KindAccommodation, ID: "acc-1"},
		Dates:   dates,
		Guests:  2,
		Total:   money.Must(1000, "EUR"),
	})
	if err != nil {
		t.Fatalf("booking %s: %v", id, err)
	}
	b.Status = status
	if err := repo.Insert(context.Background(), b); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
	return b
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	repo := NewBookingRepository()
	b := seedBooking(t, repo, "bk-1", "guest-1", stay(t, "2024-06-01", "2024-06-05"), domainbooking.StatusPending)
	if err := repo.Insert(context.Background(), b); !fault.IsKind(err, fault.Conflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestActiveForTargetFiltersStatusAndDates(t *testing.T) {
	repo := NewBookingRepository()
	seedBooking(t, repo, "bk-pending", "g1", stay(t, "2024-06-01", "2024-06-05"), domainbooking.StatusPending)
	seedBooking(t, repo, "bk-confirmed", "g2", stay(t, "2024-06-04", "2024-06-08"), domainbooking.StatusConfirmed)
	seedBooking(t, repo, "bk-cancelled", "g3", stay(t, "2024-06-01", "2024-06-08"), domainbooking.StatusCancelled)
	seedBooking(t, repo, "bk-completed", "g4", stay(t, "2024-06-01", "2024-06-08"), domainbooking.StatusCompleted)
	seedBooking(t, repo, "bk-elsewhere", "g5", stay(t, "2024-07-01", "2024-07-08"), domainbooking.StatusPending)

	target := domainbooking.Target{Kind: domainlisting.KindAccommodation, ID: "acc-1"}
	active, err := repo.ActiveForTarget(context.Background(), target, stay(t, "2024-06-03", "2024-06-06"))
	if err != nil {
		t.Fatalf("ActiveForTarget: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d entries, want 2", len(active))
	}
	for _, b := range active {
		if b.ID != "bk-pending" && b.ID != "bk-confirmed" {
			t.Errorf("unexpected entry %s", b.ID)
		}
	}
}

func TestByIDReturnsDetachedCopy(t *testing.T) {
	repo := NewBookingRepository()
	seedBooking(t, repo, "bk-1", "guest-1", stay(t, "2024-06-01", "2024-06-05"), domainbooking.StatusPending)

	loaded, err := repo.ByID(context.Background(), "bk-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	loaded.Status = domainbooking.StatusCancelled

	again, err := repo.ByID(context.Background(), "bk-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if again.Status != domainbooking.StatusPending {
		t.Errorf("ledger entry mutated through a read copy: status = %q", again.Status)
	}
}

func TestSaveRejectsStaleVersion(t *testing.T) {
	repo := NewBookingRepository()
	seedBooking(t, repo, "bk-1", "guest-1", stay(t, "2024-06-01", "2024-06-05"), domainbooking.StatusPending)

	first, err := repo.ByID(context.Background(), "bk-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	second, err := repo.ByID(context.Background(), "bk-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}

	now := time.Now().UTC()
	if err := first.Confirm(now); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := repo.Save(context.Background(), first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := second.Cancel("changed plans", now); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := repo.Save(context.Background(), second); !fault.IsKind(err, fault.Conflict) {
		t.Errorf("stale save should conflict, got %v", err)
	}

	current, err := repo.ByID(context.Background(), "bk-1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if current.Status != domainbooking.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", current.Status)
	}
}

func TestListFilters(t *testing.T) {
	repo := NewBookingRepository()
	seedBooking(t, repo, "bk-1", "guest-1", stay(t, "2024-06-01", "2024-06-03"), domainbooking.StatusPending)
	seedBooking(t, repo, "bk-2", "guest-1", stay(t, "2024-06-03", "2024-06-05"), domainbooking.StatusCancelled)
	seedBooking(t, repo, "bk-3", "guest-2", stay(t, "2024-06-05", "2024-06-07"), domainbooking.StatusPending)

	got, err := repo.List(context.Background(), domainbooking.Filter{GuestID: "guest-1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("guest filter: %d entries, want 2", len(got))
	}

	got, err = repo.List(context.Background(), domainbooking.Filter{Statuses: []domainbooking.Status{domainbooking.StatusPending}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("status filter: %d entries, want 2", len(got))
	}
}

func TestListingRepositoryPagination(t *testing.T) {
	repo := NewListingRepository()
	ids := []string{"acc-a", "acc-b", "acc-c"}
	for _, id := range ids {
		item, err := domainlisting.New(domainlisting.CreateParams{
			ID:         domainlisting.ID(id),
			Kind:       domainlisting.KindAccommodation,
			Title:      "Listing " + id,
			MaxGuests:  2,
			PriceCents: 5000,
			Currency:   "EUR",
		})
		if err != nil {
			t.Fatalf("listing %s: %v", id, err)
		}
		if err := repo.Save(context.Background(), item); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	page, err := repo.List(context.Background(), domainlisting.Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 || page[0].ID != "acc-b" {
		t.Errorf("page = %v", page)
	}

	if _, err := repo.ByID(context.Background(), domainlisting.KindExperience, "acc-a"); !fault.IsKind(err, fault.NotFound) {
		t.Errorf("kind mismatch should be not found, got %v", err)
	}
}
