package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainbooking "tripnest/internal/domain/booking"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/events"
	"tripnest/internal/domain/shared/fault"
)

// ListingRepository is an in-memory catalog used in dev mode and tests.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[string]*domainlisting.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[string]*domainlisting.Listing)}
}

func listingKey(kind domainlisting.Kind, id domainlisting.ID) string {
	return string(kind) + ":" + string(id)
}

func (r *ListingRepository) ByID(ctx context.Context, kind domainlisting.Kind, id domainlisting.ID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[listingKey(kind, id)]
	if !ok {
		return nil, fault.Newf(fault.NotFound, "listing %s/%s not found", kind, id)
	}
	return item, nil
}

func (r *ListingRepository) List(ctx context.Context, filter domainlisting.Filter) ([]*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*domainlisting.Listing, 0, len(r.items))
	for _, item := range r.items {
		if filter.Kind != "" && item.Kind != filter.Kind {
			continue
		}
		if filter.City != "" && !strings.EqualFold(item.City, filter.City) {
			continue
		}
		if filter.Country != "" && !strings.EqualFold(item.Country, filter.Country) {
			continue
		}
		matches = append(matches, item)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ID < matches[j].ID
	})

	total := len(matches)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < total {
		end = start + filter.Limit
	}
	return matches[start:end], nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listingKey(l.Kind, l.ID)] = l
	return nil
}

// BookingRepository keeps the ledger in memory. Admission serialization is
// provided by AdmissionLocks, not by this store.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

// cloneBooking detaches an aggregate from the store. Callers get their own
// copy with a fresh event recorder, so post-read mutations never touch the
// ledger behind the repository's back.
func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	copied := *b
	copied.EventRecorder = events.EventRecorder{}
	return &copied
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, fault.Newf(fault.NotFound, "booking %s not found", id)
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[b.ID]; exists {
		return fault.Newf(fault.Conflict, "booking %s already exists", b.ID)
	}
	b.Version = 1
	r.items[b.ID] = cloneBooking(b)
	return nil
}

// Save guards lost updates the same way the Mongo store does: the write only
// applies when the caller still holds the current version.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[b.ID]; ok && current.Version != b.Version {
		return fault.Newf(fault.Conflict, "booking %s was updated concurrently", b.ID)
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0, len(r.items))
	for _, b := range r.items {
		if filter.GuestID != "" && b.GuestID != filter.GuestID {
			continue
		}
		if !filter.MatchesStatus(b.Status) {
			continue
		}
		if filter.Target != nil && *filter.Target != b.Target {
			continue
		}
		matches = append(matches, cloneBooking(b))
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *BookingRepository) ActiveForTarget(ctx context.Context, target domainbooking.Target, dates domainbooking.DateSpec) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*domainbooking.Booking
	for _, b := range r.items {
		if b.Target != target {
			continue
		}
		if !b.Status.Upcoming() {
			continue
		}
		if !b.Dates.Intersects(dates) {
			continue
		}
		matches = append(matches, cloneBooking(b))
	}
	return matches, nil
}
