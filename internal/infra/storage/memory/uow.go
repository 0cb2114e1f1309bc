package memory

import (
	"context"
	"errors"

	"tripnest/internal/app/uow"
	domainbooking "tripnest/internal/domain/booking"
	domainlisting "tripnest/internal/domain/listing"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo domainlisting.Repository
	BookingsRepo domainbooking.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided;
// admission correctness comes from AdmissionLocks held around check-and-insert.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.BookingsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{listings: f.ListingsRepo, bookings: f.BookingsRepo}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	listings domainlisting.Repository
	bookings domainbooking.Repository
}

func (u *Unit) Listings() domainlisting.Repository {
	return u.listings
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
