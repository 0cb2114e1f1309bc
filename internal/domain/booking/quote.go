package booking

import (
	"tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/fault"
	"tripnest/internal/domain/shared/money"
)

// QuoteTotal computes the immutable total for a prospective booking. It is a
// pure function of the listed price, the dates and the guest count.
//
// Per-night listings charge price * nights * guests, at least one night.
// Flat listings charge price * guests, independent of duration.
func QuoteTotal(target *listing.Listing, dates DateSpec, guests int) (money.Money, error) {
	if guests < 1 {
		return money.Money{}, fault.New(fault.Validation, "guests count must be positive")
	}
	if err := dates.Validate(target.Kind); err != nil {
		return money.Money{}, err
	}
	price := target.Price()
	switch target.Basis {
	case listing.PerNight:
		nights := dates.Stay.Nights()
		return price.Multiply(int64(nights)).Multiply(int64(guests)), nil
	case listing.Flat:
		return price.Multiply(int64(guests)), nil
	default:
		return money.Money{}, fault.Newf(fault.Validation, "unknown price basis %q", target.Basis)
	}
}
