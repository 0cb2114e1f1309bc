package booking

import (
	"context"

	"tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/fault"
)

// ReasonDatesUnavailable is reported when a stay collides with an existing
// active booking.
const ReasonDatesUnavailable = "dates unavailable"

// ReasonCapacityFull is reported when an experience date has no spots left or
// the request alone exceeds the listing capacity.
const ReasonCapacityFull = "not enough capacity"

type AvailabilityResult struct {
	Available bool
	Reason    string
}

// AvailabilityChecker answers whether a prospective booking can be admitted
// without exceeding capacity or violating date-range exclusivity. It performs
// reads only; admission itself is serialized elsewhere.
type AvailabilityChecker struct {
	Bookings Repository
}

func (c AvailabilityChecker) Check(ctx context.Context, target *listing.Listing, dates DateSpec, guests int) (AvailabilityResult, error) {
	if guests < 1 {
		return AvailabilityResult{}, fault.New(fault.Validation, "guests count must be positive")
	}
	if err := dates.Validate(target.Kind); err != nil {
		return AvailabilityResult{}, err
	}
	// A request that alone exceeds the capacity bound can never be admitted,
	// regardless of existing bookings. That is a business rejection, not an
	// input error.
	if guests > target.MaxGuests {
		return AvailabilityResult{Reason: ReasonCapacityFull}, nil
	}

	existing, err := c.Bookings.ActiveForTarget(ctx, Target{Kind: target.Kind, ID: target.ID}, dates)
	if err != nil {
		return AvailabilityResult{}, err
	}

	switch target.Kind {
	case listing.KindAccommodation:
		units := target.Units
		if units < 1 {
			units = 1
		}
		if len(existing) >= units {
			return AvailabilityResult{Reason: ReasonDatesUnavailable}, nil
		}
	case listing.KindExperience:
		taken := 0
		for _, b := range existing {
			taken += b.Guests
		}
		if taken+guests > target.MaxGuests {
			return AvailabilityResult{Reason: ReasonCapacityFull}, nil
		}
	}
	return AvailabilityResult{Available: true}, nil
}
