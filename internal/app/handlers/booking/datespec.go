package booking

import (
	"time"

	domainbooking "tripnest/internal/domain/booking"
	domainlisting "tripnest/internal/domain/listing"
	"tripnest/internal/domain/shared/daterange"
	"tripnest/internal/domain/shared/fault"
)

func invalidKind(raw string) error {
	return fault.Newf(fault.Validation, "unknown target kind %q", raw)
}

// buildDateSpec shapes raw request dates into the DateSpec matching the target
// kind, rejecting malformed combinations before any repository read.
func buildDateSpec(kind domainlisting.Kind, checkIn, checkOut, bookingDate time.Time, bookingTime string) (domainbooking.DateSpec, error) {
	switch kind {
	case domainlisting.KindAccommodation:
		if checkIn.IsZero() || checkOut.IsZero() {
			return domainbooking.DateSpec{}, fault.New(fault.Validation, "check_in and check_out are required")
		}
		dr, err := daterange.New(checkIn, checkOut)
		if err != nil {
			return domainbooking.DateSpec{}, fault.Wrap(fault.Validation, err, "invalid stay dates")
		}
		return domainbooking.StayOver(dr), nil
	case domainlisting.KindExperience:
		if bookingDate.IsZero() {
			return domainbooking.DateSpec{}, fault.New(fault.Validation, "booking_date is required")
		}
		spec := domainbooking.EventOn(bookingDate, bookingTime)
		if err := spec.Validate(kind); err != nil {
			return domainbooking.DateSpec{}, err
		}
		return spec, nil
	default:
		return domainbooking.DateSpec{}, fault.Newf(fault.Validation, "unknown target kind %q", kind)
	}
}
