package booking

import (
	"time"

	"tripnest/internal/domain/shared/fault"
)

// CancellationPolicy gates owner-initiated cancellation of confirmed
// bookings. Operators with the manage-bookings capability bypass it.
type CancellationPolicy struct {
	// OwnerWindow is the minimum lead time before the booked dates begin for
	// an owner to cancel a confirmed booking. Zero disables the window.
	OwnerWindow time.Duration
}

// AllowOwnerCancel checks the window against the booking start. Pending
// bookings may always be cancelled by their owner.
func (p CancellationPolicy) AllowOwnerCancel(b *Booking, now time.Time) error {
	if b.Status != StatusConfirmed || p.OwnerWindow <= 0 {
		return nil
	}
	cutoff := b.Dates.StartAt().Add(-p.OwnerWindow)
	if !now.UTC().Before(cutoff) {
		return fault.Newf(fault.Forbidden, "confirmed bookings can no longer be cancelled within %s of the start date", p.OwnerWindow)
	}
	return nil
}
