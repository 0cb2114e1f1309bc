package policies

import (
	"context"

	domainbooking "tripnest/internal/domain/booking"
)

// AdmissionGuard serializes booking admission per target. Two concurrent
// create requests for the same listing must not both pass the availability
// check before either inserts its ledger row; holding the guard across the
// check and the insert closes that race. Different targets proceed in
// parallel.
type AdmissionGuard interface {
	// Acquire blocks until the target slot is held or the context ends. The
	// returned release function must be called exactly once.
	Acquire(ctx context.Context, target domainbooking.Target) (release func(), err error)
}
