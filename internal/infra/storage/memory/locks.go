package memory

import (
	"context"
	"sync"

	"tripnest/internal/app/policies"
	domainbooking "tripnest/internal/domain/booking"
)

// AdmissionLocks serializes booking admission with one mutex per target key.
// Locks are created lazily and never removed; the key space is bounded by the
// catalog size.
type AdmissionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAdmissionLocks() *AdmissionLocks {
	return &AdmissionLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *AdmissionLocks) Acquire(ctx context.Context, target domainbooking.Target) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	lock, ok := l.locks[target.Key()]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[target.Key()] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	var once sync.Once
	return func() { once.Do(lock.Unlock) }, nil
}

var _ policies.AdmissionGuard = (*AdmissionLocks)(nil)
