package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "tripnest/internal/app/outbox"
	infraoutbox "tripnest/internal/infra/outbox"
)

// Outbox buffers event records in memory and feeds the publishing worker.
type Outbox struct {
	mu      sync.Mutex
	pending map[string]*queued
	order   []string
}

type queued struct {
	record      appoutbox.EventRecord
	attempts    int
	nextAttempt time.Time
	claimed     bool
	sent        bool
}

func NewOutbox() *Outbox {
	return &Outbox{pending: make(map[string]*queued)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.pending[record.ID]; ok {
		return nil
	}
	o.pending[record.ID] = &queued{record: record, nextAttempt: time.Now().UTC()}
	o.order = append(o.order, record.ID)
	return nil
}

// Claim hands the oldest due record to a worker.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range o.order {
		q := o.pending[id]
		if q == nil || q.sent || q.claimed || q.nextAttempt.After(now) {
			continue
		}
		q.claimed = true
		return &infraoutbox.EventDocument{
			ID:         q.record.ID,
			Name:       q.record.Name,
			Payload:    q.record.Payload,
			OccurredAt: q.record.OccurredAt,
			Aggregate:  q.record.Aggregate,
			Headers:    q.record.Headers,
			Attempts:   q.attempts,
		}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if q, ok := o.pending[id]; ok {
		q.sent = true
		q.claimed = false
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if q, ok := o.pending[id]; ok {
		q.claimed = false
		q.attempts++
		q.nextAttempt = next
	}
	return nil
}

var _ appoutbox.Outbox = (*Outbox)(nil)
var _ infraoutbox.Queue = (*Outbox)(nil)
