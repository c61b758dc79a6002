package memory

import (
	"context"
	"sync"

	appoutbox "rentloop/internal/app/outbox"
)

// Outbox keeps pending event records in memory until flushed. Useful for
// tests and memory-mode deployments where no broker is wired.
type Outbox struct {
	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = nil
	return nil
}

// Pending returns a copy of the unflushed records, oldest first.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, len(o.records))
	copy(out, o.records)
	return out
}

var _ appoutbox.Outbox = (*Outbox)(nil)
