// Package booking contains the command and query handlers that drive the
// booking lifecycle: request, confirm/reject, pay, cancel and complete.
package booking

import (
	"context"

	"rentloop/internal/app/outbox"
	"rentloop/internal/domain/shared/events"
)

type eventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

func drainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, rec eventSource) error {
	if box == nil {
		return nil
	}
	evs := rec.PendingEvents()
	if len(evs) == 0 {
		return nil
	}
	if err := outbox.RecordDomainEvents(ctx, box, encoder, evs); err != nil {
		return err
	}
	rec.ClearEvents()
	return nil
}
