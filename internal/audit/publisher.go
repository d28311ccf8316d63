package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink persists or forwards audit events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Publisher is what the lifecycle service emits into.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// Dispatcher buffers events in memory and hands them to a background worker.
// Emit never blocks the request path: when the buffer is full the event is
// dropped and counted, which is the documented best-effort trade-off.
type Dispatcher struct {
	inbox   chan Event
	logger  *slog.Logger
	mu      sync.Mutex
	dropped int64
}

// NewDispatcher creates a dispatcher with the given buffer capacity.
func NewDispatcher(buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit enqueues an event for background delivery.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case d.inbox <- event:
	default:
		d.mu.Lock()
		d.dropped++
		dropped := d.dropped
		d.mu.Unlock()
		d.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"event_type", event.Type,
			"dropped_total", dropped,
		)
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (d *Dispatcher) Dropped() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Inbox exposes the event channel to the worker.
func (d *Dispatcher) Inbox() <-chan Event {
	return d.inbox
}

// NopPublisher discards every event; used when auditing is not configured.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) {}
