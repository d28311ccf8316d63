package audit

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Worker drains the dispatcher inbox and fans each event out to every sink in
// parallel. A failing sink is logged and skipped; audit delivery never stops
// the others.
type Worker struct {
	inbox  <-chan Event
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{inbox: inbox, sinks: sinks, logger: logger}
}

// Run consumes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, event Event) {
	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range w.sinks {
		g.Go(func() error {
			if err := sink.Write(gctx, event); err != nil {
				w.logger.ErrorContext(gctx, "audit sink write failed",
					"event_type", event.Type,
					"error", err,
				)
			}
			// Sink failures are isolated; never cancel sibling writes.
			return nil
		})
	}
	_ = g.Wait()
}
