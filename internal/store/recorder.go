package store

import (
	"context"
	"log/slog"

	"swingbot/internal/events"
)

// Recorder subscribes to the event bus and persists every lifecycle event.
// Persistence failures are logged and dropped; recording must never push
// back on the trading cycle.
type Recorder struct {
	store EventStore
	bus   *events.Bus
	log   *slog.Logger
}

// NewRecorder creates a Recorder writing bus events into store.
func NewRecorder(store EventStore, bus *events.Bus) *Recorder {
	return &Recorder{
		store: store,
		bus:   bus,
		log:   slog.Default().With("component", "recorder"),
	}
}

// Run consumes events until ctx is cancelled. It is intended to run in its
// own goroutine.
func (r *Recorder) Run(ctx context.Context) {
	ch, unsub := r.bus.Subscribe(256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := r.store.SaveEvent(ctx, e); err != nil {
				r.log.Warn("event persist failed", "type", e.Type, "err", err)
			}
		}
	}
}
