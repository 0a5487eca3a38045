package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the publisher's inbox and persists them.
// Persistence errors are logged and swallowed: audit is best-effort by
// contract and must never propagate failure back into request handling.
type Worker struct {
	store   Store
	mirrors []Mirror
	inbox   <-chan Event
	logger  *slog.Logger
}

// Mirror receives a copy of every event after it is stored (e.g. a Kafka
// topic for the compliance pipeline).
type Mirror interface {
	Publish(ctx context.Context, event Event) error
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, mirrors ...Mirror) *Worker {
	return &Worker{store: store, mirrors: mirrors, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("audit append failed", "action", event.Action, "error", err)
				continue
			}
			for _, m := range w.mirrors {
				if err := m.Publish(ctx, event); err != nil {
					w.logger.Warn("audit mirror failed", "action", event.Action, "error", err)
				}
			}
		}
	}
}
