package audit

import (
	"context"
	"log/slog"

	"vetcred/pkg/requestcontext"
)

// Recorder is the interface domain services depend on. Record is
// fire-and-forget: it never blocks the caller and never fails the operation
// it annotates.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Publisher buffers events on a channel consumed by a Worker. When the
// buffer is full the event is dropped and counted in the log rather than
// blocking a request thread.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the channel for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Record enriches the event with request-scoped metadata and enqueues it.
func (p *Publisher) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, event dropped", "action", event.Action)
	}
}

// NopRecorder discards events; used in tests that don't assert on audit.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}
