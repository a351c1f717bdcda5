package events

import "context"

// Publisher is the port through which use cases announce committed state
// transitions. The aggregate never publishes its own events; only the
// orchestrating use case does, and only after a successful save, so an event
// is never emitted for a mutation that did not durably commit.
type Publisher interface {
	// Publish delivers the event synchronously with at-least-once semantics.
	// Returns an error if delivery fails; the caller decides whether that
	// matters (it must never roll back a committed mutation).
	Publish(ctx context.Context, event *BookEvent) error

	// PublishAsync delivers the event on a best-effort, fire-and-forget
	// basis. Failures are logged by the implementation and never surface
	// to the caller.
	PublishAsync(ctx context.Context, event *BookEvent)
}

// Handler is implemented by components that consume book events, such as
// the saga-orchestration and notification collaborators in tests.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *BookEvent) error
}
