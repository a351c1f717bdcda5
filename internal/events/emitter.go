package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryPublisher is a simple Publisher that dispatches events to
// handlers registered in the same process. It is the default publisher when
// no external broker is configured, and the workhorse for tests.
type InMemoryPublisher struct {
	handlers []Handler
	mu       sync.RWMutex
	inflight sync.WaitGroup
	logger   *slog.Logger
}

var _ Publisher = (*InMemoryPublisher)(nil)

// NewInMemoryPublisher creates a new InMemoryPublisher.
// If logger is nil, the default logger is used.
func NewInMemoryPublisher(logger *slog.Logger) *InMemoryPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryPublisher{
		handlers: make([]Handler, 0),
		logger:   logger.With(slog.String("component", "in_memory_publisher")),
	}
}

// RegisterHandler adds a new handler to receive published events.
func (p *InMemoryPublisher) RegisterHandler(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
	p.logger.Debug("registered event handler", "handler_count", len(p.handlers))
}

// Publish delivers the event to every registered handler. If a handler
// fails, the event is still delivered to the remaining handlers and the
// first error encountered is returned.
func (p *InMemoryPublisher) Publish(ctx context.Context, event *BookEvent) error {
	handlers := p.snapshot()

	p.logger.Debug("publishing event",
		"event_id", event.ID,
		"event_type", event.Type,
		"book_id", event.BookID,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		p.logger.Warn("no handlers registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			p.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// PublishAsync delivers the event on a separate goroutine. Handler failures
// are logged and never reach the caller: a failed notification must not
// undo a committed catalog change.
func (p *InMemoryPublisher) PublishAsync(ctx context.Context, event *BookEvent) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if err := p.Publish(ctx, event); err != nil {
			p.logger.Error("async event publication failed",
				"error", err,
				"event_id", event.ID,
				"event_type", event.Type)
		}
	}()
}

// Wait blocks until all in-flight async publications have finished.
// Intended for tests and graceful shutdown.
func (p *InMemoryPublisher) Wait() {
	p.inflight.Wait()
}

func (p *InMemoryPublisher) snapshot() []Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	handlers := make([]Handler, len(p.handlers))
	copy(handlers, p.handlers)
	return handlers
}
