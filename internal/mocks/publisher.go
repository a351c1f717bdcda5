package mocks

import (
	"context"
	"sync"

	"github.com/openshelf/catalog-service/internal/events"
)

// MockPublisher implements events.Publisher for testing. Synchronous and
// asynchronous publishes are recorded separately so tests can assert which
// delivery path an operation used; async publishes are recorded inline to
// keep tests deterministic.
type MockPublisher struct {
	// Custom behavior functions
	PublishFn      func(ctx context.Context, event *events.BookEvent) error
	PublishAsyncFn func(ctx context.Context, event *events.BookEvent)

	// DefaultError makes Publish fail and PublishAsync drop the event,
	// simulating an unreachable broker.
	DefaultError error

	mu          sync.Mutex
	syncEvents  []*events.BookEvent
	asyncEvents []*events.BookEvent
}

var _ events.Publisher = (*MockPublisher)(nil)

// Publish implements the Publisher.Publish method
func (m *MockPublisher) Publish(ctx context.Context, event *events.BookEvent) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, event)
	}
	if m.DefaultError != nil {
		return m.DefaultError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncEvents = append(m.syncEvents, event)
	return nil
}

// PublishAsync implements the Publisher.PublishAsync method
func (m *MockPublisher) PublishAsync(ctx context.Context, event *events.BookEvent) {
	if m.PublishAsyncFn != nil {
		m.PublishAsyncFn(ctx, event)
		return
	}
	if m.DefaultError != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asyncEvents = append(m.asyncEvents, event)
}

// PublishedSync returns a copy of the events delivered through Publish, in
// order.
func (m *MockPublisher) PublishedSync() []*events.BookEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.BookEvent(nil), m.syncEvents...)
}

// PublishedAsync returns a copy of the events delivered through
// PublishAsync, in order.
func (m *MockPublisher) PublishedAsync() []*events.BookEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.BookEvent(nil), m.asyncEvents...)
}
