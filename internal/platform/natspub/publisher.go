// Package natspub provides a NATS-backed implementation of the event
// publisher port. Events are serialized to JSON and published on a subject
// derived from the event type, e.g. catalog.events.BOOK_CREATED.
package natspub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"

	"github.com/openshelf/catalog-service/internal/events"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "catalog.events."

// conn is the subset of *nats.Conn the publisher uses. Tests substitute a
// fake.
type conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// Publisher implements events.Publisher on top of a NATS connection.
type Publisher struct {
	conn          conn
	subjectPrefix string
	logger        *slog.Logger
	ownsConn      bool

	inflight sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ events.Publisher = (*Publisher)(nil)

// Config configures a Publisher.
type Config struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string

	// Conn is an optional existing connection. The caller keeps ownership;
	// Close will not close it.
	Conn *nats.Conn

	// SubjectPrefix is prepended to the event type to form the subject.
	// Defaults to DefaultSubjectPrefix.
	SubjectPrefix string

	Logger *slog.Logger
}

// New connects to NATS (unless an existing connection is supplied) and
// returns a ready Publisher.
func New(cfg Config) (*Publisher, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Publisher{
		subjectPrefix: cfg.SubjectPrefix,
		logger:        cfg.Logger.With(slog.String("component", "nats_publisher")),
	}

	if cfg.Conn != nil {
		p.conn = cfg.Conn
		return p, nil
	}

	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	nc, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	p.conn = nc
	p.ownsConn = true
	return p, nil
}

// Publish implements events.Publisher.Publish.
func (p *Publisher) Publish(ctx context.Context, event *events.BookEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("publisher is closed")
	}
	p.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	subject := p.subjectPrefix + string(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", event.ID, subject, err)
	}

	p.logger.Debug("published event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.Type)),
		slog.String("subject", subject))
	return nil
}

// PublishAsync implements events.Publisher.PublishAsync. Delivery failures
// are logged and dropped.
func (p *Publisher) PublishAsync(ctx context.Context, event *events.BookEvent) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if err := p.Publish(ctx, event); err != nil {
			p.logger.Error("async event publish failed",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", string(event.Type)),
				slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until all asynchronous publishes started so far have
// completed. Intended for shutdown and tests.
func (p *Publisher) Wait() {
	p.inflight.Wait()
}

// Close drains in-flight publishes, flushes the connection, and closes it
// if the publisher owns it.
func (p *Publisher) Close() error {
	p.inflight.Wait()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.conn.Flush()
	if p.ownsConn {
		p.conn.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}
