package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType tags a BookEvent with the kind of state transition it records.
type EventType string

// Event types emitted by the catalog, consumed by the borrowing,
// saga-orchestration and notification collaborators.
const (
	TypeBookCreated  EventType = "BOOK_CREATED"
	TypeBookUpdated  EventType = "BOOK_UPDATED"
	TypeBookDeleted  EventType = "BOOK_DELETED"
	TypeBookReserved EventType = "BOOK_RESERVED"
	TypeBookReturned EventType = "BOOK_RETURNED"
)

// SchemaVersion is the current wire schema version carried by every event,
// so forward-compatible consumers can dispatch on it.
const SchemaVersion = 1

// BookEvent is an immutable record of something that happened to a book
// aggregate. The Type field tags which payload variant is carried; the
// payload itself is serialized JSON so the event can cross process
// boundaries without the consumer importing domain types.
type BookEvent struct {
	// ID is a unique identifier for this event occurrence.
	ID uuid.UUID `json:"id"`

	// Type tags the payload variant.
	Type EventType `json:"type"`

	// SchemaVersion is the wire schema version, currently always 1.
	SchemaVersion int `json:"schema_version"`

	// OccurredAt is when the state transition happened.
	OccurredAt time.Time `json:"occurred_at"`

	// BookID is the identity of the aggregate the event belongs to.
	BookID uuid.UUID `json:"book_id"`

	// Payload carries the type-specific data serialized as JSON.
	Payload json.RawMessage `json:"payload"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *BookEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// CreatedPayload is carried by BOOK_CREATED events.
type CreatedPayload struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
}

// UpdatedPayload is carried by BOOK_UPDATED events.
type UpdatedPayload struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
}

// DeletedPayload is carried by BOOK_DELETED events.
type DeletedPayload struct {
	ISBN string `json:"isbn"`
}

// ReservedPayload is carried by BOOK_RESERVED events. UserID identifies the
// borrower the copy was reserved for.
type ReservedPayload struct {
	ISBN   string    `json:"isbn"`
	Title  string    `json:"title"`
	UserID uuid.UUID `json:"user_id"`
}

// ReturnedPayload is carried by BOOK_RETURNED events.
type ReturnedPayload struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
}

// NewBookCreated builds a BOOK_CREATED event for the given book.
func NewBookCreated(bookID uuid.UUID, isbn, title string) (*BookEvent, error) {
	return newEvent(TypeBookCreated, bookID, CreatedPayload{ISBN: isbn, Title: title})
}

// NewBookUpdated builds a BOOK_UPDATED event for the given book.
func NewBookUpdated(bookID uuid.UUID, isbn, title string) (*BookEvent, error) {
	return newEvent(TypeBookUpdated, bookID, UpdatedPayload{ISBN: isbn, Title: title})
}

// NewBookDeleted builds a BOOK_DELETED event for the given book.
func NewBookDeleted(bookID uuid.UUID, isbn string) (*BookEvent, error) {
	return newEvent(TypeBookDeleted, bookID, DeletedPayload{ISBN: isbn})
}

// NewBookReserved builds a BOOK_RESERVED event for the given book and borrower.
func NewBookReserved(bookID uuid.UUID, isbn, title string, userID uuid.UUID) (*BookEvent, error) {
	return newEvent(TypeBookReserved, bookID, ReservedPayload{ISBN: isbn, Title: title, UserID: userID})
}

// NewBookReturned builds a BOOK_RETURNED event for the given book.
func NewBookReturned(bookID uuid.UUID, isbn, title string) (*BookEvent, error) {
	return newEvent(TypeBookReturned, bookID, ReturnedPayload{ISBN: isbn, Title: title})
}

func newEvent(eventType EventType, bookID uuid.UUID, payload any) (*BookEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &BookEvent{
		ID:            uuid.New(),
		Type:          eventType,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		BookID:        bookID,
		Payload:       payloadBytes,
	}, nil
}
