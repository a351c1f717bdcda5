package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/openshelf/catalog-service/internal/domain"
)

// BookStore defines the interface for book aggregate persistence.
//
// Optimistic concurrency contract: every persisted book carries a version
// counter. Save performs check-and-increment — an update whose in-memory
// version does not match the stored version fails with
// ErrConcurrentModification and changes nothing. Reads never block writes;
// there is no pessimistic locking anywhere in this contract.
type BookStore interface {
	// Save persists the book and returns the stored state.
	//
	// When the book has no identity yet (uuid.Nil), Save inserts it,
	// assigns a fresh ID and sets the version to 1. Otherwise Save updates
	// the existing row only if the book's version matches the stored
	// version, and increments it; a mismatch returns
	// ErrConcurrentModification, a missing row returns ErrBookNotFound.
	// A duplicate ISBN on insert returns ErrISBNExists.
	//
	// The argument is not mutated; the returned book carries the assigned
	// identity and the incremented version.
	Save(ctx context.Context, book *domain.Book) (*domain.Book, error)

	// GetByID retrieves a book by its unique ID.
	// Returns ErrBookNotFound if the book does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error)

	// GetByISBN retrieves a book by its unique ISBN (canonical digit form).
	// Returns ErrBookNotFound if the book does not exist.
	GetByISBN(ctx context.Context, isbn domain.ISBN) (*domain.Book, error)

	// List returns all books in the catalog.
	List(ctx context.Context) ([]*domain.Book, error)

	// ListByStatus returns all books in the given lifecycle state.
	ListByStatus(ctx context.Context, status domain.BookStatus) ([]*domain.Book, error)

	// ListAvailable returns books that can be reserved right now:
	// status AVAILABLE with at least one copy on the shelf.
	ListAvailable(ctx context.Context) ([]*domain.Book, error)

	// Search returns books whose title, author or description contains the
	// keyword, matched case-insensitively.
	Search(ctx context.Context, keyword string) ([]*domain.Book, error)

	// ExistsByISBN reports whether a book with the given ISBN exists.
	ExistsByISBN(ctx context.Context, isbn domain.ISBN) (bool, error)

	// Delete removes a book from the store by its ID.
	// Returns ErrBookNotFound if the book does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new BookStore instance that uses the provided
	// transaction, so several store operations can share one transactional
	// boundary managed with RunInTransaction.
	WithTx(tx *sql.Tx) BookStore
}
