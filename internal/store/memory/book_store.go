package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/store"
)

// BookStore is an in-memory, mutex-guarded implementation of
// store.BookStore. It honors the full optimistic-concurrency contract —
// Save performs the same check-and-increment a database-backed store does —
// which makes the stale-write behavior testable without PostgreSQL.
type BookStore struct {
	mu    sync.Mutex
	books map[uuid.UUID]domain.Book
}

var _ store.BookStore = (*BookStore)(nil)

// NewBookStore creates an empty in-memory book store.
func NewBookStore() *BookStore {
	return &BookStore{
		books: make(map[uuid.UUID]domain.Book),
	}
}

// Save implements store.BookStore.Save, including identity assignment on
// first insert, the version check-and-increment on update, and ISBN
// uniqueness.
func (s *BookStore) Save(_ context.Context, book *domain.Book) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book.ID == uuid.Nil {
		for _, existing := range s.books {
			if existing.ISBN == book.ISBN {
				return nil, store.ErrISBNExists
			}
		}
		stored := *book
		stored.ID = uuid.New()
		stored.Version = 1
		s.books[stored.ID] = stored
		result := stored
		return &result, nil
	}

	existing, ok := s.books[book.ID]
	if !ok {
		return nil, store.ErrBookNotFound
	}
	if existing.Version != book.Version {
		return nil, store.ErrConcurrentModification
	}

	stored := *book
	stored.Version = existing.Version + 1
	s.books[stored.ID] = stored
	result := stored
	return &result, nil
}

// GetByID implements store.BookStore.GetByID.
func (s *BookStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return nil, store.ErrBookNotFound
	}
	result := book
	return &result, nil
}

// GetByISBN implements store.BookStore.GetByISBN.
func (s *BookStore) GetByISBN(_ context.Context, isbn domain.ISBN) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range s.books {
		if book.ISBN == isbn {
			result := book
			return &result, nil
		}
	}
	return nil, store.ErrBookNotFound
}

// List implements store.BookStore.List. Results are ordered by title so
// tests get deterministic output.
func (s *BookStore) List(_ context.Context) ([]*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(domain.Book) bool { return true }), nil
}

// ListByStatus implements store.BookStore.ListByStatus.
func (s *BookStore) ListByStatus(_ context.Context, status domain.BookStatus) ([]*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(b domain.Book) bool { return b.Status == status }), nil
}

// ListAvailable implements store.BookStore.ListAvailable.
func (s *BookStore) ListAvailable(_ context.Context) ([]*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(b domain.Book) bool {
		return b.Status == domain.StatusAvailable && b.Inventory.HasAvailable()
	}), nil
}

// Search implements store.BookStore.Search with case-insensitive substring
// matching over title, author and description.
func (s *BookStore) Search(_ context.Context, keyword string) ([]*domain.Book, error) {
	needle := strings.ToLower(keyword)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(b domain.Book) bool {
		return strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Author), needle) ||
			strings.Contains(strings.ToLower(b.Description), needle)
	}), nil
}

// ExistsByISBN implements store.BookStore.ExistsByISBN.
func (s *BookStore) ExistsByISBN(_ context.Context, isbn domain.ISBN) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range s.books {
		if book.ISBN == isbn {
			return true, nil
		}
	}
	return false, nil
}

// Delete implements store.BookStore.Delete.
func (s *BookStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return store.ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

// WithTx implements store.BookStore.WithTx. The in-memory store has no
// transactions; every operation is individually atomic under the mutex.
func (s *BookStore) WithTx(_ *sql.Tx) store.BookStore {
	return s
}

// collect returns copies of all stored books matching the predicate,
// ordered by title. Callers must hold s.mu.
func (s *BookStore) collect(match func(domain.Book) bool) []*domain.Book {
	result := make([]*domain.Book, 0)
	for _, book := range s.books {
		if match(book) {
			copied := book
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result
}
