package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/store"
)

// CategoryStore is an in-memory, mutex-guarded implementation of
// store.CategoryStore with the same name-uniqueness guarantee a database
// constraint would give.
type CategoryStore struct {
	mu         sync.Mutex
	categories map[string]domain.Category // keyed by unique name
}

var _ store.CategoryStore = (*CategoryStore)(nil)

// NewCategoryStore creates an empty in-memory category store.
func NewCategoryStore() *CategoryStore {
	return &CategoryStore{
		categories: make(map[string]domain.Category),
	}
}

// Create implements store.CategoryStore.Create. The name-uniqueness check
// and the insert happen under one lock, so a lookup-or-create race ends
// with exactly one winner and ErrCategoryNameExists for the loser.
func (s *CategoryStore) Create(_ context.Context, category *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[category.Name]; exists {
		return nil, store.ErrCategoryNameExists
	}

	stored := *category
	stored.ID = uuid.New()
	s.categories[stored.Name] = stored
	result := stored
	return &result, nil
}

// GetByName implements store.CategoryStore.GetByName.
func (s *CategoryStore) GetByName(_ context.Context, name string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[name]
	if !ok {
		return nil, store.ErrCategoryNotFound
	}
	result := category
	return &result, nil
}

// List implements store.CategoryStore.List.
func (s *CategoryStore) List(_ context.Context) ([]*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Category, 0, len(s.categories))
	for _, category := range s.categories {
		copied := category
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// WithTx implements store.CategoryStore.WithTx. The in-memory store has no
// transactions.
func (s *CategoryStore) WithTx(_ *sql.Tx) store.CategoryStore {
	return s
}

// Transactor is a no-op store.Transactor for use with the in-memory
// stores: fn runs immediately with a nil transaction.
type Transactor struct{}

var _ store.Transactor = (*Transactor)(nil)

// NewTransactor creates a no-op Transactor.
func NewTransactor() *Transactor {
	return &Transactor{}
}

// InTransaction implements store.Transactor.
func (t *Transactor) InTransaction(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}
