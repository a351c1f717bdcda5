package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/store"
)

// CategoryStore implements the store.CategoryStore interface using a
// PostgreSQL database as the storage backend.
type CategoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCategoryStore creates a new PostgreSQL implementation of the
// CategoryStore interface. If logger is nil, a default logger will be used.
func NewCategoryStore(db store.DBTX, logger *slog.Logger) *CategoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "category_store")),
	}
}

// Ensure CategoryStore implements store.CategoryStore interface
var _ store.CategoryStore = (*CategoryStore)(nil)

// WithTx implements store.CategoryStore.WithTx.
func (s *CategoryStore) WithTx(tx *sql.Tx) store.CategoryStore {
	if tx == nil {
		return s
	}
	return &CategoryStore{db: tx, logger: s.logger}
}

// Create implements store.CategoryStore.Create. The unique constraint on
// name decides lookup-or-create races: the loser gets
// store.ErrCategoryNameExists.
func (s *CategoryStore) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	const query = `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	stored := *category
	stored.ID = uuid.New()

	_, err := s.db.ExecContext(ctx, query,
		stored.ID,
		stored.Name,
		stored.Description,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		return nil, MapUniqueViolation(MapError(err), store.ErrCategoryNameExists)
	}

	s.logger.Debug("created category",
		slog.String("category_id", stored.ID.String()),
		slog.String("name", stored.Name))
	return &stored, nil
}

// GetByName implements store.CategoryStore.GetByName.
func (s *CategoryStore) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	const query = `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		WHERE name = $1`

	var category domain.Category
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCategoryNotFound
		}
		return nil, MapError(err)
	}
	return &category, nil
}

// List implements store.CategoryStore.List.
func (s *CategoryStore) List(ctx context.Context) ([]*domain.Category, error) {
	const query = `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var categories []*domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &category)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return categories, nil
}
