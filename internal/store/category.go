package store

import (
	"context"
	"database/sql"

	"github.com/openshelf/catalog-service/internal/domain"
)

// CategoryStore defines the interface for category persistence.
// Category names are unique; lookup-or-create races are resolved by the
// uniqueness constraint, surfacing ErrCategoryNameExists on the losing writer.
type CategoryStore interface {
	// Create persists a new category, assigns its identity and returns the
	// stored state. Returns ErrCategoryNameExists when the name is taken.
	Create(ctx context.Context, category *domain.Category) (*domain.Category, error)

	// GetByName retrieves a category by its unique name.
	// Returns ErrCategoryNotFound if no such category exists.
	GetByName(ctx context.Context, name string) (*domain.Category, error)

	// List returns all categories ordered by name.
	List(ctx context.Context) ([]*domain.Category, error)

	// WithTx returns a new CategoryStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CategoryStore
}
