package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Maximum category field lengths enforced by NewCategory.
const maxCategoryNameLength = 100

// Category groups books under a shared, uniquely named label. Categories
// are looked up (or created) by name and shared across books by reference;
// they carry no inventory of their own.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCategory creates a new Category with a validated name.
// The ID is assigned by the persistence layer on first save.
func NewCategory(name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("category name", "cannot be empty", ErrValidation)
	}
	if len(name) > maxCategoryNameLength {
		return nil, NewValidationError("category name", "cannot exceed 100 characters", ErrValidation)
	}

	now := time.Now().UTC()
	return &Category{
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
