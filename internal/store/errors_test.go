package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(ErrNotFound))
	assert.True(t, IsNotFoundError(ErrBookNotFound))
	assert.True(t, IsNotFoundError(ErrCategoryNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", ErrBookNotFound)))
	assert.False(t, IsNotFoundError(ErrDuplicate))

	assert.True(t, IsDuplicateError(ErrDuplicate))
	assert.True(t, IsDuplicateError(ErrISBNExists))
	assert.True(t, IsDuplicateError(ErrCategoryNameExists))
	assert.False(t, IsDuplicateError(ErrNotFound))

	assert.True(t, IsConcurrencyError(ErrConcurrentModification))
	assert.True(t, IsConcurrencyError(fmt.Errorf("save: %w", ErrConcurrentModification)))
	assert.False(t, IsConcurrencyError(ErrNotFound))
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection reset")
	err := NewStoreError("book", "save", "write failed", inner)

	assert.Contains(t, err.Error(), "save operation on book failed")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, inner)

	bare := NewStoreError("category", "list", "boom", nil)
	assert.Contains(t, bare.Error(), "list operation on category failed: boom")
	assert.Nil(t, errors.Unwrap(bare))
}
