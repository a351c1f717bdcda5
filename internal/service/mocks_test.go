package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/store"
)

// conflictBookStore wraps a BookStore and fails every Save with the
// configured error, simulating a writer that always loses the version race.
type conflictBookStore struct {
	store.BookStore
	saveErr error
}

func (s *conflictBookStore) Save(_ context.Context, _ *domain.Book) (*domain.Book, error) {
	return nil, s.saveErr
}

func (s *conflictBookStore) WithTx(_ *sql.Tx) store.BookStore {
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
