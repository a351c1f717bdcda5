package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/store"
)

func newBook(t *testing.T, rawISBN, title string) *domain.Book {
	t.Helper()

	isbn, err := domain.ParseISBN(rawISBN)
	require.NoError(t, err)
	category, err := domain.NewCategory("Fiction", "")
	require.NoError(t, err)
	book, err := domain.NewBook(title, "A description.", "Some Author", isbn, *category, 3)
	require.NoError(t, err)
	return book
}

func TestBookStoreSaveAssignsIdentityAndVersion(t *testing.T) {
	t.Parallel()

	s := NewBookStore()
	book := newBook(t, "9780306406157", "First")

	saved, err := s.Save(context.Background(), book)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, 1, saved.Version)
	// The argument is untouched; identity lives on the returned copy.
	assert.Equal(t, uuid.Nil, book.ID)

	loaded, err := s.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, loaded.ID)
	assert.Equal(t, "First", loaded.Title)
}

func TestBookStoreSaveRejectsDuplicateISBN(t *testing.T) {
	t.Parallel()

	s := NewBookStore()
	_, err := s.Save(context.Background(), newBook(t, "9780306406157", "First"))
	require.NoError(t, err)

	_, err = s.Save(context.Background(), newBook(t, "9780306406157", "Second"))
	assert.ErrorIs(t, err, store.ErrISBNExists)
}

func TestBookStoreSaveIncrementsVersion(t *testing.T) {
	t.Parallel()

	s := NewBookStore()
	saved, err := s.Save(context.Background(), newBook(t, "9780306406157", "First"))
	require.NoError(t, err)

	require.NoError(t, saved.Reserve())
	updated, err := s.Save(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
}

func TestBookStoreSaveDetectsStaleVersion(t *testing.T) {
	t.Parallel()

	s := NewBookStore()
	saved, err := s.Save(context.Background(), newBook(t, "9780306406157", "First"))
	require.NoError(t, err)

	// Two actors load the same version.
	first, err := s.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	second, err := s.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)

	require.NoError(t, first.Reserve())
	_, err = s.Save(context.Background(), first)
	require.NoError(t, err)

	// The second writer is now stale.
	require.NoError(t, second.Reserve())
	_, err = s.Save(context.Background(), second)
	assert.ErrorIs(t, err, store.ErrConcurrentModification)

	// The committed state reflects only the first write.
	current, err := s.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Inventory.Borrowed())
}

func TestBookStoreConcurrentSavesExactlyOneWins(t *testing.T) {
	t.Parallel()

	s := NewBookStore()
	saved, err := s.Save(context.Background(), newBook(t, "9780306406157", "First"))
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			book, err := s.GetByID(context.Background(), saved.ID)
			if err != nil {
				results <- err
				return
			}
			book.Version = saved.Version // all writers target the same loaded version
			if err := book.Reserve(); err != nil {
				results <- err
				return
			}
			_, err = s.Save(context.Background(), book)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case store.IsConcurrencyError(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}

func TestBookStoreSaveUnknownIDFails(t *testing.T) {
	t.Parallel()

	s := NewBookStore()
	book := newBook(t, "9780306406157", "First")
	book.ID = uuid.New()
	book.Version = 1

	_, err := s.Save(context.Background(), book)
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestBookStoreQueries(t *testing.T) {
	t.Parallel()

	s := NewBookStore()
	ctx := context.Background()

	first, err := s.Save(ctx, newBook(t, "9780306406157", "Database Systems"))
	require.NoError(t, err)
	_, err = s.Save(ctx, newBook(t, "0306406152", "Compiler Construction"))
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "Compiler Construction", all[0].Title, "results ordered by title")

	// Drain the first book so it drops out of the available list.
	for i := 0; i < 3; i++ {
		require.NoError(t, first.Reserve())
	}
	first, err = s.Save(ctx, first)
	require.NoError(t, err)
	require.Equal(t, domain.StatusOutOfStock, first.Status)

	available, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Compiler Construction", available[0].Title)

	outOfStock, err := s.ListByStatus(ctx, domain.StatusOutOfStock)
	require.NoError(t, err)
	require.Len(t, outOfStock, 1)
	assert.Equal(t, "Database Systems", outOfStock[0].Title)

	matches, err := s.Search(ctx, "dataBASE")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Database Systems", matches[0].Title)

	byAuthor, err := s.Search(ctx, "some author")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	isbn, err := domain.ParseISBN("0306406152")
	require.NoError(t, err)
	exists, err := s.ExistsByISBN(ctx, isbn)
	require.NoError(t, err)
	assert.True(t, exists)

	byISBN, err := s.GetByISBN(ctx, isbn)
	require.NoError(t, err)
	assert.Equal(t, "Compiler Construction", byISBN.Title)
}

func TestBookStoreDelete(t *testing.T) {
	t.Parallel()

	s := NewBookStore()
	ctx := context.Background()

	saved, err := s.Save(ctx, newBook(t, "9780306406157", "First"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, saved.ID))
	assert.ErrorIs(t, s.Delete(ctx, saved.ID), store.ErrBookNotFound)

	_, err = s.GetByID(ctx, saved.ID)
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestCategoryStoreCreateAndLookup(t *testing.T) {
	t.Parallel()

	s := NewCategoryStore()
	ctx := context.Background()

	category, err := domain.NewCategory("Science", "")
	require.NoError(t, err)

	created, err := s.Create(ctx, category)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	loaded, err := s.GetByName(ctx, "Science")
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)

	_, err = s.GetByName(ctx, "Missing")
	assert.ErrorIs(t, err, store.ErrCategoryNotFound)

	duplicate, err := domain.NewCategory("Science", "again")
	require.NoError(t, err)
	_, err = s.Create(ctx, duplicate)
	assert.ErrorIs(t, err, store.ErrCategoryNameExists)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCategoryStoreConcurrentCreateOneWinner(t *testing.T) {
	t.Parallel()

	s := NewCategoryStore()
	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			category, err := domain.NewCategory("Science", "")
			if err != nil {
				results <- err
				return
			}
			_, err = s.Create(context.Background(), category)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case store.IsDuplicateError(err):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, losses)
}
