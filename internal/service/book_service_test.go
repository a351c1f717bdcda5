package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/events"
	"github.com/openshelf/catalog-service/internal/mocks"
	"github.com/openshelf/catalog-service/internal/service"
	"github.com/openshelf/catalog-service/internal/store"
	"github.com/openshelf/catalog-service/internal/store/memory"
)

type fixture struct {
	svc        service.BookService
	books      *memory.BookStore
	categories *memory.CategoryStore
	publisher  *mocks.MockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		books:      memory.NewBookStore(),
		categories: memory.NewCategoryStore(),
		publisher:  &mocks.MockPublisher{},
	}
	svc, err := service.NewBookService(f.books, f.categories, memory.NewTransactor(), f.publisher, testLogger())
	require.NoError(t, err)
	f.svc = svc
	return f
}

func createCommand() service.CreateBookCommand {
	return service.CreateBookCommand{
		ISBN:            "978-0-306-40615-7",
		Title:           "Database Systems",
		Description:     "A thorough treatment of database internals.",
		Author:          "Jane Scholar",
		Category:        "Computing",
		InitialQuantity: 3,
	}
}

func (f *fixture) mustCreate(t *testing.T) *domain.Book {
	t.Helper()

	book, err := f.svc.CreateBook(context.Background(), createCommand())
	require.NoError(t, err)
	return book
}

func TestNewBookServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	books := memory.NewBookStore()
	categories := memory.NewCategoryStore()
	transactor := memory.NewTransactor()
	publisher := &mocks.MockPublisher{}

	_, err := service.NewBookService(nil, categories, transactor, publisher, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = service.NewBookService(books, nil, transactor, publisher, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = service.NewBookService(books, categories, nil, publisher, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = service.NewBookService(books, categories, transactor, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateBook(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)

	assert.NotEqual(t, uuid.Nil, book.ID)
	assert.Equal(t, 1, book.Version)
	assert.Equal(t, domain.StatusAvailable, book.Status)
	assert.Equal(t, "9780306406157", book.ISBN.String())
	assert.Equal(t, 3, book.Inventory.Available())

	// The category was created on first use.
	category, err := f.categories.GetByName(context.Background(), "Computing")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, category.ID)

	// BOOK_CREATED went out synchronously after the commit.
	published := f.publisher.PublishedSync()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeBookCreated, published[0].Type)
	assert.Equal(t, book.ID, published[0].BookID)

	var payload events.CreatedPayload
	require.NoError(t, published[0].UnmarshalPayload(&payload))
	assert.Equal(t, "9780306406157", payload.ISBN)
	assert.Equal(t, "Database Systems", payload.Title)
}

func TestCreateBookReusesExistingCategory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := f.mustCreate(t)

	cmd := createCommand()
	cmd.ISBN = "0306406152"
	cmd.Title = "Compilers"
	second, err := f.svc.CreateBook(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, first.Category.ID, second.Category.ID)

	all, err := f.categories.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateBookRejectsDuplicateISBN(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mustCreate(t)

	_, err := f.svc.CreateBook(context.Background(), createCommand())
	assert.ErrorIs(t, err, store.ErrISBNExists)

	var svcErr *service.BookServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "create_book", svcErr.Operation)

	// Only the first create published an event.
	assert.Len(t, f.publisher.PublishedSync(), 1)
}

func TestCreateBookRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	bad := createCommand()
	bad.ISBN = "9780306406158" // checksum is off by one
	_, err := f.svc.CreateBook(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrInvalidISBNChecksum)

	bad = createCommand()
	bad.Title = ""
	_, err = f.svc.CreateBook(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad = createCommand()
	bad.InitialQuantity = -1
	_, err = f.svc.CreateBook(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	// Nothing was persisted or published.
	all, listErr := f.svc.ListBooks(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, all)
	assert.Empty(t, f.publisher.PublishedSync())
}

func TestCreateBookSurvivesPublishFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.publisher.DefaultError = errors.New("broker unreachable")

	book, err := f.svc.CreateBook(context.Background(), createCommand())
	require.NoError(t, err, "a delivery failure must not undo the committed create")

	loaded, err := f.svc.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, loaded.ID)
}

func TestUpdateBookOverwritesOnlyNonBlankFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)

	updated, err := f.svc.UpdateBook(context.Background(), service.UpdateBookCommand{
		ID:    book.ID,
		Title: "Database Systems, 2nd Edition",
	})
	require.NoError(t, err)

	assert.Equal(t, "Database Systems, 2nd Edition", updated.Title)
	assert.Equal(t, book.Author, updated.Author)
	assert.Equal(t, book.Description, updated.Description)
	assert.Equal(t, book.Version+1, updated.Version)

	async := f.publisher.PublishedAsync()
	require.Len(t, async, 1)
	assert.Equal(t, events.TypeBookUpdated, async[0].Type)
}

func TestUpdateBookMovesCategory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)

	updated, err := f.svc.UpdateBook(context.Background(), service.UpdateBookCommand{
		ID:       book.ID,
		Category: "Reference",
	})
	require.NoError(t, err)
	assert.Equal(t, "Reference", updated.Category.Name)

	all, err := f.categories.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateBookValidationLeavesBookUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)

	longTitle := make([]byte, 251)
	for i := range longTitle {
		longTitle[i] = 'x'
	}
	_, err := f.svc.UpdateBook(context.Background(), service.UpdateBookCommand{
		ID:    book.ID,
		Title: string(longTitle),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	loaded, err := f.svc.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, loaded.Title)
	assert.Equal(t, book.Version, loaded.Version)
	assert.Empty(t, f.publisher.PublishedAsync())
}

func TestReserveBook(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	userID := uuid.New()

	reserved, err := f.svc.ReserveBook(context.Background(), book.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, reserved.Inventory.Available())
	assert.Equal(t, 1, reserved.Inventory.Borrowed())

	async := f.publisher.PublishedAsync()
	require.Len(t, async, 1)
	assert.Equal(t, events.TypeBookReserved, async[0].Type)

	var payload events.ReservedPayload
	require.NoError(t, async[0].UnmarshalPayload(&payload))
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, book.Title, payload.Title)
}

func TestReserveBookDrainsToOutOfStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	ctx := context.Background()

	var last *domain.Book
	for i := 0; i < 3; i++ {
		var err error
		last, err = f.svc.ReserveBook(ctx, book.ID, uuid.New())
		require.NoError(t, err)
	}
	assert.Equal(t, domain.StatusOutOfStock, last.Status)

	_, err := f.svc.ReserveBook(ctx, book.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrBookNotAvailable)
}

func TestReleaseBook(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	ctx := context.Background()

	_, err := f.svc.ReserveBook(ctx, book.ID, uuid.New())
	require.NoError(t, err)

	released, err := f.svc.ReleaseBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, released.Inventory.Available())
	assert.Equal(t, 0, released.Inventory.Borrowed())

	async := f.publisher.PublishedAsync()
	require.Len(t, async, 2)
	assert.Equal(t, events.TypeBookReturned, async[1].Type)
}

func TestReleaseBookWithNothingBorrowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)

	_, err := f.svc.ReleaseBook(context.Background(), book.ID)
	assert.ErrorIs(t, err, domain.ErrNothingToRelease)
}

func TestAddAndRemoveCopies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	ctx := context.Background()

	grown, err := f.svc.AddCopies(ctx, book.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, grown.Inventory.Total())

	shrunk, err := f.svc.RemoveCopies(ctx, book.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, shrunk.Inventory.Total())
	assert.Equal(t, domain.StatusOutOfStock, shrunk.Status)

	_, err = f.svc.RemoveCopies(ctx, book.ID, 1)
	assert.ErrorIs(t, err, domain.ErrExceedsAvailable)

	async := f.publisher.PublishedAsync()
	require.Len(t, async, 2)
	assert.Equal(t, events.TypeBookUpdated, async[0].Type)
	assert.Equal(t, events.TypeBookUpdated, async[1].Type)
}

func TestDiscontinueAndReactivate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	ctx := context.Background()

	discontinued, err := f.svc.DiscontinueBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDiscontinued, discontinued.Status)

	_, err = f.svc.ReserveBook(ctx, book.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrBookNotAvailable)

	_, err = f.svc.AddCopies(ctx, book.ID, 1)
	assert.ErrorIs(t, err, domain.ErrBookDiscontinued)

	reactivated, err := f.svc.ReactivateBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, reactivated.Status)
}

func TestDiscontinueBlockedByBorrowedCopies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	ctx := context.Background()

	_, err := f.svc.ReserveBook(ctx, book.ID, uuid.New())
	require.NoError(t, err)

	_, err = f.svc.DiscontinueBook(ctx, book.ID)
	assert.ErrorIs(t, err, domain.ErrHasBorrowedCopies)
}

func TestDeleteBook(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteBook(ctx, book.ID))

	_, err := f.svc.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	async := f.publisher.PublishedAsync()
	require.Len(t, async, 1)
	assert.Equal(t, events.TypeBookDeleted, async[0].Type)

	var payload events.DeletedPayload
	require.NoError(t, async[0].UnmarshalPayload(&payload))
	assert.Equal(t, book.ISBN.String(), payload.ISBN)
}

func TestDeleteBookBlockedByBorrowedCopies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	ctx := context.Background()

	_, err := f.svc.ReserveBook(ctx, book.ID, uuid.New())
	require.NoError(t, err)

	err = f.svc.DeleteBook(ctx, book.ID)
	assert.ErrorIs(t, err, domain.ErrHasBorrowedCopies)

	// Still in the catalog.
	_, err = f.svc.GetBook(ctx, book.ID)
	assert.NoError(t, err)
}

func TestCoverImageLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)
	ctx := context.Background()

	withCover, err := f.svc.SetBookCover(ctx, book.ID, "https://covers.example.com/9780306406157.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://covers.example.com/9780306406157.jpg", withCover.CoverImageURL)

	_, err = f.svc.SetBookCover(ctx, book.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	without, err := f.svc.RemoveBookCover(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, without.CoverImageURL)
}

func TestQueries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	first := f.mustCreate(t)

	cmd := createCommand()
	cmd.ISBN = "0306406152"
	cmd.Title = "Compilers"
	cmd.InitialQuantity = 2
	second, err := f.svc.CreateBook(ctx, cmd)
	require.NoError(t, err)

	all, err := f.svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byISBN, err := f.svc.GetBookByISBN(ctx, "978-0-306-40615-7")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byISBN.ID)

	_, err = f.svc.GetBookByISBN(ctx, "not-an-isbn")
	assert.ErrorIs(t, err, domain.ErrInvalidISBNFormat)

	matches, err := f.svc.SearchBooks(ctx, "compil")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, second.ID, matches[0].ID)

	_, err = f.svc.ListBooksByStatus(ctx, domain.BookStatus("BROKEN"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	available, err := f.svc.ListAvailableBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 2)
}

func TestListPopularBooks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// 2 of 3 copies out: 66% borrow rate, not popular.
	notPopular := f.mustCreate(t)
	for i := 0; i < 2; i++ {
		_, err := f.svc.ReserveBook(ctx, notPopular.ID, uuid.New())
		require.NoError(t, err)
	}

	// 2 of 2 copies out: 100% borrow rate, popular.
	cmd := createCommand()
	cmd.ISBN = "0306406152"
	cmd.Title = "Compilers"
	cmd.InitialQuantity = 2
	popular, err := f.svc.CreateBook(ctx, cmd)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := f.svc.ReserveBook(ctx, popular.ID, uuid.New())
		require.NoError(t, err)
	}

	got, err := f.svc.ListPopularBooks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, popular.ID, got[0].ID)
}

func TestMutationSurfacesConcurrentModification(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := f.mustCreate(t)

	conflicting := &conflictBookStore{
		BookStore: f.books,
		saveErr:   store.ErrConcurrentModification,
	}
	svc, err := service.NewBookService(conflicting, f.categories, memory.NewTransactor(), f.publisher, testLogger())
	require.NoError(t, err)

	_, err = svc.ReserveBook(context.Background(), book.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrConcurrentModification)

	// No event for a mutation that never committed.
	assert.Empty(t, f.publisher.PublishedAsync())
}

func TestGetBookNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.GetBook(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrBookNotFound)
	assert.True(t, store.IsNotFoundError(err))
}
