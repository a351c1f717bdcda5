package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/events"
	"github.com/openshelf/catalog-service/internal/platform/logger"
	"github.com/openshelf/catalog-service/internal/store"
)

// CreateBookCommand carries the caller-supplied fields for a new catalog
// entry. Category is a name; the matching category is looked up or created.
type CreateBookCommand struct {
	ISBN            string
	Title           string
	Description     string
	Author          string
	Category        string
	InitialQuantity int
	CoverImageURL   string
}

// UpdateBookCommand carries the descriptive fields to overwrite on an
// existing book. Blank fields are left unchanged; a non-blank Category moves
// the book, creating the category if it does not exist yet.
type UpdateBookCommand struct {
	ID          uuid.UUID
	Title       string
	Description string
	Author      string
	Category    string
}

// BookService orchestrates catalog use cases: load the aggregate, let it
// mutate itself, persist inside one transaction, then announce the committed
// transition as an event. Stale-version saves surface as
// store.ErrConcurrentModification; the service never retries them.
type BookService interface {
	// CreateBook registers a new book and publishes BOOK_CREATED.
	// Returns store.ErrISBNExists when the ISBN is already cataloged.
	CreateBook(ctx context.Context, cmd CreateBookCommand) (*domain.Book, error)

	// UpdateBook overwrites the non-blank descriptive fields of cmd and
	// publishes BOOK_UPDATED.
	UpdateBook(ctx context.Context, cmd UpdateBookCommand) (*domain.Book, error)

	// DeleteBook removes a book and publishes BOOK_DELETED. A book with
	// borrowed copies cannot be deleted.
	DeleteBook(ctx context.Context, bookID uuid.UUID) error

	// GetBook retrieves a book by ID.
	GetBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error)

	// GetBookByISBN retrieves a book by its ISBN, given in any accepted
	// input form (hyphens and spaces are ignored).
	GetBookByISBN(ctx context.Context, rawISBN string) (*domain.Book, error)

	// ListBooks returns the whole catalog ordered by title.
	ListBooks(ctx context.Context) ([]*domain.Book, error)

	// ListAvailableBooks returns books a reservation would succeed on.
	ListAvailableBooks(ctx context.Context) ([]*domain.Book, error)

	// ListBooksByStatus returns books in the given lifecycle state.
	ListBooksByStatus(ctx context.Context, status domain.BookStatus) ([]*domain.Book, error)

	// SearchBooks returns books matching the keyword in title, author or
	// description.
	SearchBooks(ctx context.Context, keyword string) ([]*domain.Book, error)

	// ListPopularBooks returns books with more than 80% of copies out.
	ListPopularBooks(ctx context.Context) ([]*domain.Book, error)

	// ReserveBook takes one copy for the given borrower and publishes
	// BOOK_RESERVED.
	ReserveBook(ctx context.Context, bookID, userID uuid.UUID) (*domain.Book, error)

	// ReleaseBook returns one borrowed copy to the shelf and publishes
	// BOOK_RETURNED.
	ReleaseBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error)

	// AddCopies registers newly acquired copies and publishes BOOK_UPDATED.
	AddCopies(ctx context.Context, bookID uuid.UUID, quantity int) (*domain.Book, error)

	// RemoveCopies retires copies from the shelf and publishes BOOK_UPDATED.
	RemoveCopies(ctx context.Context, bookID uuid.UUID, quantity int) (*domain.Book, error)

	// DiscontinueBook pulls the book from circulation and publishes
	// BOOK_UPDATED.
	DiscontinueBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error)

	// ReactivateBook brings a discontinued book back and publishes
	// BOOK_UPDATED.
	ReactivateBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error)

	// SetBookCover uploads or replaces the cover image URL and publishes
	// BOOK_UPDATED.
	SetBookCover(ctx context.Context, bookID uuid.UUID, url string) (*domain.Book, error)

	// RemoveBookCover clears the cover image URL and publishes BOOK_UPDATED.
	RemoveBookCover(ctx context.Context, bookID uuid.UUID) (*domain.Book, error)
}

// bookServiceImpl implements the BookService interface.
type bookServiceImpl struct {
	books      store.BookStore
	categories store.CategoryStore
	transactor store.Transactor
	publisher  events.Publisher
	logger     *slog.Logger
}

// NewBookService creates a new BookService.
// It returns an error if any of the required dependencies are nil.
func NewBookService(
	books store.BookStore,
	categories store.CategoryStore,
	transactor store.Transactor,
	publisher events.Publisher,
	logger *slog.Logger,
) (BookService, error) {
	if books == nil {
		return nil, domain.NewValidationError("books", "cannot be nil", domain.ErrValidation)
	}
	if categories == nil {
		return nil, domain.NewValidationError("categories", "cannot be nil", domain.ErrValidation)
	}
	if transactor == nil {
		return nil, domain.NewValidationError("transactor", "cannot be nil", domain.ErrValidation)
	}
	if publisher == nil {
		return nil, domain.NewValidationError("publisher", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &bookServiceImpl{
		books:      books,
		categories: categories,
		transactor: transactor,
		publisher:  publisher,
		logger:     logger.With(slog.String("component", "book_service")),
	}, nil
}

// CreateBook implements BookService.CreateBook.
func (s *bookServiceImpl) CreateBook(ctx context.Context, cmd CreateBookCommand) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	isbn, err := domain.ParseISBN(cmd.ISBN)
	if err != nil {
		return nil, NewBookServiceError("create_book", "invalid isbn", err)
	}

	var saved *domain.Book
	err = s.transactor.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txBooks := s.books.WithTx(tx)
		txCategories := s.categories.WithTx(tx)

		exists, err := txBooks.ExistsByISBN(ctx, isbn)
		if err != nil {
			return NewBookServiceError("create_book", "failed to check isbn", err)
		}
		if exists {
			return NewBookServiceError("create_book", "isbn already cataloged", store.ErrISBNExists)
		}

		category, err := s.lookupOrCreateCategory(ctx, txCategories, cmd.Category)
		if err != nil {
			return err
		}

		book, err := domain.NewBook(
			cmd.Title, cmd.Description, cmd.Author,
			isbn, *category, cmd.InitialQuantity,
		)
		if err != nil {
			return NewBookServiceError("create_book", "invalid book", err)
		}
		if cmd.CoverImageURL != "" {
			if err := book.SetCoverImage(cmd.CoverImageURL); err != nil {
				return NewBookServiceError("create_book", "invalid cover image", err)
			}
		}

		saved, err = txBooks.Save(ctx, book)
		if err != nil {
			return NewBookServiceError("create_book", "failed to save book", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create book",
			slog.String("error", err.Error()),
			slog.String("isbn", isbn.String()))
		return nil, err
	}

	log.Info("created book",
		slog.String("book_id", saved.ID.String()),
		slog.String("isbn", saved.ISBN.String()),
		slog.String("title", saved.Title))

	// The mutation is durable at this point; a delivery failure must not
	// undo it, so the error is logged and dropped.
	if event, eventErr := events.NewBookCreated(saved.ID, saved.ISBN.String(), saved.Title); eventErr == nil {
		if publishErr := s.publisher.Publish(ctx, event); publishErr != nil {
			log.Error("failed to publish BOOK_CREATED event",
				slog.String("error", publishErr.Error()),
				slog.String("book_id", saved.ID.String()))
		}
	}
	return saved, nil
}

// UpdateBook implements BookService.UpdateBook.
func (s *bookServiceImpl) UpdateBook(ctx context.Context, cmd UpdateBookCommand) (*domain.Book, error) {
	saved, err := s.mutate(ctx, "update_book", cmd.ID,
		func(ctx context.Context, tx *sql.Tx, book *domain.Book) error {
			if err := book.UpdateInfo(cmd.Title, cmd.Description, cmd.Author); err != nil {
				return err
			}
			if cmd.Category != "" && cmd.Category != book.Category.Name {
				category, err := s.lookupOrCreateCategory(ctx, s.categories.WithTx(tx), cmd.Category)
				if err != nil {
					return err
				}
				return book.ChangeCategory(*category)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, saved)
	return saved, nil
}

// DeleteBook implements BookService.DeleteBook.
func (s *bookServiceImpl) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deleted *domain.Book
	err := s.transactor.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txBooks := s.books.WithTx(tx)

		book, err := txBooks.GetByID(ctx, bookID)
		if err != nil {
			return NewBookServiceError("delete_book", "failed to load book", err)
		}
		if !book.CanBeDeleted() {
			return NewBookServiceError("delete_book", "book has borrowed copies", domain.ErrHasBorrowedCopies)
		}
		if err := txBooks.Delete(ctx, bookID); err != nil {
			return NewBookServiceError("delete_book", "failed to delete book", err)
		}
		deleted = book
		return nil
	})
	if err != nil {
		log.Error("failed to delete book",
			slog.String("error", err.Error()),
			slog.String("book_id", bookID.String()))
		return err
	}

	log.Info("deleted book",
		slog.String("book_id", bookID.String()),
		slog.String("isbn", deleted.ISBN.String()))

	if event, eventErr := events.NewBookDeleted(deleted.ID, deleted.ISBN.String()); eventErr == nil {
		s.publisher.PublishAsync(ctx, event)
	}
	return nil
}

// GetBook implements BookService.GetBook.
func (s *bookServiceImpl) GetBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, NewBookServiceError("get_book", "failed to retrieve book", err)
	}
	return book, nil
}

// GetBookByISBN implements BookService.GetBookByISBN.
func (s *bookServiceImpl) GetBookByISBN(ctx context.Context, rawISBN string) (*domain.Book, error) {
	isbn, err := domain.ParseISBN(rawISBN)
	if err != nil {
		return nil, NewBookServiceError("get_book_by_isbn", "invalid isbn", err)
	}
	book, err := s.books.GetByISBN(ctx, isbn)
	if err != nil {
		return nil, NewBookServiceError("get_book_by_isbn", "failed to retrieve book", err)
	}
	return book, nil
}

// ListBooks implements BookService.ListBooks.
func (s *bookServiceImpl) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, NewBookServiceError("list_books", "failed to list books", err)
	}
	return books, nil
}

// ListAvailableBooks implements BookService.ListAvailableBooks.
func (s *bookServiceImpl) ListAvailableBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.books.ListAvailable(ctx)
	if err != nil {
		return nil, NewBookServiceError("list_available_books", "failed to list books", err)
	}
	return books, nil
}

// ListBooksByStatus implements BookService.ListBooksByStatus.
func (s *bookServiceImpl) ListBooksByStatus(ctx context.Context, status domain.BookStatus) ([]*domain.Book, error) {
	if !status.IsValid() {
		return nil, NewBookServiceError("list_books_by_status", "unknown status", domain.ErrValidation)
	}
	books, err := s.books.ListByStatus(ctx, status)
	if err != nil {
		return nil, NewBookServiceError("list_books_by_status", "failed to list books", err)
	}
	return books, nil
}

// SearchBooks implements BookService.SearchBooks.
func (s *bookServiceImpl) SearchBooks(ctx context.Context, keyword string) ([]*domain.Book, error) {
	books, err := s.books.Search(ctx, keyword)
	if err != nil {
		return nil, NewBookServiceError("search_books", "failed to search books", err)
	}
	return books, nil
}

// ListPopularBooks implements BookService.ListPopularBooks.
func (s *bookServiceImpl) ListPopularBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, NewBookServiceError("list_popular_books", "failed to list books", err)
	}
	popular := make([]*domain.Book, 0)
	for _, book := range books {
		if book.IsPopular() {
			popular = append(popular, book)
		}
	}
	return popular, nil
}

// ReserveBook implements BookService.ReserveBook.
func (s *bookServiceImpl) ReserveBook(ctx context.Context, bookID, userID uuid.UUID) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	saved, err := s.mutate(ctx, "reserve_book", bookID,
		func(_ context.Context, _ *sql.Tx, book *domain.Book) error {
			return book.Reserve()
		})
	if err != nil {
		return nil, err
	}

	log.Info("reserved book",
		slog.String("book_id", saved.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("available", saved.Inventory.Available()))

	if event, eventErr := events.NewBookReserved(saved.ID, saved.ISBN.String(), saved.Title, userID); eventErr == nil {
		s.publisher.PublishAsync(ctx, event)
	}
	return saved, nil
}

// ReleaseBook implements BookService.ReleaseBook.
func (s *bookServiceImpl) ReleaseBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	saved, err := s.mutate(ctx, "release_book", bookID,
		func(_ context.Context, _ *sql.Tx, book *domain.Book) error {
			return book.ReleaseReservation()
		})
	if err != nil {
		return nil, err
	}

	if event, eventErr := events.NewBookReturned(saved.ID, saved.ISBN.String(), saved.Title); eventErr == nil {
		s.publisher.PublishAsync(ctx, event)
	}
	return saved, nil
}

// AddCopies implements BookService.AddCopies.
func (s *bookServiceImpl) AddCopies(ctx context.Context, bookID uuid.UUID, quantity int) (*domain.Book, error) {
	saved, err := s.mutate(ctx, "add_copies", bookID,
		func(_ context.Context, _ *sql.Tx, book *domain.Book) error {
			return book.AddCopies(quantity)
		})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, saved)
	return saved, nil
}

// RemoveCopies implements BookService.RemoveCopies.
func (s *bookServiceImpl) RemoveCopies(ctx context.Context, bookID uuid.UUID, quantity int) (*domain.Book, error) {
	saved, err := s.mutate(ctx, "remove_copies", bookID,
		func(_ context.Context, _ *sql.Tx, book *domain.Book) error {
			return book.RemoveCopies(quantity)
		})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, saved)
	return saved, nil
}

// DiscontinueBook implements BookService.DiscontinueBook.
func (s *bookServiceImpl) DiscontinueBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	saved, err := s.mutate(ctx, "discontinue_book", bookID,
		func(_ context.Context, _ *sql.Tx, book *domain.Book) error {
			return book.Discontinue()
		})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, saved)
	return saved, nil
}

// ReactivateBook implements BookService.ReactivateBook.
func (s *bookServiceImpl) ReactivateBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	saved, err := s.mutate(ctx, "reactivate_book", bookID,
		func(_ context.Context, _ *sql.Tx, book *domain.Book) error {
			return book.Reactivate()
		})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, saved)
	return saved, nil
}

// SetBookCover implements BookService.SetBookCover.
func (s *bookServiceImpl) SetBookCover(ctx context.Context, bookID uuid.UUID, url string) (*domain.Book, error) {
	saved, err := s.mutate(ctx, "set_book_cover", bookID,
		func(_ context.Context, _ *sql.Tx, book *domain.Book) error {
			return book.SetCoverImage(url)
		})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, saved)
	return saved, nil
}

// RemoveBookCover implements BookService.RemoveBookCover.
func (s *bookServiceImpl) RemoveBookCover(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	saved, err := s.mutate(ctx, "remove_book_cover", bookID,
		func(_ context.Context, _ *sql.Tx, book *domain.Book) error {
			book.RemoveCoverImage()
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, saved)
	return saved, nil
}

// mutate is the shared load → apply → save cycle every mutation runs inside
// one transaction. The aggregate enforces its own invariants in apply; a
// stale version surfaces from Save as store.ErrConcurrentModification and is
// never retried here.
func (s *bookServiceImpl) mutate(
	ctx context.Context,
	operation string,
	bookID uuid.UUID,
	apply func(ctx context.Context, tx *sql.Tx, book *domain.Book) error,
) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var saved *domain.Book
	err := s.transactor.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txBooks := s.books.WithTx(tx)

		book, err := txBooks.GetByID(ctx, bookID)
		if err != nil {
			return NewBookServiceError(operation, "failed to load book", err)
		}
		if err := apply(ctx, tx, book); err != nil {
			var svcErr *BookServiceError
			if errors.As(err, &svcErr) {
				return err
			}
			return NewBookServiceError(operation, "mutation rejected", err)
		}
		saved, err = txBooks.Save(ctx, book)
		if err != nil {
			return NewBookServiceError(operation, "failed to save book", err)
		}
		return nil
	})
	if err != nil {
		log.Error("book mutation failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
			slog.String("book_id", bookID.String()))
		return nil, err
	}

	log.Debug("book mutation committed",
		slog.String("operation", operation),
		slog.String("book_id", saved.ID.String()),
		slog.Int("version", saved.Version))
	return saved, nil
}

// publishUpdated emits BOOK_UPDATED for a committed mutation on a
// fire-and-forget basis.
func (s *bookServiceImpl) publishUpdated(ctx context.Context, book *domain.Book) {
	if event, err := events.NewBookUpdated(book.ID, book.ISBN.String(), book.Title); err == nil {
		s.publisher.PublishAsync(ctx, event)
	}
}

// lookupOrCreateCategory resolves a category name, creating the category on
// first use. A concurrent create of the same name is resolved by re-reading
// after the unique constraint rejects the losing insert.
func (s *bookServiceImpl) lookupOrCreateCategory(
	ctx context.Context,
	categories store.CategoryStore,
	name string,
) (*domain.Category, error) {
	category, err := categories.GetByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !store.IsNotFoundError(err) {
		return nil, NewBookServiceError("lookup_category", "failed to look up category", err)
	}

	fresh, err := domain.NewCategory(name, "Auto-created category for "+name)
	if err != nil {
		return nil, NewBookServiceError("lookup_category", "invalid category name", err)
	}

	created, err := categories.Create(ctx, fresh)
	if err == nil {
		return created, nil
	}
	if store.IsDuplicateError(err) {
		// Lost the create race; the winner's row is what we want.
		return categories.GetByName(ctx, name)
	}
	return nil, NewBookServiceError("lookup_category", "failed to create category", err)
}
