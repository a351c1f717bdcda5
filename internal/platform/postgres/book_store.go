package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/store"
)

const dialectPostgres = "postgres"

// bookColumns are the columns selected for rehydrating a Book, with the
// owning category joined in.
var bookColumns = []any{
	goqu.I("b.id"), goqu.I("b.isbn"), goqu.I("b.title"), goqu.I("b.author"),
	goqu.I("b.description"), goqu.I("b.total_copies"), goqu.I("b.available_copies"),
	goqu.I("b.borrowed_copies"), goqu.I("b.status"), goqu.I("b.cover_image_url"),
	goqu.I("b.version"), goqu.I("b.created_at"), goqu.I("b.updated_at"),
	goqu.I("c.id").As("category_id"), goqu.I("c.name").As("category_name"),
	goqu.I("c.description").As("category_description"),
	goqu.I("c.created_at").As("category_created_at"),
	goqu.I("c.updated_at").As("category_updated_at"),
}

// BookStore implements the store.BookStore interface using a PostgreSQL
// database as the storage backend. Writes use plain SQL with an explicit
// version check-and-increment; reads are built with goqu so the search and
// list variants share one select shape.
type BookStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewBookStore creates a new PostgreSQL implementation of the BookStore
// interface. It accepts a database connection or transaction that should be
// initialized and managed by the caller. If logger is nil, a default logger
// will be used.
func NewBookStore(db store.DBTX, logger *slog.Logger) *BookStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BookStore{
		db:     db,
		logger: logger.With(slog.String("component", "book_store")),
	}
}

// Ensure BookStore implements store.BookStore interface
var _ store.BookStore = (*BookStore)(nil)

// WithTx implements store.BookStore.WithTx.
func (s *BookStore) WithTx(tx *sql.Tx) store.BookStore {
	if tx == nil {
		return s
	}
	return &BookStore{db: tx, logger: s.logger}
}

// Save implements store.BookStore.Save. Inserts assign a fresh identity and
// version 1; updates run the optimistic check-and-increment in a single
// UPDATE statement so there is no window between check and write.
func (s *BookStore) Save(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if book.ID == uuid.Nil {
		return s.insert(ctx, book)
	}
	return s.update(ctx, book)
}

func (s *BookStore) insert(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	const query = `
		INSERT INTO books (
			id, isbn, title, author, description, category_id,
			total_copies, available_copies, borrowed_copies,
			status, cover_image_url, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	stored := *book
	stored.ID = uuid.New()
	stored.Version = 1

	_, err := s.db.ExecContext(ctx, query,
		stored.ID,
		stored.ISBN.String(),
		stored.Title,
		stored.Author,
		stored.Description,
		stored.Category.ID,
		stored.Inventory.Total(),
		stored.Inventory.Available(),
		stored.Inventory.Borrowed(),
		string(stored.Status),
		stored.CoverImageURL,
		stored.Version,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		return nil, MapUniqueViolation(MapError(err), store.ErrISBNExists)
	}

	s.logger.Debug("inserted book",
		slog.String("book_id", stored.ID.String()),
		slog.String("isbn", stored.ISBN.String()))
	return &stored, nil
}

func (s *BookStore) update(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	const query = `
		UPDATE books
		SET title = $1, author = $2, description = $3, category_id = $4,
		    total_copies = $5, available_copies = $6, borrowed_copies = $7,
		    status = $8, cover_image_url = $9, updated_at = $10,
		    version = version + 1
		WHERE id = $11 AND version = $12`

	result, err := s.db.ExecContext(ctx, query,
		book.Title,
		book.Author,
		book.Description,
		book.Category.ID,
		book.Inventory.Total(),
		book.Inventory.Available(),
		book.Inventory.Borrowed(),
		string(book.Status),
		book.CoverImageURL,
		book.UpdatedAt,
		book.ID,
		book.Version,
	)
	if err != nil {
		return nil, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the row is gone or another writer got there first.
		// One extra read distinguishes the two for the caller.
		var exists bool
		checkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, book.ID).Scan(&exists)
		if checkErr != nil {
			return nil, MapError(checkErr)
		}
		if !exists {
			return nil, store.ErrBookNotFound
		}
		s.logger.Debug("stale version rejected",
			slog.String("book_id", book.ID.String()),
			slog.Int("version", book.Version))
		return nil, store.ErrConcurrentModification
	}

	stored := *book
	stored.Version = book.Version + 1
	return &stored, nil
}

// GetByID implements store.BookStore.GetByID.
func (s *BookStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	return s.getOne(ctx, goqu.Ex{"b.id": id})
}

// GetByISBN implements store.BookStore.GetByISBN.
func (s *BookStore) GetByISBN(ctx context.Context, isbn domain.ISBN) (*domain.Book, error) {
	return s.getOne(ctx, goqu.Ex{"b.isbn": isbn.String()})
}

// List implements store.BookStore.List.
func (s *BookStore) List(ctx context.Context) ([]*domain.Book, error) {
	return s.selectMany(ctx, nil)
}

// ListByStatus implements store.BookStore.ListByStatus.
func (s *BookStore) ListByStatus(ctx context.Context, status domain.BookStatus) ([]*domain.Book, error) {
	return s.selectMany(ctx, goqu.Ex{"b.status": string(status)})
}

// ListAvailable implements store.BookStore.ListAvailable.
func (s *BookStore) ListAvailable(ctx context.Context) ([]*domain.Book, error) {
	return s.selectMany(ctx, goqu.And(
		goqu.Ex{"b.status": string(domain.StatusAvailable)},
		goqu.C("available_copies").Table("b").Gt(0),
	))
}

// Search implements store.BookStore.Search with ILIKE substring matching
// over title, author and description.
func (s *BookStore) Search(ctx context.Context, keyword string) ([]*domain.Book, error) {
	pattern := "%" + keyword + "%"
	return s.selectMany(ctx, goqu.Or(
		goqu.C("title").Table("b").ILike(pattern),
		goqu.C("author").Table("b").ILike(pattern),
		goqu.C("description").Table("b").ILike(pattern),
	))
}

// ExistsByISBN implements store.BookStore.ExistsByISBN.
func (s *BookStore) ExistsByISBN(ctx context.Context, isbn domain.ISBN) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`, isbn.String()).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// Delete implements store.BookStore.Delete.
func (s *BookStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrBookNotFound
	}
	return nil
}

// baseSelect is the shared select-with-category-join every read uses.
func baseSelect() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(goqu.T("books").As("b")).
		Join(goqu.T("categories").As("c"), goqu.On(goqu.Ex{"b.category_id": goqu.I("c.id")})).
		Select(bookColumns...)
}

func (s *BookStore) getOne(ctx context.Context, where goqu.Expression) (*domain.Book, error) {
	sqlQuery, args, err := baseSelect().Where(where).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	book, err := scanBook(s.db.QueryRowContext(ctx, sqlQuery, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrBookNotFound
		}
		return nil, MapError(err)
	}
	return book, nil
}

func (s *BookStore) selectMany(ctx context.Context, where goqu.Expression) ([]*domain.Book, error) {
	stmt := baseSelect().Order(goqu.I("b.title").Asc())
	if where != nil {
		stmt = stmt.Where(where)
	}
	sqlQuery, args, err := stmt.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, MapError(err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return books, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBook rehydrates one joined row into a Book aggregate, re-verifying
// the inventory invariant and status on the way in.
func scanBook(row rowScanner) (*domain.Book, error) {
	var (
		id                         uuid.UUID
		rawISBN                    string
		title, author, description string
		total, available, borrowed int
		status                     string
		coverImageURL              string
		version                    int
		createdAt, updatedAt       time.Time

		categoryID                           uuid.UUID
		categoryName, categoryDescription    string
		categoryCreatedAt, categoryUpdatedAt time.Time
	)

	err := row.Scan(
		&id, &rawISBN, &title, &author, &description,
		&total, &available, &borrowed, &status, &coverImageURL,
		&version, &createdAt, &updatedAt,
		&categoryID, &categoryName, &categoryDescription,
		&categoryCreatedAt, &categoryUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	isbn, err := domain.ParseISBN(rawISBN)
	if err != nil {
		return nil, fmt.Errorf("%w: stored isbn %q: %v", domain.ErrInvariantViolation, rawISBN, err)
	}
	inventory, err := domain.ReconstructInventory(total, available, borrowed)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", id, err)
	}

	category := domain.Category{
		ID:          categoryID,
		Name:        categoryName,
		Description: categoryDescription,
		CreatedAt:   categoryCreatedAt,
		UpdatedAt:   categoryUpdatedAt,
	}

	return domain.ReconstructBook(
		id, isbn, title, author, description,
		category, inventory, domain.BookStatus(status),
		coverImageURL, version, createdAt, updatedAt,
	)
}
