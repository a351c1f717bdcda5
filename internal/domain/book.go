package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Maximum book field lengths enforced by NewBook and UpdateInfo.
const (
	maxTitleLength       = 250
	maxDescriptionLength = 1000
	maxAuthorLength      = 100
)

// BookStatus is the lifecycle state of a catalog entry.
type BookStatus string

// Book lifecycle states. A new book starts AVAILABLE; there is no terminal
// state, DISCONTINUED is reversible via Reactivate.
const (
	StatusAvailable    BookStatus = "AVAILABLE"
	StatusOutOfStock   BookStatus = "OUT_OF_STOCK"
	StatusDiscontinued BookStatus = "DISCONTINUED"
)

// IsValid reports whether s is one of the known lifecycle states.
func (s BookStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusOutOfStock, StatusDiscontinued:
		return true
	}
	return false
}

// Book is the catalog aggregate root. It owns its ISBN and Inventory value
// objects and enforces every cross-field invariant itself: external code
// must mutate a Book only through its methods, never by writing fields.
// Version is the optimistic-concurrency stamp maintained by the store.
type Book struct {
	ID            uuid.UUID  `json:"id"`
	ISBN          ISBN       `json:"isbn"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	Description   string     `json:"description"`
	Category      Category   `json:"category"`
	Inventory     Inventory  `json:"inventory"`
	Status        BookStatus `json:"status"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewBook creates a new Book in the AVAILABLE state with all copies of the
// initial quantity on the shelf. Every field is validated before anything is
// assigned; the ID and Version are set by the persistence layer on first save.
func NewBook(
	title, description, author string,
	isbn ISBN,
	category Category,
	initialQuantity int,
) (*Book, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if err := validateAuthor(author); err != nil {
		return nil, err
	}
	if isbn.IsZero() {
		return nil, NewValidationError("isbn", "is required", ErrValidation)
	}
	if category.Name == "" {
		return nil, NewValidationError("category", "is required", ErrValidation)
	}

	inventory, err := NewInventory(initialQuantity)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Book{
		ISBN:        isbn,
		Title:       strings.TrimSpace(title),
		Author:      strings.TrimSpace(author),
		Description: strings.TrimSpace(description),
		Category:    category,
		Inventory:   inventory,
		Status:      StatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ReconstructBook rebuilds a Book from persisted state. The inventory counts
// and status are re-checked so that corrupt rows surface as
// ErrInvariantViolation instead of silently producing a broken aggregate.
func ReconstructBook(
	id uuid.UUID,
	isbn ISBN,
	title, author, description string,
	category Category,
	inventory Inventory,
	status BookStatus,
	coverImageURL string,
	version int,
	createdAt, updatedAt time.Time,
) (*Book, error) {
	if !status.IsValid() {
		return nil, ErrInvariantViolation
	}
	return &Book{
		ID:            id,
		ISBN:          isbn,
		Title:         title,
		Author:        author,
		Description:   description,
		Category:      category,
		Inventory:     inventory,
		Status:        status,
		CoverImageURL: coverImageURL,
		Version:       version,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

// Reserve takes one available copy for a borrower. Reserving the last copy
// flips the book to OUT_OF_STOCK.
func (b *Book) Reserve() error {
	if b.Status != StatusAvailable {
		return ErrBookNotAvailable
	}
	if !b.Inventory.HasAvailable() {
		return ErrInsufficientAvailable
	}

	inventory, err := b.Inventory.DecreaseAvailable(1)
	if err != nil {
		return err
	}
	b.Inventory = inventory

	if !b.Inventory.HasAvailable() {
		b.Status = StatusOutOfStock
	}
	b.touch()
	return nil
}

// ReleaseReservation returns one borrowed copy to the shelf. An OUT_OF_STOCK
// book becomes AVAILABLE again; a DISCONTINUED book stays discontinued.
func (b *Book) ReleaseReservation() error {
	if b.Inventory.Borrowed() == 0 {
		return ErrNothingToRelease
	}

	inventory, err := b.Inventory.IncreaseAvailable(1)
	if err != nil {
		return err
	}
	b.Inventory = inventory

	if b.Status == StatusOutOfStock {
		b.Status = StatusAvailable
	}
	b.touch()
	return nil
}

// AddCopies registers quantity newly acquired copies. Restocking an
// OUT_OF_STOCK book makes it AVAILABLE again.
func (b *Book) AddCopies(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if b.Status == StatusDiscontinued {
		return ErrBookDiscontinued
	}

	inventory, err := b.Inventory.AddCopies(quantity)
	if err != nil {
		return err
	}
	b.Inventory = inventory

	if b.Status == StatusOutOfStock {
		b.Status = StatusAvailable
	}
	b.touch()
	return nil
}

// RemoveCopies retires quantity copies from the shelf. Only available copies
// can be removed. Removing the last available copy of an AVAILABLE book
// flips it to OUT_OF_STOCK.
func (b *Book) RemoveCopies(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	inventory, err := b.Inventory.RemoveCopies(quantity)
	if err != nil {
		return err
	}
	b.Inventory = inventory

	if b.Status == StatusAvailable && !b.Inventory.HasAvailable() {
		b.Status = StatusOutOfStock
	}
	b.touch()
	return nil
}

// Discontinue pulls the book from circulation. A book with borrowed copies
// cannot be discontinued until everything is returned.
func (b *Book) Discontinue() error {
	if b.Inventory.Borrowed() > 0 {
		return ErrHasBorrowedCopies
	}
	b.Status = StatusDiscontinued
	b.touch()
	return nil
}

// Reactivate brings a discontinued book back: AVAILABLE when copies remain
// on the shelf, OUT_OF_STOCK otherwise.
func (b *Book) Reactivate() error {
	if b.Status != StatusDiscontinued {
		return ErrNotDiscontinued
	}
	if b.Inventory.HasAvailable() {
		b.Status = StatusAvailable
	} else {
		b.Status = StatusOutOfStock
	}
	b.touch()
	return nil
}

// UpdateInfo overwrites the descriptive fields that are non-blank in the
// arguments. All supplied fields are validated before any of them is
// assigned, so a failure leaves the book untouched.
func (b *Book) UpdateInfo(title, description, author string) error {
	setTitle := strings.TrimSpace(title) != ""
	setDescription := strings.TrimSpace(description) != ""
	setAuthor := strings.TrimSpace(author) != ""

	if setTitle {
		if err := validateTitle(title); err != nil {
			return err
		}
	}
	if setDescription {
		if err := validateDescription(description); err != nil {
			return err
		}
	}
	if setAuthor {
		if err := validateAuthor(author); err != nil {
			return err
		}
	}

	if setTitle {
		b.Title = strings.TrimSpace(title)
	}
	if setDescription {
		b.Description = strings.TrimSpace(description)
	}
	if setAuthor {
		b.Author = strings.TrimSpace(author)
	}
	b.touch()
	return nil
}

// ChangeCategory moves the book to another category.
func (b *Book) ChangeCategory(category Category) error {
	if category.Name == "" {
		return NewValidationError("category", "is required", ErrValidation)
	}
	b.Category = category
	b.touch()
	return nil
}

// SetCoverImage uploads or replaces the cover image URL.
func (b *Book) SetCoverImage(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return NewValidationError("cover image URL", "cannot be empty", ErrValidation)
	}
	b.CoverImageURL = url
	b.touch()
	return nil
}

// RemoveCoverImage clears the cover image URL.
func (b *Book) RemoveCoverImage() {
	b.CoverImageURL = ""
	b.touch()
}

// CanBeDeleted reports whether the book may be removed from the catalog.
// Deletion is blocked while any copy is borrowed.
func (b *Book) CanBeDeleted() bool {
	return b.Inventory.Borrowed() == 0
}

// IsAvailableForBorrowing reports whether a reservation would succeed right now.
func (b *Book) IsAvailableForBorrowing() bool {
	return b.Status == StatusAvailable && b.Inventory.HasAvailable()
}

// IsPopular reports whether more than 80% of the copies are out. This is a
// reporting heuristic over the inventory snapshot, not a load-bearing rule.
func (b *Book) IsPopular() bool {
	return b.Inventory.BorrowRate() > 0.8
}

// NeedsReorder reports whether the available count has dropped to or below
// the given threshold.
func (b *Book) NeedsReorder(threshold int) bool {
	return b.Inventory.NeedsReorder(threshold)
}

func (b *Book) touch() {
	b.UpdatedAt = time.Now().UTC()
}

func validateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return NewValidationError("title", "cannot be empty", ErrValidation)
	}
	if len(trimmed) > maxTitleLength {
		return NewValidationError("title", "cannot exceed 250 characters", ErrValidation)
	}
	return nil
}

func validateDescription(description string) error {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return NewValidationError("description", "cannot be empty", ErrValidation)
	}
	if len(trimmed) > maxDescriptionLength {
		return NewValidationError("description", "cannot exceed 1000 characters", ErrValidation)
	}
	return nil
}

func validateAuthor(author string) error {
	trimmed := strings.TrimSpace(author)
	if trimmed == "" {
		return NewValidationError("author", "cannot be empty", ErrValidation)
	}
	if len(trimmed) > maxAuthorLength {
		return NewValidationError("author", "cannot exceed 100 characters", ErrValidation)
	}
	return nil
}
