// Package memory provides in-memory implementations of the store ports.
// They enforce the same contracts as the PostgreSQL implementations —
// version check-and-increment on save, ISBN and category-name uniqueness —
// so the concurrency behavior of the service layer can be tested without a
// database.
package memory
