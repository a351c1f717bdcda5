// Package store defines the persistence ports for the catalog: the
// BookStore and CategoryStore interfaces, the sentinel errors their
// implementations surface, and the transaction helper that gives use cases
// a single transactional boundary.
//
// Implementations live elsewhere: PostgreSQL-backed stores under
// internal/platform/postgres, and in-memory versioned fakes under
// internal/store/memory for tests that exercise the optimistic-concurrency
// contract without a database.
package store
