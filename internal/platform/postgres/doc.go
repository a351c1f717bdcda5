// Package postgres provides PostgreSQL implementations of the store ports.
// Writes use plain SQL with explicit version checks so optimistic
// concurrency failures surface as store.ErrConcurrentModification; reads
// are built with goqu. Database errors are translated to store sentinels
// via MapError so callers never see driver-level error types.
package postgres
