// Package service contains the use-case orchestration for the catalog.
// Services load aggregates through the store ports, let the aggregate
// mutate itself, persist inside a single transaction, and publish the
// committed transition as an event. Event delivery failures never undo a
// committed mutation, and stale-version conflicts are surfaced to the
// caller rather than retried.
package service
