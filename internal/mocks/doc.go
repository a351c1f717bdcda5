// Package mocks provides hand-written test doubles for the event-publisher
// port. The mock exposes function fields so tests can override individual
// methods without generated code.
package mocks
