// Package events defines the domain events the catalog emits on aggregate
// state transitions, the Publisher port through which use cases announce
// them, and an in-process publisher implementation.
package events
