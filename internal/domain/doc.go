// Package domain contains the catalog's core business model: the ISBN and
// Inventory value objects, the Book aggregate root with its lifecycle state
// machine, the Category entity, and the domain error taxonomy.
//
// All invariants live here. Entities are created through validating factory
// functions (NewBook, ParseISBN, NewInventory) and mutated only through
// their own methods; the persistence and service layers never reach into
// fields to change state.
package domain
