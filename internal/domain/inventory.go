package domain

import "encoding/json"

// Inventory tracks the copy counts for a single book. It is an immutable
// value: every operation returns a new Inventory and the aggregate replaces
// its copy atomically. The invariant available+borrowed==total holds for
// every Inventory this package hands out.
type Inventory struct {
	total     int
	available int
	borrowed  int
}

// NewInventory creates the initial inventory for a newly registered book:
// all copies available, none borrowed.
func NewInventory(total int) (Inventory, error) {
	if total < 0 {
		return Inventory{}, NewValidationError("quantity", "cannot be negative", ErrInvalidQuantity)
	}
	return Inventory{total: total, available: total, borrowed: 0}, nil
}

// ReconstructInventory rebuilds an inventory from persisted counts.
// Unlike the operation methods, a failure here means the stored data is
// corrupt, so it returns ErrInvariantViolation rather than a validation error.
func ReconstructInventory(total, available, borrowed int) (Inventory, error) {
	if total < 0 || available < 0 || borrowed < 0 {
		return Inventory{}, ErrInvariantViolation
	}
	if available+borrowed != total {
		return Inventory{}, ErrInvariantViolation
	}
	return Inventory{total: total, available: available, borrowed: borrowed}, nil
}

// inventoryJSON is the wire shape for Inventory, which keeps its fields
// unexported to force mutation through the operation methods.
type inventoryJSON struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Borrowed  int `json:"borrowed"`
}

// MarshalJSON serializes the three copy counts.
func (inv Inventory) MarshalJSON() ([]byte, error) {
	return json.Marshal(inventoryJSON{
		Total:     inv.total,
		Available: inv.available,
		Borrowed:  inv.borrowed,
	})
}

// UnmarshalJSON deserializes and re-verifies the invariant.
func (inv *Inventory) UnmarshalJSON(data []byte) error {
	var raw inventoryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rebuilt, err := ReconstructInventory(raw.Total, raw.Available, raw.Borrowed)
	if err != nil {
		return err
	}
	*inv = rebuilt
	return nil
}

// Total returns the total number of copies.
func (inv Inventory) Total() int { return inv.total }

// Available returns the number of copies on the shelf.
func (inv Inventory) Available() int { return inv.available }

// Borrowed returns the number of copies currently out.
func (inv Inventory) Borrowed() int { return inv.borrowed }

// DecreaseAvailable moves count copies from available to borrowed,
// as happens when copies are reserved.
func (inv Inventory) DecreaseAvailable(count int) (Inventory, error) {
	if count <= 0 {
		return Inventory{}, ErrInvalidQuantity
	}
	if inv.available-count < 0 {
		return Inventory{}, ErrInsufficientAvailable
	}
	return Inventory{
		total:     inv.total,
		available: inv.available - count,
		borrowed:  inv.borrowed + count,
	}, nil
}

// IncreaseAvailable moves count copies from borrowed back to available,
// as happens when copies are returned.
func (inv Inventory) IncreaseAvailable(count int) (Inventory, error) {
	if count <= 0 {
		return Inventory{}, ErrInvalidQuantity
	}
	if inv.available+count > inv.total {
		return Inventory{}, ErrExceedsTotal
	}
	return Inventory{
		total:     inv.total,
		available: inv.available + count,
		borrowed:  inv.borrowed - count,
	}, nil
}

// AddCopies grows the total by count newly acquired copies, all available.
func (inv Inventory) AddCopies(count int) (Inventory, error) {
	if count <= 0 {
		return Inventory{}, ErrInvalidQuantity
	}
	return Inventory{
		total:     inv.total + count,
		available: inv.available + count,
		borrowed:  inv.borrowed,
	}, nil
}

// RemoveCopies shrinks the total by count copies. Only available copies can
// be removed; borrowed copies stay on the books until returned.
func (inv Inventory) RemoveCopies(count int) (Inventory, error) {
	if count <= 0 {
		return Inventory{}, ErrInvalidQuantity
	}
	if count > inv.available {
		return Inventory{}, ErrExceedsAvailable
	}
	return Inventory{
		total:     inv.total - count,
		available: inv.available - count,
		borrowed:  inv.borrowed,
	}, nil
}

// HasAvailable reports whether at least one copy is on the shelf.
func (inv Inventory) HasAvailable() bool {
	return inv.available > 0
}

// BorrowRate returns the fraction of copies currently borrowed,
// or 0 when there are no copies at all.
func (inv Inventory) BorrowRate() float64 {
	if inv.total == 0 {
		return 0
	}
	return float64(inv.borrowed) / float64(inv.total)
}

// NeedsReorder reports whether the available count has dropped to or below
// the given threshold.
func (inv Inventory) NeedsReorder(threshold int) bool {
	return inv.available <= threshold
}
