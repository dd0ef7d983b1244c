package domain

import (
	"github.com/shopspring/decimal"
)

// ConflictType classifies a discrepancy between a draft and a stored order.
type ConflictType string

const (
	// ConflictQuantityChanged: product in both, quantity or price differs.
	ConflictQuantityChanged ConflictType = "QUANTITY_CHANGED"
	// ConflictItemAdded: product only in the draft.
	ConflictItemAdded ConflictType = "ITEM_ADDED"
	// ConflictItemRemoved: product only in the stored order.
	ConflictItemRemoved ConflictType = "ITEM_REMOVED"
)

// Resolution is the user's decision for one conflict.
type Resolution string

const (
	ResolutionUndecided    Resolution = "UNDECIDED"
	ResolutionAdd          Resolution = "ADD"
	ResolutionKeepExisting Resolution = "KEEP_EXISTING"
	ResolutionUseNew       Resolution = "USE_NEW"
)

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionUndecided, ResolutionAdd, ResolutionKeepExisting, ResolutionUseNew:
		return true
	default:
		return false
	}
}

// TakesNew reports whether the resolution keeps the draft-side values.
func (r Resolution) TakesNew() bool {
	return r == ResolutionAdd || r == ResolutionUseNew
}

// MergeConflict is one detected discrepancy. Conflicts are keyed by product
// id, so ID always equals ProductID.
//
// "Existing" values come from the stored order, "New" values from the
// draft. For ITEM_ADDED the existing side is zero; for ITEM_REMOVED the new
// side is zero.
type MergeConflict struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Unit             Unit            `json:"unit"`
	Type             ConflictType    `json:"type"`
	ExistingQuantity decimal.Decimal `json:"existing_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	ExistingPrice    decimal.Decimal `json:"existing_price"`
	NewPrice         decimal.Decimal `json:"new_price"`
	Resolution       Resolution      `json:"resolution"`
}

// Resolved reports whether the user has decided this conflict.
func (c MergeConflict) Resolved() bool {
	return c.Resolution != ResolutionUndecided && c.Resolution != ""
}

// ExistingLine rebuilds the stored-side line.
func (c MergeConflict) ExistingLine() OrderedLine {
	return NewOrderedLine(c.ProductID, c.ProductName, c.Unit, c.ExistingPrice, c.ExistingQuantity)
}

// NewLine rebuilds the draft-side line.
func (c MergeConflict) NewLine() OrderedLine {
	return NewOrderedLine(c.ProductID, c.ProductName, c.Unit, c.NewPrice, c.NewQuantity)
}
