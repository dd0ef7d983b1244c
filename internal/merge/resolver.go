// Package merge reconciles a locally held draft basket against a stored
// order that was loaded for the same pickup slot.
//
// Conflicts are never resolved automatically. DetectConflicts produces them
// UNDECIDED, the user decides each one through Resolve, and Apply refuses to
// build a line set until every conflict carries an explicit decision.
package merge

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/pickup/internal/domain"
)

var (
	// ErrUnresolved is returned by Apply while any conflict is UNDECIDED.
	ErrUnresolved = errors.New("merge has unresolved conflicts")

	// ErrUnknownConflict is returned by Resolve for an id not in the list.
	ErrUnknownConflict = errors.New("unknown merge conflict")

	// ErrInvalidResolution is returned by Resolve for UNDECIDED or an
	// unrecognised resolution value.
	ErrInvalidResolution = errors.New("invalid merge resolution")
)

// DetectConflicts compares draft lines against stored lines.
//
// Stored-side conflicts (QUANTITY_CHANGED, ITEM_REMOVED) come first in
// stored order, followed by ITEM_ADDED conflicts in draft order. A product
// whose quantity and price agree on both sides produces no conflict.
// Neither input is modified.
func DetectConflicts(draft, stored []domain.OrderedLine) []domain.MergeConflict {
	draftByID := make(map[string]domain.OrderedLine, len(draft))
	for _, l := range draft {
		draftByID[l.ProductID] = l
	}
	storedIDs := make(map[string]bool, len(stored))

	var conflicts []domain.MergeConflict
	for _, s := range stored {
		if storedIDs[s.ProductID] {
			continue
		}
		storedIDs[s.ProductID] = true

		d, ok := draftByID[s.ProductID]
		switch {
		case !ok:
			conflicts = append(conflicts, newConflict(domain.ConflictItemRemoved, s, s, decimal.Zero, decimal.Zero))
		case !d.SameTerms(s):
			conflicts = append(conflicts, newConflict(domain.ConflictQuantityChanged, d, s, d.Quantity, d.Price))
		}
	}

	seen := make(map[string]bool, len(draft))
	for _, d := range draft {
		if storedIDs[d.ProductID] || seen[d.ProductID] {
			continue
		}
		seen[d.ProductID] = true
		c := newConflict(domain.ConflictItemAdded, d, domain.OrderedLine{}, d.Quantity, d.Price)
		c.ExistingQuantity = decimal.Zero
		c.ExistingPrice = decimal.Zero
		conflicts = append(conflicts, c)
	}

	return conflicts
}

// newConflict takes the descriptive fields from ref and the stored-side
// values from existing.
func newConflict(t domain.ConflictType, ref, existing domain.OrderedLine, newQty, newPrice decimal.Decimal) domain.MergeConflict {
	return domain.MergeConflict{
		ID:               ref.ProductID,
		ProductID:        ref.ProductID,
		ProductName:      ref.ProductName,
		Unit:             ref.Unit,
		Type:             t,
		ExistingQuantity: existing.Quantity,
		NewQuantity:      newQty,
		ExistingPrice:    existing.Price,
		NewPrice:         newPrice,
		Resolution:       domain.ResolutionUndecided,
	}
}

// Resolve returns a copy of conflicts with the conflict identified by id set
// to resolution. The input slice is not modified.
func Resolve(conflicts []domain.MergeConflict, id string, resolution domain.Resolution) ([]domain.MergeConflict, error) {
	if !resolution.Valid() || resolution == domain.ResolutionUndecided {
		return conflicts, fmt.Errorf("%w: %q", ErrInvalidResolution, resolution)
	}

	idx := -1
	for i, c := range conflicts {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return conflicts, fmt.Errorf("%w: %s", ErrUnknownConflict, id)
	}

	out := make([]domain.MergeConflict, len(conflicts))
	copy(out, conflicts)
	out[idx].Resolution = resolution
	return out, nil
}

// Pending counts the conflicts that are still UNDECIDED.
func Pending(conflicts []domain.MergeConflict) int {
	n := 0
	for _, c := range conflicts {
		if !c.Resolved() {
			n++
		}
	}
	return n
}

// Apply builds the merged line set.
//
// ADD and USE_NEW take the draft-side values, KEEP_EXISTING keeps the stored
// line. An ITEM_REMOVED line survives only under KEEP_EXISTING and an
// ITEM_ADDED line only under ADD or USE_NEW. Stored lines without a conflict
// are kept as they are. Lines keep stored order, with added lines appended
// in conflict order.
//
// Apply fails with ErrUnresolved, returning no lines, if any conflict is
// UNDECIDED. Neither input is modified.
func Apply(stored []domain.OrderedLine, conflicts []domain.MergeConflict) ([]domain.OrderedLine, error) {
	if n := Pending(conflicts); n > 0 {
		return nil, fmt.Errorf("%w: %d of %d undecided", ErrUnresolved, n, len(conflicts))
	}

	byProduct := make(map[string]domain.MergeConflict, len(conflicts))
	for _, c := range conflicts {
		byProduct[c.ProductID] = c
	}

	out := make([]domain.OrderedLine, 0, len(stored)+len(conflicts))
	placed := make(map[string]bool, len(stored)+len(conflicts))

	for _, s := range stored {
		if placed[s.ProductID] {
			continue
		}
		c, ok := byProduct[s.ProductID]
		if !ok {
			out = append(out, s)
			placed[s.ProductID] = true
			continue
		}
		if line, keep := resolvedLine(c, &s); keep {
			out = append(out, line)
		}
		placed[s.ProductID] = true
	}

	for _, c := range conflicts {
		if placed[c.ProductID] {
			continue
		}
		if line, keep := resolvedLine(c, nil); keep {
			out = append(out, line)
		}
		placed[c.ProductID] = true
	}

	return out, nil
}

// resolvedLine picks the line a resolved conflict contributes. stored is the
// matching stored line when there is one.
func resolvedLine(c domain.MergeConflict, stored *domain.OrderedLine) (domain.OrderedLine, bool) {
	if c.Resolution.TakesNew() {
		if c.Type == domain.ConflictItemRemoved {
			return domain.OrderedLine{}, false
		}
		line := c.NewLine()
		return line, line.Quantity.IsPositive()
	}

	// KEEP_EXISTING
	if c.Type == domain.ConflictItemAdded {
		return domain.OrderedLine{}, false
	}
	if stored != nil {
		return *stored, true
	}
	line := c.ExistingLine()
	return line, line.Quantity.IsPositive()
}
