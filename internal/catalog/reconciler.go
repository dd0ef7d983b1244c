// Package catalog folds live catalog delta events into a stable,
// deduplicated item collection and filters it for search.
//
// Every function here is pure: it never mutates its input slice and has no
// side effects, so it can be tested as f(oldList, event) -> newList.
package catalog

import (
	"fmt"

	"github.com/roach88/pickup/internal/domain"
)

// Mode is the kind of change a delta carries.
type Mode string

const (
	ModeAdded   Mode = "ADDED"
	ModeChanged Mode = "CHANGED"
	ModeRemoved Mode = "REMOVED"
	ModeMoved   Mode = "MOVED"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeAdded, ModeChanged, ModeRemoved, ModeMoved:
		return true
	default:
		return false
	}
}

// Delta is one incremental change to a catalog item.
type Delta struct {
	Mode Mode        `json:"mode"`
	Item domain.Item `json:"item"`
}

// String implements fmt.Stringer.
func (d Delta) String() string {
	return fmt.Sprintf("%s(%s)", d.Mode, d.Item.ID)
}

// Apply returns the collection that results from applying d to current.
//
// Semantics:
//   - ADDED upserts: an existing id is replaced in place, so a redelivered
//     ADDED never produces a duplicate
//   - CHANGED replaces in place; an unknown id is a no-op
//   - REMOVED drops by id; an unknown id is a no-op
//   - MOVED is an ordering signal only and changes nothing
//
// Ordering is insertion order of the first ADDED. The result never holds
// two items with the same id.
func Apply(current []domain.Item, d Delta) []domain.Item {
	idx := indexOf(current, d.Item.ID)

	switch d.Mode {
	case ModeAdded:
		if idx < 0 {
			out := make([]domain.Item, len(current), len(current)+1)
			copy(out, current)
			return append(out, d.Item)
		}
		return replaceAt(current, idx, d.Item)

	case ModeChanged:
		if idx < 0 {
			return current
		}
		return replaceAt(current, idx, d.Item)

	case ModeRemoved:
		if idx < 0 {
			return current
		}
		out := make([]domain.Item, 0, len(current)-1)
		out = append(out, current[:idx]...)
		return append(out, current[idx+1:]...)

	default:
		// MOVED and unknown modes leave membership and fields untouched.
		return current
	}
}

// ApplyAll folds a sequence of deltas in order.
func ApplyAll(current []domain.Item, deltas []Delta) []domain.Item {
	for _, d := range deltas {
		current = Apply(current, d)
	}
	return current
}

// Load builds a collection from a full listing by folding each item as an
// ADDED delta onto an empty collection, so repeated ids collapse into one
// entry holding the last value.
func Load(items []domain.Item) []domain.Item {
	out := []domain.Item{}
	for _, it := range items {
		out = Apply(out, Delta{Mode: ModeAdded, Item: it})
	}
	return out
}

// Contains reports whether an item with id is present.
func Contains(items []domain.Item, id string) bool {
	return indexOf(items, id) >= 0
}

func indexOf(items []domain.Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func replaceAt(items []domain.Item, idx int, item domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	copy(out, items)
	out[idx] = item
	return out
}
