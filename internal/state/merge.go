package state

import (
	"time"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/merge"
	"github.com/roach88/pickup/internal/ui"
)

// conflictsDetected either merges straight away, when there is nothing to
// decide, or parks the conflicts for the user. Incoming resolutions are
// discarded so that every conflict starts undecided.
func conflictsDetected(s Snapshot, order domain.StoredOrder, conflicts []domain.MergeConflict) Snapshot {
	if len(conflicts) == 0 {
		s.Basket.Draft = s.Basket.Draft.WithLines(order.Lines).ForOrder(order)
		s.Basket.CurrentOrder = &order
		s.Basket.Merge = nil
		return s
	}

	pending := make([]domain.MergeConflict, len(conflicts))
	for i, c := range conflicts {
		c.Resolution = domain.ResolutionUndecided
		pending[i] = c
	}
	s.Basket.Merge = &MergeState{Order: order.Clone(), Conflicts: pending}
	s.UI.Dialog = ui.MergeDialog(len(pending))
	s.Navigation.Stack = push(s.Navigation.Stack, ui.ScreenMerge)
	return s
}

func resolveConflict(s Snapshot, a action.ResolveConflict) Snapshot {
	if s.Basket.Merge == nil {
		return s
	}
	conflicts, err := merge.Resolve(s.Basket.Merge.Conflicts, a.ConflictID, a.Resolution)
	if err != nil {
		return SurfaceError(s, domain.Classify(domain.ValidationFailure("merge", err.Error())), ui.RetryNone)
	}
	s.Basket.Merge = &MergeState{Order: s.Basket.Merge.Order, Conflicts: conflicts}
	if s.UI.Inline != nil && s.UI.Inline.Field == "merge" {
		s.UI.Inline = nil
	}
	return s
}

// applyMerge is all-or-nothing: with any conflict undecided the snapshot is
// returned unchanged apart from the inline error.
func applyMerge(s Snapshot) Snapshot {
	m := s.Basket.Merge
	if m == nil {
		return s
	}
	lines, err := merge.Apply(m.Order.Lines, m.Conflicts)
	if err != nil {
		return SurfaceError(s, domain.Classify(domain.ValidationFailure("merge", "decide every change before merging")), ui.RetryNone)
	}

	order := m.Order.Clone()
	s.Basket.Draft = s.Basket.Draft.WithLines(lines).ForOrder(order)
	s.Basket.CurrentOrder = &order
	return closeMerge(s)
}

// cancelMerge keeps the draft as it is, unlinked from the stored order.
func cancelMerge(s Snapshot) Snapshot {
	if s.Basket.Merge == nil {
		return s
	}
	s.Basket.Draft.CurrentOrderID = ""
	s.Basket.Draft.CurrentOrderDate = time.Time{}
	return closeMerge(s)
}

func closeMerge(s Snapshot) Snapshot {
	s.Basket.Merge = nil
	if s.UI.Dialog.Kind == ui.DialogMergeDecision {
		s.UI.Dialog = ui.Dialog{}
	}
	if s.UI.Inline != nil && s.UI.Inline.Field == "merge" {
		s.UI.Inline = nil
	}
	s.Navigation.Stack = without(s.Navigation.Stack, ui.ScreenMerge)
	return s
}
