package engine

import (
	"fmt"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/state"
)

// JournalEntry is one journaled action.
type JournalEntry struct {
	Seq      int64
	Envelope action.Envelope
}

// Replay folds journaled actions through reduce, starting from initial.
//
// Replay uses the same reducer as the live loop and no effects, so the
// result depends only on the journal. Entries must be in increasing seq
// order. Gaps are allowed, since an action whose reducer panicked is never
// journaled.
func Replay(initial state.Snapshot, entries []JournalEntry, reduce Reducer) (state.Snapshot, error) {
	if reduce == nil {
		reduce = state.Reduce
	}

	s := initial
	var last int64
	for i, entry := range entries {
		if i > 0 && entry.Seq <= last {
			return s, fmt.Errorf("journal out of order at seq %d (after %d)", entry.Seq, last)
		}
		last = entry.Seq

		a, err := action.DecodeEnvelope(entry.Envelope)
		if err != nil {
			return s, fmt.Errorf("seq %d: %w", entry.Seq, err)
		}
		s = reduce(s, a)
		s.Seq = entry.Seq
	}
	return s, nil
}
