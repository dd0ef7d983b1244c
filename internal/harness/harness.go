package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/engine"
	"github.com/roach88/pickup/internal/state"
	"github.com/roach88/pickup/internal/testutil"
)

// memoryJournal keeps journaled actions for the trace. Only the engine's
// Run goroutine appends, and Run has returned before entries is read.
type memoryJournal struct {
	entries []engine.JournalEntry
}

func (j *memoryJournal) Append(_ context.Context, seq int64, env action.Envelope) error {
	j.entries = append(j.entries, engine.JournalEntry{Seq: seq, Envelope: env})
	return nil
}

// Run executes a scenario through a fresh engine and evaluates its step
// expectations and assertions.
//
// The flow is queued in full before the loop starts, so the n-th step is
// always applied with seq n. An error is returned only when the scenario
// cannot be executed; failed expectations are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	actions := make([]action.Action, len(scenario.Flow))
	for i, step := range scenario.Flow {
		a, err := step.Action()
		if err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
		actions[i] = a
	}

	journal := &memoryJournal{}
	applied := make(map[int64]state.Snapshot, len(actions))
	record := engine.EffectFunc(func(_ context.Context, _ action.Action, _, next state.Snapshot) {
		applied[next.Seq] = next
	})

	eng := engine.New(
		state.Initial(scenario.SellerID, scenario.PickupSlot),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithJournal(journal),
		engine.WithEffects(record),
	)
	for _, a := range actions {
		if !eng.Dispatch(a) {
			return nil, fmt.Errorf("engine rejected %s", a.Kind())
		}
	}
	eng.Stop()
	if err := eng.Run(ctx); err != nil {
		return nil, fmt.Errorf("run scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.Final = eng.State()

	for _, entry := range journal.entries {
		ev, err := traceEvent(entry)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, ev)
	}

	for i, step := range scenario.Flow {
		seq := int64(i + 1)
		snap, ok := applied[seq]
		if !ok {
			result.AddError(fmt.Sprintf("flow[%d] %s: action was not applied", i, step.Dispatch))
			continue
		}
		if len(step.Expect) == 0 {
			continue
		}
		doc, err := document(snap)
		if err != nil {
			return nil, err
		}
		for _, path := range sortedKeys(step.Expect) {
			if err := expectAt(doc, path, step.Expect[path]); err != nil {
				result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step.Dispatch, err))
			}
		}
	}

	final, err := document(result.Final)
	if err != nil {
		return nil, err
	}
	for _, a := range scenario.Assertions {
		if err := evaluate(result.Trace, final, a); err != nil {
			result.AddError(err.Error())
		}
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"actions", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

func traceEvent(entry engine.JournalEntry) (TraceEvent, error) {
	ev := TraceEvent{Seq: entry.Seq, Kind: entry.Envelope.Kind}
	if len(entry.Envelope.Payload) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(entry.Envelope.Payload, &ev.Payload); err != nil {
		return ev, fmt.Errorf("trace seq %d: %w", entry.Seq, err)
	}
	return ev, nil
}

// document renders a snapshot as generic JSON values plus the derived
// fields that scenarios may address.
func document(s state.Snapshot) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	doc["screen"] = string(s.Screen())
	doc["total"] = s.Basket.Draft.Total().String()
	doc["pending_conflicts"] = s.Basket.Merge.Pending()
	doc["selected"] = s.Products.SelectedID
	return doc, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
