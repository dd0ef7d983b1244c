// Package harness runs scripted action scenarios through the engine and
// checks the resulting trace and snapshots.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seller_id: seller-1
//	pickup_slot: "2026-10-16"
//	flow:
//	  - dispatch: basket.add
//	    payload: { product_id: p1, quantity: 2 }
//	    expect:
//	      basket.draft.lines.0.quantity: 2
//	assertions:
//	  - type: trace_contains
//	    action: basket.add
//	    payload: { product_id: p1 }
//	  - type: final_state
//	    path: basket.draft.current_order_id
//	    expect: order-1
//
// Payloads use the JSON field names of the action types. Step expectations
// and final_state assertions address the snapshot by dotted path; numeric
// segments index into lists. A few derived values are available next to
// the snapshot fields: screen, total, pending_conflicts and selected.
//
// # Assertion Types
//
//   - trace_contains: an action of the kind was applied with a matching payload
//   - trace_order: the kinds were first applied in the given order
//   - trace_count: the kind was applied exactly N times
//   - final_state: the value at path in the final snapshot matches
//
// Maps and payloads match as subsets, lists must match element by element,
// and decimal values compare numerically, so "2.50" matches 2.5.
//
// # Deterministic Testing
//
// Every run starts from state.Initial with a fresh testutil.DeterministicClock
// and no effects, so seqs and snapshots are identical across runs. This is
// what makes the golden digests in testdata/golden stable.
package harness
