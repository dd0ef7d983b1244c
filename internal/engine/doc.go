// Package engine runs the single-writer dispatch loop that owns the
// application snapshot.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Actions from any goroutine are appended to a FIFO queue with Dispatch.
// Exactly one goroutine, the one calling Run, dequeues them and applies the
// reducer. This ensures:
// - No two actions are reduced concurrently
// - Readers only ever see whole snapshots
// - The journal holds actions in the order they were applied
//
// Processing Flow:
// 1. Dispatch enqueues an action
// 2. Run dequeues one action at a time
// 3. The action is stamped with the next logical clock value
// 4. The reducer produces the next snapshot, which is published atomically
// 5. The action is appended to the journal, if one is configured
// 6. Effects are told about the transition and may start async work that
//    later dispatches follow-up actions
//
// Effects never run inside the reducer and never block the loop.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every action is stamped with a strictly increasing seq from the clock.
// Wall-clock time is never used for ordering.
//
// Replay-Latest Subscriptions:
// A subscriber immediately receives the current snapshot, then each later
// one. A slow subscriber skips intermediate snapshots but always ends up
// with the newest.
package engine
