package engine

import (
	"sync"

	"github.com/roach88/pickup/internal/action"
)

// actionQueue is a thread-safe FIFO queue of pending actions.
//
// The queue is unbounded so that collaborator goroutines never block on
// Dispatch, even while the loop is busy with a burst of catalog deltas.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type actionQueue struct {
	mu      sync.Mutex
	actions []action.Action
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newActionQueue() *actionQueue {
	return &actionQueue{
		actions: make([]action.Action, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds an action to the back of the queue.
// Returns false if the queue is closed.
func (q *actionQueue) Enqueue(a action.Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.actions = append(q.actions, a)

	// Non-blocking: the buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front action without blocking.
func (q *actionQueue) TryDequeue() (action.Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}

	a := q.actions[0]

	// Nil out the slot so the backing array does not retain payloads.
	q.actions[0] = nil

	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}

	return a, true
}

// Wait returns a channel that signals when actions may be available.
// The channel is closed once the queue is closed.
func (q *actionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Drained reports whether the queue is closed and empty.
func (q *actionQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.actions) == 0
}

// Close stops further enqueues and wakes any waiter.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
