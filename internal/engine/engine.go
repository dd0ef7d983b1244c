package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/state"
)

// Reducer advances a snapshot by one action. It must be pure.
type Reducer func(state.Snapshot, action.Action) state.Snapshot

// Journal records every applied action with its seq.
// Implemented by *store.Store.
type Journal interface {
	Append(ctx context.Context, seq int64, env action.Envelope) error
}

// Effect observes each applied action together with the snapshots before
// and after it. Handle runs on the loop goroutine and must not block; any
// I/O belongs in a goroutine that reports back through Dispatch.
type Effect interface {
	Handle(ctx context.Context, a action.Action, prev, next state.Snapshot)
}

// EffectFunc adapts a function to Effect.
type EffectFunc func(ctx context.Context, a action.Action, prev, next state.Snapshot)

// Handle implements Effect.
func (f EffectFunc) Handle(ctx context.Context, a action.Action, prev, next state.Snapshot) {
	f(ctx, a, prev, next)
}

// Engine owns the canonical snapshot.
//
// CRITICAL: the snapshot is only replaced by the Run goroutine.
//
// Thread-safety model:
//   - Dispatch(), State(), Subscribe(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	clock   SeqClock
	reduce  Reducer
	queue   *actionQueue
	journal Journal
	effects []Effect

	current atomic.Pointer[state.Snapshot]

	subsMu  sync.Mutex
	subs    map[int]chan state.Snapshot
	nextSub int
	stopped bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithReducer replaces state.Reduce. Used by tests.
func WithReducer(r Reducer) Option {
	return func(e *Engine) {
		e.reduce = r
	}
}

// WithClock sets the logical clock, e.g. NewClockAt to continue a journal.
func WithClock(c SeqClock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithJournal appends every applied action to j.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithEffects registers effects, called in the order given.
func WithEffects(effects ...Effect) Option {
	return func(e *Engine) {
		e.effects = append(e.effects, effects...)
	}
}

// New creates an Engine publishing initial until the first action.
func New(initial state.Snapshot, opts ...Option) *Engine {
	e := &Engine{
		clock:  NewClock(),
		reduce: state.Reduce,
		queue:  newActionQueue(),
		subs:   make(map[int]chan state.Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(&initial)
	return e
}

// Dispatch submits an action for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Dispatch(a action.Action) bool {
	if a == nil {
		return false
	}
	return e.queue.Enqueue(a)
}

// State returns the latest published snapshot.
func (e *Engine) State() state.Snapshot {
	return *e.current.Load()
}

// QueueLen returns the number of actions waiting to be applied.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Subscribe returns a channel that immediately holds the current snapshot
// and then receives each new one. Only the newest undelivered snapshot is
// kept. The channel is closed by the returned cancel func or when Run
// returns.
func (e *Engine) Subscribe() (<-chan state.Snapshot, func()) {
	ch := make(chan state.Snapshot, 1)

	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	if e.stopped {
		ch <- e.State()
		close(ch)
		return ch, func() {}
	}

	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.State()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subsMu.Lock()
			defer e.subsMu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop is called and the queue drains.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: failures while applying an action are logged with the
// action's seq and kind and the loop continues.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "seq", e.clock.Current())
	defer e.closeSubscribers()

	for {
		a, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, a)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// A closed signal channel fires immediately; only stop once
			// everything queued before Stop has been applied.
			if e.queue.Drained() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns after applying what is already queued.
func (e *Engine) Stop() {
	e.queue.Close()
}

// process applies one action.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) process(ctx context.Context, a action.Action) {
	seq := e.clock.Next()
	prev := e.State()

	next, err := e.safeReduce(seq, prev, a)
	if err != nil {
		logActionError(seq, a, err)
		return
	}
	next.Seq = seq

	e.current.Store(&next)
	e.publish(next)

	slog.Debug("action applied", "seq", seq, "kind", a.Kind())

	if e.journal != nil {
		if err := e.append(ctx, seq, a); err != nil {
			logActionError(seq, a, err)
		}
	}

	for _, eff := range e.effects {
		if err := safeEffect(ctx, eff, seq, a, prev, next); err != nil {
			logActionError(seq, a, err)
		}
	}
}

func (e *Engine) safeReduce(seq int64, prev state.Snapshot, a action.Action) (next state.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(ErrCodeReducerPanic, seq, a.Kind(), r)
		}
	}()
	return e.reduce(prev, a), nil
}

func safeEffect(ctx context.Context, eff Effect, seq int64, a action.Action, prev, next state.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(ErrCodeEffectPanic, seq, a.Kind(), r)
		}
	}()
	eff.Handle(ctx, a, prev, next)
	return nil
}

func (e *Engine) append(ctx context.Context, seq int64, a action.Action) error {
	env, err := action.Encode(a)
	if err != nil {
		return &RuntimeError{Code: ErrCodeJournalFailed, Message: "encode action", Seq: seq, Kind: a.Kind(), Err: err}
	}
	if err := e.journal.Append(ctx, seq, env); err != nil {
		return &RuntimeError{Code: ErrCodeJournalFailed, Message: "append action", Seq: seq, Kind: a.Kind(), Err: err}
	}
	return nil
}

// publish hands s to every subscriber, replacing an undelivered older
// snapshot. Only the Run goroutine sends, so the drain-then-send below
// cannot race with another sender.
func (e *Engine) publish(s state.Snapshot) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	for _, ch := range e.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	e.stopped = true
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}

// logActionError logs a failure with the context needed to find the action
// in the journal.
func logActionError(seq int64, a action.Action, err error) {
	slog.Error("action processing failed",
		"error", err,
		"seq", seq,
		"kind", a.Kind(),
		"group", action.Group(a),
	)
}
