package source

import (
	"context"
	"sync"
)

// feedBuffer is the per-subscriber channel capacity.
const feedBuffer = 16

type subscriber[T any] struct {
	ch   chan T
	done <-chan struct{}
}

// Feed fans values out to every open subscription, in publish order. It
// backs the streams of the in-memory and SQLite collaborators.
//
// A subscriber that stops reading blocks Publish until its context ends.
type Feed[T any] struct {
	mu   sync.Mutex
	subs map[int]subscriber[T]
	next int
}

// NewFeed creates a feed with no subscribers.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[int]subscriber[T])}
}

// Subscribe opens a subscription that closes when ctx ends or End is
// called. If initial is non-nil its result is the first value delivered.
func (f *Feed[T]) Subscribe(ctx context.Context, initial func() T) <-chan T {
	ch := make(chan T, feedBuffer)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = subscriber[T]{ch: ch, done: ctx.Done()}
	if initial != nil {
		ch <- initial()
	}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		if s, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(s.ch)
		}
	}()
	return ch
}

// Publish delivers v to every open subscription.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		select {
		case s.ch <- v:
		case <-s.done:
		}
	}
}

// End closes every open subscription, as a dropped connection would.
// Later subscriptions work normally.
func (f *Feed[T]) End() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.subs {
		delete(f.subs, id)
		close(s.ch)
	}
}

// Size returns the number of open subscriptions.
func (f *Feed[T]) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
