package effect

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
)

// Backoff configures stream restarts and checkout retries.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	// Tries bounds checkout attempts, including the first.
	Tries uint
}

// DefaultBackoff returns 500ms growing to 30s, with three checkout tries.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 500 * time.Millisecond, Max: 30 * time.Second, Tries: 3}
}

func (b Backoff) exponential() *backoff.ExponentialBackOff {
	e := backoff.NewExponentialBackOff()
	if b.Initial > 0 {
		e.InitialInterval = b.Initial
	}
	if b.Max > 0 {
		e.MaxInterval = b.Max
	}
	e.Reset()
	return e
}

func (b Backoff) tries() uint {
	if b.Tries == 0 {
		return 1
	}
	return b.Tries
}

// Run feeds the collaborator streams into the dispatcher until ctx is
// cancelled. A stream that fails to open or ends is reopened after an
// exponential backoff; every delivered value resets the backoff.
func (h *Handler) Run(ctx context.Context, sellerID string) error {
	g, ctx := errgroup.WithContext(ctx)

	if h.deps.Catalog != nil {
		s := stream[catalog.Delta]{
			name: "catalog",
			open: func(ctx context.Context) (<-chan catalog.Delta, error) {
				return h.deps.Catalog.Subscribe(ctx, sellerID)
			},
			wrap: func(d catalog.Delta) action.Action { return action.DeltaReceived{Delta: d} },
			failed: func(err error) action.Action {
				return action.FeedFailed{Error: domain.Classify(err)}
			},
			// Deltas published while the feed was down are lost; a full
			// listing closes the gap.
			reopened: func(ctx context.Context) { h.loadCatalog(ctx, sellerID) },
		}
		g.Go(func() error { return s.run(ctx, h) })
	}
	if h.deps.Auth != nil {
		s := stream[string]{
			name: "auth",
			open: h.deps.Auth.ObserveCurrentUserID,
			wrap: func(id string) action.Action { return action.SessionChanged{UserID: id} },
		}
		g.Go(func() error { return s.run(ctx, h) })
	}
	if h.deps.Orders != nil {
		s := stream[[]domain.StoredOrder]{
			name: "orders",
			open: func(ctx context.Context) (<-chan []domain.StoredOrder, error) {
				return h.deps.Orders.ObserveOrders(ctx, sellerID)
			},
			wrap: func(orders []domain.StoredOrder) action.Action { return action.OrdersUpdated{Orders: orders} },
		}
		g.Go(func() error { return s.run(ctx, h) })
	}
	if h.deps.Basket != nil {
		s := stream[[]domain.OrderedLine]{
			name: "basket",
			open: h.deps.Basket.Observe,
			wrap: func(lines []domain.OrderedLine) action.Action { return action.BasketSynced{Lines: lines} },
		}
		g.Go(func() error { return s.run(ctx, h) })
	}

	return g.Wait()
}

// stream describes one restartable collaborator stream.
type stream[T any] struct {
	name string
	open func(context.Context) (<-chan T, error)
	wrap func(T) action.Action

	// failed, if set, turns an open failure into an action.
	failed func(error) action.Action

	// reopened, if set, runs after every successful reopen.
	reopened func(context.Context)
}

// run pumps the stream until ctx is cancelled or the dispatcher closes.
func (s stream[T]) run(ctx context.Context, h *Handler) error {
	b := h.retry.exponential()
	opened := false

	for {
		ch, err := s.open(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("stream open failed", "stream", s.name, "error", err)
			if s.failed != nil {
				h.dispatch.Dispatch(s.failed(err))
			}
		default:
			if opened && s.reopened != nil {
				s.reopened(ctx)
			}
			opened = true
			for v := range ch {
				b.Reset()
				if !h.dispatch.Dispatch(s.wrap(v)) {
					slog.Debug("stream stopped: dispatcher closed", "stream", s.name)
					return nil
				}
			}
			if ctx.Err() != nil {
				return nil
			}
			slog.Info("stream ended, reopening", "stream", s.name)
		}

		if !sleep(ctx, b.NextBackOff()) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d < 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
