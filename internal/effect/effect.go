// Package effect performs the collaborator calls that follow applied
// actions and feeds collaborator streams back into the engine.
//
// Handler is registered as an engine effect. It inspects each applied
// action together with the snapshots around it, starts any I/O in a
// goroutine and reports the outcome as a new action. It never mutates a
// snapshot.
package effect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/engine"
	"github.com/roach88/pickup/internal/source"
	"github.com/roach88/pickup/internal/state"
	"github.com/roach88/pickup/internal/ui"
)

// Deps are the collaborators behind the effects. A nil collaborator
// disables the effects and pumps that need it.
type Deps struct {
	Auth          source.AuthSource
	Authenticator source.Authenticator
	Profiles      source.ProfileSource
	Orders        source.OrderStore
	Catalog       source.CatalogSource
	Basket        source.BasketPersistence

	// IDs mints ids for newly placed orders.
	IDs engine.IDGenerator

	// Now stamps newly placed orders. Defaults to time.Now.
	Now func() time.Time
}

// Handler implements engine.Effect.
//
// Thread-safety: Handle is called from the engine loop only; the goroutines
// it starts report back through the dispatcher.
type Handler struct {
	deps     Deps
	dispatch action.Dispatcher
	retry    Backoff

	wg     sync.WaitGroup
	writes serial
}

// New creates a handler that reports to d.
func New(d action.Dispatcher, deps Deps, opts ...Option) *Handler {
	if deps.IDs == nil {
		deps.IDs = engine.UUIDv7Generator{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &Handler{deps: deps, dispatch: d, retry: DefaultBackoff()}
	for _, opt := range opts {
		opt(h)
	}
	h.writes.wg = &h.wg
	return h
}

// Option configures a Handler.
type Option func(*Handler)

// WithBackoff sets the restart and retry intervals.
func WithBackoff(b Backoff) Option {
	return func(h *Handler) {
		h.retry = b
	}
}

// Wait blocks until every goroutine started by Handle has finished.
// Used by tests and by shutdown.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Handle implements engine.Effect.
func (h *Handler) Handle(ctx context.Context, a action.Action, prev, next state.Snapshot) {
	switch a := a.(type) {
	case action.Login:
		if next.User.Status == state.UserLoading {
			h.signIn(ctx, func(ctx context.Context) (string, error) {
				return h.deps.Authenticator.SignIn(ctx, a.Email, a.Password)
			})
		}
	case action.LoginWithProvider:
		if next.User.Status == state.UserLoading {
			h.signIn(ctx, func(ctx context.Context) (string, error) {
				return h.deps.Authenticator.SignInWithProvider(ctx, a.Provider, a.Token)
			})
		}
	case action.LoginSucceeded:
		if signedIn(prev, next) {
			h.reload(ctx, next)
		}
	case action.SessionChanged:
		if signedIn(prev, next) && next.Meta.IsInitialized {
			h.reload(ctx, next)
		}
		if signedOut(prev, next) {
			h.clearBasket(ctx)
			return
		}
	case action.Logout:
		h.signOut(ctx)
		if prev.User.Status == state.UserLoggedIn {
			h.clearBasket(ctx)
		}
		return
	case action.Retry:
		if a.Target == ui.RetryProfile && next.LoggedIn() {
			h.loadProfile(ctx, next.User.ID)
		}
	case action.AuthChecked:
		// A guest run of the pipeline ends without a catalog load.
		if a.UserID == "" {
			h.loadCatalog(ctx, next.SellerID)
		}
	}

	if !prev.Basket.Submitting && next.Basket.Submitting {
		h.checkout(ctx, next)
	}
	if !prev.UI.Refreshing && next.UI.Refreshing {
		h.refresh(ctx, next)
	}
	h.persist(ctx, prev.Basket.Draft.Lines, next.Basket.Draft.Lines)
}

func signedIn(prev, next state.Snapshot) bool {
	return next.LoggedIn() && (!prev.LoggedIn() || prev.User.ID != next.User.ID)
}

func signedOut(prev, next state.Snapshot) bool {
	return prev.LoggedIn() && !next.LoggedIn()
}

// goDispatch runs fn in a tracked goroutine and dispatches its result.
func (h *Handler) goDispatch(ctx context.Context, name string, fn func(ctx context.Context) action.Action) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("effect panicked", "effect", name, "panic", r)
			}
		}()
		a := fn(ctx)
		if a == nil {
			return
		}
		if !h.dispatch.Dispatch(a) {
			slog.Debug("effect result dropped", "effect", name, "kind", a.Kind())
		}
	}()
}

func (h *Handler) signIn(ctx context.Context, call func(ctx context.Context) (string, error)) {
	if h.deps.Authenticator == nil {
		return
	}
	h.goDispatch(ctx, "sign_in", func(ctx context.Context) action.Action {
		userID, err := call(ctx)
		if err != nil {
			return action.LoginFailed{Error: domain.Classify(err)}
		}
		if userID == "" {
			return action.LoginFailed{Error: domain.Classify(domain.AuthenticationRequired("sign in returned no user"))}
		}
		return action.LoginSucceeded{UserID: userID}
	})
}

func (h *Handler) signOut(ctx context.Context) {
	if h.deps.Authenticator == nil {
		return
	}
	h.goDispatch(ctx, "sign_out", func(ctx context.Context) action.Action {
		if err := h.deps.Authenticator.SignOut(ctx); err != nil {
			slog.Warn("sign out failed", "error", err)
		}
		return nil
	})
}
