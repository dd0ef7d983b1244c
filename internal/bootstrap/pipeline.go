// Package bootstrap runs the startup sequence that brings the snapshot from
// NOT_STARTED to COMPLETE or FAILED.
//
// The sequence is
//
//	CHECKING_AUTH -> LOADING_PROFILE -> LOADING_ORDER -> LOADING_ARTICLES -> COMPLETE
//
// with a guest branch straight from CHECKING_AUTH to COMPLETE. The persisted
// basket is restored before the session check, so a stored order is always
// matched against it. Every result
// is pushed into the engine as an action; the pipeline never touches the
// snapshot itself.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/source"
)

// ErrAlreadyRan is returned by a second call to Run.
var ErrAlreadyRan = errors.New("bootstrap pipeline already ran")

// Sources are the collaborators the pipeline calls, one per stage.
type Sources struct {
	Auth     source.AuthSource
	Profiles source.ProfileSource
	Orders   source.OrderStore
	Catalog  source.CatalogSource

	// Basket is optional. When set, its current lines are dispatched as the
	// restored draft before the session check.
	Basket source.BasketPersistence
}

// Pipeline runs the startup sequence once.
type Pipeline struct {
	src        Sources
	dispatch   action.Dispatcher
	sellerID   string
	pickupSlot string

	ran  atomic.Bool
	step domain.InitStep
}

// New creates a pipeline that reports to d.
func New(d action.Dispatcher, src Sources, sellerID, pickupSlot string) *Pipeline {
	return &Pipeline{
		src:        src,
		dispatch:   d,
		sellerID:   sellerID,
		pickupSlot: pickupSlot,
		step:       domain.Step(domain.StepNotStarted),
	}
}

// stageError ties a collaborator failure to the stage it happened in.
type stageError struct {
	stage domain.StepKind
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

// Run executes the sequence and returns the terminal step.
//
// Collaborator failures never escape as errors: they end the run in
// FAILED(stage, message). A missing or unreadable session is not a failure;
// the run completes as a guest with login required. The only error is
// ErrAlreadyRan.
func (p *Pipeline) Run(ctx context.Context) (domain.InitStep, error) {
	if !p.ran.CompareAndSwap(false, true) {
		return p.step, ErrAlreadyRan
	}

	p.report(domain.Step(domain.StepCheckingAuth))
	p.restoreBasket(ctx)

	userID, err := guard(func() (string, error) {
		return p.src.Auth.CheckPersistedSession(ctx)
	})
	if err != nil {
		slog.Warn("session check failed, continuing as guest", "error", err)
		userID = ""
	}
	p.dispatch.Dispatch(action.AuthChecked{UserID: userID})
	if userID == "" {
		return p.report(domain.Step(domain.StepComplete)), nil
	}

	p.report(domain.Step(domain.StepLoadingProfile))
	profile, err := guard(func() (domain.Profile, error) {
		return p.src.Profiles.LoadProfile(ctx, userID)
	})
	if err != nil {
		return p.fail(domain.StepLoadingProfile, err), nil
	}
	p.dispatch.Dispatch(action.ProfileLoaded{Profile: profile})

	p.report(domain.Step(domain.StepLoadingOrder))
	return p.loadOrderAndCatalog(ctx, userID), nil
}

// restoreBasket dispatches the first emission of the persisted basket. A
// failure is logged and skipped; the basket feed then delivers the restore.
func (p *Pipeline) restoreBasket(ctx context.Context) {
	if p.src.Basket == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := guard(func() (<-chan []domain.OrderedLine, error) {
		return p.src.Basket.Observe(ctx)
	})
	if err != nil {
		slog.Warn("basket restore failed", "error", err)
		return
	}
	select {
	case lines, ok := <-ch:
		if !ok {
			slog.Warn("basket restore failed", "error", "feed closed")
			return
		}
		p.dispatch.Dispatch(action.BasketSynced{Lines: lines})
	case <-ctx.Done():
	}
}

// loadOrderAndCatalog runs the order and catalog loads concurrently. The
// order result advances the pipeline to LOADING_ARTICLES; COMPLETE waits
// for both.
func (p *Pipeline) loadOrderAndCatalog(ctx context.Context, userID string) domain.InitStep {
	g, gctx := errgroup.WithContext(ctx)

	orderDone := make(chan *domain.StoredOrder, 1)
	g.Go(func() error {
		order, err := guard(func() (*domain.StoredOrder, error) {
			return p.src.Orders.LoadOrder(gctx, userID, p.pickupSlot)
		})
		if err != nil {
			close(orderDone)
			return &stageError{stage: domain.StepLoadingOrder, err: err}
		}
		orderDone <- order
		return nil
	})

	var items []domain.Item
	g.Go(func() error {
		loaded, err := guard(func() ([]domain.Item, error) {
			return p.src.Catalog.Snapshot(gctx, p.sellerID)
		})
		if err != nil {
			return &stageError{stage: domain.StepLoadingArticles, err: err}
		}
		items = loaded
		return nil
	})

	order, ok := <-orderDone
	if !ok {
		return p.failFrom(g.Wait())
	}
	p.dispatch.Dispatch(action.OrderLoaded{Order: order})
	p.report(domain.Step(domain.StepLoadingArticles))

	if err := g.Wait(); err != nil {
		return p.failFrom(err)
	}
	p.dispatch.Dispatch(action.CatalogLoaded{Items: items})
	return p.report(domain.Step(domain.StepComplete))
}

// failFrom reports the first stage error from the group.
func (p *Pipeline) failFrom(err error) domain.InitStep {
	var se *stageError
	if errors.As(err, &se) {
		return p.fail(se.stage, se.err)
	}
	return p.fail(p.step.Kind, err)
}

func (p *Pipeline) fail(stage domain.StepKind, err error) domain.InitStep {
	es := domain.Classify(err)
	slog.Error("bootstrap failed", "stage", stage, "error", err)
	return p.report(domain.FailedStep(stage, es.Message))
}

func (p *Pipeline) report(step domain.InitStep) domain.InitStep {
	if !domain.CanTransition(p.step, step) {
		slog.Error("bootstrap transition rejected", "from", p.step, "to", step)
		return p.step
	}
	slog.Info("bootstrap step", "step", step.String())
	p.step = step
	p.dispatch.Dispatch(action.StepChanged{Step: step})
	return step
}

// guard converts a collaborator panic into an error.
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collaborator panicked: %v", r)
		}
	}()
	return fn()
}
