package effect

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/state"
)

// reload fetches everything that belongs to a newly signed-in user. It
// runs after an interactive login, not through the bootstrap pipeline.
func (h *Handler) reload(ctx context.Context, s state.Snapshot) {
	h.loadProfile(ctx, s.User.ID)
	h.loadOrder(ctx, s.User.ID, s.PickupSlot)
	h.loadCatalog(ctx, s.SellerID)
}

// refresh reloads the catalog, and the current order when signed in.
func (h *Handler) refresh(ctx context.Context, s state.Snapshot) {
	h.loadCatalog(ctx, s.SellerID)
	if s.LoggedIn() {
		h.loadOrder(ctx, s.User.ID, s.PickupSlot)
	}
}

func (h *Handler) loadProfile(ctx context.Context, userID string) {
	if h.deps.Profiles == nil {
		return
	}
	h.goDispatch(ctx, "load_profile", func(ctx context.Context) action.Action {
		p, err := h.deps.Profiles.LoadProfile(ctx, userID)
		if err != nil {
			return action.ProfileFailed{Error: domain.Classify(err)}
		}
		return action.ProfileLoaded{Profile: p}
	})
}

func (h *Handler) loadOrder(ctx context.Context, userID, pickupSlot string) {
	if h.deps.Orders == nil {
		return
	}
	h.goDispatch(ctx, "load_order", func(ctx context.Context) action.Action {
		order, err := h.deps.Orders.LoadOrder(ctx, userID, pickupSlot)
		if err != nil {
			return action.OrderLoadFailed{Error: domain.Classify(err)}
		}
		return action.OrderLoaded{Order: order}
	})
}

func (h *Handler) loadCatalog(ctx context.Context, sellerID string) {
	if h.deps.Catalog == nil {
		return
	}
	h.goDispatch(ctx, "load_catalog", func(ctx context.Context) action.Action {
		items, err := h.deps.Catalog.Snapshot(ctx, sellerID)
		if err != nil {
			return action.FeedFailed{Error: domain.Classify(err)}
		}
		return action.CatalogLoaded{Items: items}
	})
}

// checkout saves the draft as a placed order. Retryable failures are
// retried with backoff before the failure is reported.
func (h *Handler) checkout(ctx context.Context, s state.Snapshot) {
	if h.deps.Orders == nil {
		return
	}
	order := h.orderFromDraft(s)
	h.goDispatch(ctx, "checkout", func(ctx context.Context) action.Action {
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			err := h.deps.Orders.SaveOrder(ctx, order)
			if err != nil && !domain.Classify(err).Retryable {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}, backoff.WithBackOff(h.retry.exponential()), backoff.WithMaxTries(h.retry.tries()))
		if err != nil {
			return action.OrderPlaceFailed{Error: domain.Classify(err)}
		}
		return action.OrderPlaced{Order: order}
	})
}

// orderFromDraft builds the stored order for the draft. A draft linked to
// an order keeps that order's id and creation date.
func (h *Handler) orderFromDraft(s state.Snapshot) domain.StoredOrder {
	draft := s.Basket.Draft
	id := draft.CurrentOrderID
	created := draft.CurrentOrderDate
	if id == "" {
		id = h.deps.IDs.Generate()
		created = h.deps.Now().UTC()
	}
	pickup, _ := time.Parse(time.DateOnly, s.PickupSlot)

	return domain.StoredOrder{
		ID:          id,
		UserID:      s.User.ID,
		SellerID:    s.SellerID,
		PickupSlot:  s.PickupSlot,
		CreatedDate: created,
		PickupDate:  pickup,
		Lines:       append([]domain.OrderedLine(nil), draft.Lines...),
		Status:      domain.OrderStatusPlaced,
	}
}
