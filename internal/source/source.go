// Package source declares the collaborators the client core consumes and
// provides in-memory and watermill-backed implementations.
//
// Every stream is returned as a receive-only channel that the source closes
// when the stream ends or ctx is cancelled. A closed stream is restartable:
// calling the observe method again opens a fresh one.
package source

import (
	"context"

	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
)

// AuthSource reports the signed-in user.
type AuthSource interface {
	// CheckPersistedSession returns the user id of a session that survived
	// a restart, or "" for none.
	CheckPersistedSession(ctx context.Context) (string, error)

	// ObserveCurrentUserID streams the current user id, "" when signed out.
	// The current value is delivered first.
	ObserveCurrentUserID(ctx context.Context) (<-chan string, error)
}

// Authenticator performs interactive sign in and sign out.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (string, error)
	SignInWithProvider(ctx context.Context, provider, token string) (string, error)
	SignOut(ctx context.Context) error
}

// ProfileSource loads account data for a user.
type ProfileSource interface {
	LoadProfile(ctx context.Context, userID string) (domain.Profile, error)
}

// CatalogSource provides a seller's items as a full listing and as a live
// delta feed. The feed is infinite and restartable; it is not guaranteed to
// deliver exactly once.
type CatalogSource interface {
	Snapshot(ctx context.Context, sellerID string) ([]domain.Item, error)
	Subscribe(ctx context.Context, sellerID string) (<-chan catalog.Delta, error)
}

// OrderStore reads and writes stored orders.
type OrderStore interface {
	// LoadOrder returns the user's order for a pickup slot, or nil.
	LoadOrder(ctx context.Context, userID, pickupSlot string) (*domain.StoredOrder, error)

	// ObserveOrders streams the orders placed with a seller. The current
	// list is delivered first.
	ObserveOrders(ctx context.Context, sellerID string) (<-chan []domain.StoredOrder, error)

	// SaveOrder inserts or replaces an order by id.
	SaveOrder(ctx context.Context, order domain.StoredOrder) error
}

// BasketPersistence keeps the draft basket across restarts.
type BasketPersistence interface {
	// Observe streams the persisted lines. The current lines are delivered
	// first.
	Observe(ctx context.Context) (<-chan []domain.OrderedLine, error)

	Add(ctx context.Context, line domain.OrderedLine) error
	Update(ctx context.Context, line domain.OrderedLine) error
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
}
