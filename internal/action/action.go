// Package action defines the closed set of intents accepted by the state
// reducer.
//
// Every action is a plain value. Actions that carry collaborator results
// hold domain.ErrorState rather than error so that each action can be
// journaled and replayed.
package action

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/ui"
)

// Action is one intent. The set of implementations is closed to this
// package.
type Action interface {
	// Kind returns the stable "<group>.<name>" identifier.
	Kind() string
	sealed()
}

// Dispatcher accepts actions for serialized processing. Dispatch reports
// false if the action was dropped because the dispatcher is closed.
type Dispatcher interface {
	Dispatch(a Action) bool
}

// Group returns the group prefix of an action kind, e.g. "basket".
func Group(a Action) string {
	kind := a.Kind()
	if i := strings.IndexByte(kind, '.'); i >= 0 {
		return kind[:i]
	}
	return kind
}

// Navigation

type NavigateTo struct {
	Screen ui.Screen `json:"screen"`
}

type NavigateBack struct{}

type OpenDrawer struct{}

type CloseDrawer struct{}

// User

// Login signs in with credentials. The password never leaves memory.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

// LoginWithProvider signs in through an external identity provider.
type LoginWithProvider struct {
	Provider string `json:"provider"`
	Token    string `json:"-"`
}

type Logout struct{}

type ContinueAsGuest struct{}

type LoginSucceeded struct {
	UserID string `json:"user_id"`
}

type LoginFailed struct {
	Error domain.ErrorState `json:"error"`
}

type ProfileLoaded struct {
	Profile domain.Profile `json:"profile"`
}

type ProfileFailed struct {
	Error domain.ErrorState `json:"error"`
}

// SessionChanged reports the auth stream's current user id; empty means
// signed out.
type SessionChanged struct {
	UserID string `json:"user_id"`
}

// Catalog

type DeltaReceived struct {
	Delta catalog.Delta `json:"delta"`
}

// CatalogLoaded replaces the collection with a full listing.
type CatalogLoaded struct {
	Items []domain.Item `json:"items"`
}

// FeedFailed keeps the last known items and records the error.
type FeedFailed struct {
	Error domain.ErrorState `json:"error"`
}

type SearchChanged struct {
	Query string `json:"query"`
}

// Basket

type SelectItem struct {
	ProductID string `json:"product_id"`
}

// UpdateQuantity edits the detail-screen quantity buffer for a product.
type UpdateQuantity struct {
	ProductID string          `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// AddToBasket sets the product's line to Quantity. A Quantity of zero or
// less removes the line.
type AddToBasket struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type RemoveFromBasket struct {
	ProductID string `json:"product_id"`
}

// BasketSynced carries the persisted basket lines.
type BasketSynced struct {
	Lines []domain.OrderedLine `json:"lines"`
}

type RequestCheckout struct{}

type PersistFailed struct {
	Error domain.ErrorState `json:"error"`
}

// Merge

type ConflictsDetected struct {
	Order     domain.StoredOrder     `json:"order"`
	Conflicts []domain.MergeConflict `json:"conflicts"`
}

type ResolveConflict struct {
	ConflictID string            `json:"conflict_id"`
	Resolution domain.Resolution `json:"resolution"`
}

type ApplyMerge struct{}

type CancelMerge struct{}

// Order

// OrderLoaded carries the stored order for the configured pickup slot; nil
// means none exists.
type OrderLoaded struct {
	Order *domain.StoredOrder `json:"order"`
}

type OrderLoadFailed struct {
	Error domain.ErrorState `json:"error"`
}

type OrdersUpdated struct {
	Orders []domain.StoredOrder `json:"orders"`
}

type OrderPlaced struct {
	Order domain.StoredOrder `json:"order"`
}

type OrderPlaceFailed struct {
	Error domain.ErrorState `json:"error"`
}

// Ui

type ShowSnackbar struct {
	Snackbar ui.Snackbar `json:"snackbar"`
}

type HideSnackbar struct{}

type ShowDialog struct {
	Dialog ui.Dialog `json:"dialog"`
}

type HideDialog struct{}

type SetRefreshing struct {
	Refreshing bool `json:"refreshing"`
}

// Retry re-runs the operation behind an error dialog.
type Retry struct {
	Target ui.RetryTarget `json:"target"`
}

// Meta

// StepChanged reports bootstrap progress.
type StepChanged struct {
	Step domain.InitStep `json:"step"`
}

// AuthChecked reports the persisted session found at startup; empty means
// guest.
type AuthChecked struct {
	UserID string `json:"user_id"`
}

func (NavigateTo) Kind() string   { return "navigation.navigate_to" }
func (NavigateBack) Kind() string { return "navigation.navigate_back" }
func (OpenDrawer) Kind() string   { return "navigation.open_drawer" }
func (CloseDrawer) Kind() string  { return "navigation.close_drawer" }

func (Login) Kind() string             { return "user.login" }
func (LoginWithProvider) Kind() string { return "user.login_with_provider" }
func (Logout) Kind() string            { return "user.logout" }
func (ContinueAsGuest) Kind() string   { return "user.continue_as_guest" }
func (LoginSucceeded) Kind() string    { return "user.login_succeeded" }
func (LoginFailed) Kind() string       { return "user.login_failed" }
func (ProfileLoaded) Kind() string     { return "user.profile_loaded" }
func (ProfileFailed) Kind() string     { return "user.profile_failed" }
func (SessionChanged) Kind() string    { return "user.session_changed" }

func (DeltaReceived) Kind() string { return "catalog.delta_received" }
func (CatalogLoaded) Kind() string { return "catalog.loaded" }
func (FeedFailed) Kind() string    { return "catalog.feed_failed" }
func (SearchChanged) Kind() string { return "catalog.search_changed" }

func (SelectItem) Kind() string       { return "basket.select_item" }
func (UpdateQuantity) Kind() string   { return "basket.update_quantity" }
func (AddToBasket) Kind() string      { return "basket.add" }
func (RemoveFromBasket) Kind() string { return "basket.remove" }
func (BasketSynced) Kind() string     { return "basket.synced" }
func (RequestCheckout) Kind() string  { return "basket.request_checkout" }
func (PersistFailed) Kind() string    { return "basket.persist_failed" }

func (ConflictsDetected) Kind() string { return "merge.conflicts_detected" }
func (ResolveConflict) Kind() string   { return "merge.resolve_conflict" }
func (ApplyMerge) Kind() string        { return "merge.apply" }
func (CancelMerge) Kind() string       { return "merge.cancel" }

func (OrderLoaded) Kind() string      { return "order.loaded" }
func (OrderLoadFailed) Kind() string  { return "order.load_failed" }
func (OrdersUpdated) Kind() string    { return "order.list_updated" }
func (OrderPlaced) Kind() string      { return "order.placed" }
func (OrderPlaceFailed) Kind() string { return "order.place_failed" }

func (ShowSnackbar) Kind() string  { return "ui.show_snackbar" }
func (HideSnackbar) Kind() string  { return "ui.hide_snackbar" }
func (ShowDialog) Kind() string    { return "ui.show_dialog" }
func (HideDialog) Kind() string    { return "ui.hide_dialog" }
func (SetRefreshing) Kind() string { return "ui.set_refreshing" }
func (Retry) Kind() string         { return "ui.retry" }

func (StepChanged) Kind() string { return "meta.step_changed" }
func (AuthChecked) Kind() string { return "meta.auth_checked" }

func (NavigateTo) sealed()        {}
func (NavigateBack) sealed()      {}
func (OpenDrawer) sealed()        {}
func (CloseDrawer) sealed()       {}
func (Login) sealed()             {}
func (LoginWithProvider) sealed() {}
func (Logout) sealed()            {}
func (ContinueAsGuest) sealed()   {}
func (LoginSucceeded) sealed()    {}
func (LoginFailed) sealed()       {}
func (ProfileLoaded) sealed()     {}
func (ProfileFailed) sealed()     {}
func (SessionChanged) sealed()    {}
func (DeltaReceived) sealed()     {}
func (CatalogLoaded) sealed()     {}
func (FeedFailed) sealed()        {}
func (SearchChanged) sealed()     {}
func (SelectItem) sealed()        {}
func (UpdateQuantity) sealed()    {}
func (AddToBasket) sealed()       {}
func (RemoveFromBasket) sealed()  {}
func (BasketSynced) sealed()      {}
func (RequestCheckout) sealed()   {}
func (PersistFailed) sealed()     {}
func (ConflictsDetected) sealed() {}
func (ResolveConflict) sealed()   {}
func (ApplyMerge) sealed()        {}
func (CancelMerge) sealed()       {}
func (OrderLoaded) sealed()       {}
func (OrderLoadFailed) sealed()   {}
func (OrdersUpdated) sealed()     {}
func (OrderPlaced) sealed()       {}
func (OrderPlaceFailed) sealed()  {}
func (ShowSnackbar) sealed()      {}
func (HideSnackbar) sealed()      {}
func (ShowDialog) sealed()        {}
func (HideDialog) sealed()        {}
func (SetRefreshing) sealed()     {}
func (Retry) sealed()             {}
func (StepChanged) sealed()       {}
func (AuthChecked) sealed()       {}
