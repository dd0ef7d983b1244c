// Package state holds the application snapshot and the reducer that
// advances it.
//
// A Snapshot is treated as immutable once returned from Reduce. Handlers
// build updated copies and replace slices, maps and pointers wholesale;
// they never write through a value that an earlier snapshot shares.
package state

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/merge"
	"github.com/roach88/pickup/internal/ui"
)

// UserStatus tags the User variant.
type UserStatus string

const (
	UserGuest    UserStatus = "guest"
	UserLoading  UserStatus = "loading"
	UserLoggedIn UserStatus = "logged_in"
)

// User is Guest, Loading, or LoggedIn with an id and, once fetched, a
// profile.
type User struct {
	Status  UserStatus         `json:"status"`
	ID      string             `json:"id,omitempty"`
	Profile *domain.Profile    `json:"profile,omitempty"`
	Error   *domain.ErrorState `json:"error,omitempty"`
}

// Products is the catalog sub-state.
type Products struct {
	Items      []domain.Item      `json:"items"`
	SelectedID string             `json:"selected_id,omitempty"`
	Query      string             `json:"query,omitempty"`
	Error      *domain.ErrorState `json:"error,omitempty"`
}

// MergeState is a pending merge awaiting user decisions.
type MergeState struct {
	Order     domain.StoredOrder     `json:"order"`
	Conflicts []domain.MergeConflict `json:"conflicts"`
}

// Pending counts undecided conflicts.
func (m *MergeState) Pending() int {
	if m == nil {
		return 0
	}
	return merge.Pending(m.Conflicts)
}

// Basket is the draft basket plus everything needed to edit it.
type Basket struct {
	Draft domain.DraftBasket `json:"draft"`

	// Editing is the detail-screen quantity buffer keyed by product id.
	// Values are never negative and never touch Draft until AddToBasket.
	Editing map[string]decimal.Decimal `json:"editing,omitempty"`

	Merge        *MergeState         `json:"merge,omitempty"`
	CurrentOrder *domain.StoredOrder `json:"current_order,omitempty"`

	// ReadOnly is set while CurrentOrder can no longer be edited.
	ReadOnly   bool               `json:"read_only,omitempty"`
	Submitting bool               `json:"submitting,omitempty"`
	Error      *domain.ErrorState `json:"error,omitempty"`

	// Restored is set once the persisted basket has been applied. It
	// survives sign out.
	Restored bool `json:"restored,omitempty"`
}

// Orders is the order history sub-state.
type Orders struct {
	Items []domain.StoredOrder `json:"items"`
	Error *domain.ErrorState   `json:"error,omitempty"`
}

// Navigation is the screen back stack. The last entry is on top and the
// stack is never empty.
type Navigation struct {
	Stack      []ui.Screen `json:"stack"`
	DrawerOpen bool        `json:"drawer_open,omitempty"`
}

// UI holds transient presentation signals.
type UI struct {
	Snackbar   ui.Snackbar        `json:"snackbar"`
	Dialog     ui.Dialog          `json:"dialog"`
	Refreshing bool               `json:"refreshing,omitempty"`
	Inline     *domain.ErrorState `json:"inline,omitempty"`
}

// Meta tracks bootstrap progress.
type Meta struct {
	Step          domain.InitStep `json:"step"`
	IsInitialized bool            `json:"is_initialized"`
	RequiresLogin bool            `json:"requires_login"`
}

// Snapshot is the single root of application state.
type Snapshot struct {
	// Seq is the logical sequence number of the action that produced this
	// snapshot. It is stamped by the engine, not the reducer.
	Seq int64 `json:"seq"`

	SellerID   string `json:"seller_id"`
	PickupSlot string `json:"pickup_slot"`

	User       User       `json:"user"`
	Products   Products   `json:"products"`
	Basket     Basket     `json:"basket"`
	Orders     Orders     `json:"orders"`
	Navigation Navigation `json:"navigation"`
	UI         UI         `json:"ui"`
	Meta       Meta       `json:"meta"`
}

// Initial returns the snapshot before any action.
func Initial(sellerID, pickupSlot string) Snapshot {
	return Snapshot{
		SellerID:   sellerID,
		PickupSlot: pickupSlot,
		User:       User{Status: UserGuest},
		Products:   Products{Items: []domain.Item{}},
		Basket:     Basket{Draft: domain.DraftBasket{Lines: []domain.OrderedLine{}}},
		Orders:     Orders{Items: []domain.StoredOrder{}},
		Navigation: Navigation{Stack: []ui.Screen{ui.ScreenCatalog}},
		Meta:       Meta{Step: domain.Step(domain.StepNotStarted)},
	}
}

// LoggedIn reports whether a user is signed in.
func (s Snapshot) LoggedIn() bool {
	return s.User.Status == UserLoggedIn && s.User.ID != ""
}

// Screen returns the top of the navigation stack.
func (s Snapshot) Screen() ui.Screen {
	if len(s.Navigation.Stack) == 0 {
		return ui.ScreenCatalog
	}
	return s.Navigation.Stack[len(s.Navigation.Stack)-1]
}

// SelectedItem returns the selected catalog item.
func (s Snapshot) SelectedItem() (domain.Item, bool) {
	if s.Products.SelectedID == "" {
		return domain.Item{}, false
	}
	return domain.FindItem(s.Products.Items, s.Products.SelectedID)
}

// VisibleItems returns the catalog filtered by the search query.
func (s Snapshot) VisibleItems() []domain.Item {
	return catalog.Filter(s.Products.Items, s.Products.Query)
}

// EditingQuantity returns the buffered quantity for a product, falling back
// to the basket line.
func (s Snapshot) EditingQuantity(productID string) (decimal.Decimal, bool) {
	if q, ok := s.Basket.Editing[productID]; ok {
		return q, true
	}
	if l, ok := s.Basket.Draft.Line(productID); ok {
		return l.Quantity, true
	}
	return decimal.Zero, false
}
