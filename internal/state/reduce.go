package state

import (
	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/ui"
)

// Reduce applies a to s and returns the next snapshot.
//
// Reduce is total and deterministic: it never blocks, performs no I/O and
// returns s unchanged for an action it rejects. Rejections that the user
// should see are reported through the UI sub-state.
func Reduce(s Snapshot, a action.Action) Snapshot {
	switch a := a.(type) {
	// Navigation
	case action.NavigateTo:
		return navigateTo(s, a.Screen)
	case action.NavigateBack:
		return navigateBack(s)
	case action.OpenDrawer:
		s.Navigation.DrawerOpen = true
		return s
	case action.CloseDrawer:
		s.Navigation.DrawerOpen = false
		return s

	// User
	case action.Login:
		if a.Email == "" {
			return SurfaceError(s, domain.Classify(domain.ValidationFailure("email", "email is required")), ui.RetryNone)
		}
		return beginLogin(s)
	case action.LoginWithProvider:
		if a.Provider == "" {
			return SurfaceError(s, domain.Classify(domain.ValidationFailure("provider", "provider is required")), ui.RetryNone)
		}
		return beginLogin(s)
	case action.Logout:
		return signOut(s)
	case action.ContinueAsGuest:
		s.User = User{Status: UserGuest}
		s.Meta.RequiresLogin = false
		s.Navigation.Stack = without(s.Navigation.Stack, ui.ScreenLogin)
		return s
	case action.LoginSucceeded:
		return signIn(s, a.UserID)
	case action.LoginFailed:
		es := a.Error
		s.User = User{Status: UserGuest, Error: &es}
		return SurfaceError(s, es, ui.RetryNone)
	case action.ProfileLoaded:
		return profileLoaded(s, a.Profile)
	case action.ProfileFailed:
		es := a.Error
		s.User.Error = &es
		return SurfaceError(s, es, ui.RetryProfile)
	case action.SessionChanged:
		return sessionChanged(s, a.UserID)

	// Catalog
	case action.DeltaReceived:
		s.Products.Items = catalog.Apply(s.Products.Items, a.Delta)
		s.Products.Error = nil
		return fixSelection(s)
	case action.CatalogLoaded:
		s.Products.Items = catalog.Load(a.Items)
		s.Products.Error = nil
		s.UI.Refreshing = false
		return fixSelection(s)
	case action.FeedFailed:
		es := a.Error
		s.Products.Error = &es
		s.UI.Refreshing = false
		return SurfaceError(s, es, ui.RetryCatalog)
	case action.SearchChanged:
		s.Products.Query = a.Query
		return s

	// Basket
	case action.SelectItem:
		return selectItem(s, a.ProductID)
	case action.UpdateQuantity:
		return updateQuantity(s, a)
	case action.AddToBasket:
		return addToBasket(s, a)
	case action.RemoveFromBasket:
		return removeFromBasket(s, a.ProductID)
	case action.BasketSynced:
		return basketSynced(s, a.Lines)
	case action.RequestCheckout:
		return requestCheckout(s)
	case action.PersistFailed:
		es := a.Error
		s.Basket.Error = &es
		return SurfaceError(s, es, ui.RetryNone)

	// Merge
	case action.ConflictsDetected:
		return conflictsDetected(s, a.Order, a.Conflicts)
	case action.ResolveConflict:
		return resolveConflict(s, a)
	case action.ApplyMerge:
		return applyMerge(s)
	case action.CancelMerge:
		return cancelMerge(s)

	// Order
	case action.OrderLoaded:
		s.UI.Refreshing = false
		s.Orders.Error = nil
		if a.Order == nil {
			return s
		}
		return orderLoaded(s, a.Order.Clone())
	case action.OrderLoadFailed:
		es := a.Error
		s.Orders.Error = &es
		s.UI.Refreshing = false
		return SurfaceError(s, es, ui.RetryOrders)
	case action.OrdersUpdated:
		return ordersUpdated(s, a.Orders)
	case action.OrderPlaced:
		return orderPlaced(s, a.Order.Clone())
	case action.OrderPlaceFailed:
		es := a.Error
		s.Basket.Submitting = false
		s.Basket.Error = &es
		return SurfaceError(s, es, ui.RetryCheckout)

	// Ui
	case action.ShowSnackbar:
		s.UI.Snackbar = a.Snackbar
		return s
	case action.HideSnackbar:
		s.UI.Snackbar = ui.Snackbar{}
		return s
	case action.ShowDialog:
		s.UI.Dialog = a.Dialog
		return s
	case action.HideDialog:
		s.UI.Dialog = ui.Dialog{}
		return s
	case action.SetRefreshing:
		s.UI.Refreshing = a.Refreshing
		return s
	case action.Retry:
		s.UI.Dialog = ui.Dialog{}
		if a.Target == ui.RetryCheckout {
			return requestCheckout(s)
		}
		if a.Target == ui.RetryCatalog || a.Target == ui.RetryOrders {
			s.UI.Refreshing = true
		}
		return s

	// Meta
	case action.StepChanged:
		return stepChanged(s, a.Step)
	case action.AuthChecked:
		if a.UserID == "" {
			s.User = User{Status: UserGuest}
			s.Meta.RequiresLogin = true
			return s
		}
		s.User = User{Status: UserLoggedIn, ID: a.UserID}
		s.Meta.RequiresLogin = false
		return s
	}

	return s
}

func stepChanged(s Snapshot, step domain.InitStep) Snapshot {
	if !domain.CanTransition(s.Meta.Step, step) {
		return s
	}
	s.Meta.Step = step
	switch step.Kind {
	case domain.StepComplete:
		s.Meta.IsInitialized = true
	case domain.StepFailed:
		s.UI.Dialog = ui.Dialog{
			Kind:    ui.DialogError,
			Title:   "Startup failed",
			Message: step.String(),
		}
	}
	return s
}

func beginLogin(s Snapshot) Snapshot {
	s.User = User{Status: UserLoading}
	s.UI.Inline = nil
	return s
}

func signIn(s Snapshot, userID string) Snapshot {
	if userID == "" {
		return s
	}
	if s.User.Status == UserLoggedIn && s.User.ID == userID {
		return s
	}
	s.User = User{Status: UserLoggedIn, ID: userID}
	s.Meta.RequiresLogin = false
	s.UI.Inline = nil
	s.Navigation.Stack = without(s.Navigation.Stack, ui.ScreenLogin)
	return s
}

// signOut drops everything that belongs to the previous user. The catalog
// and bootstrap state survive.
func signOut(s Snapshot) Snapshot {
	s.User = User{Status: UserGuest}
	s.Basket = Basket{Draft: domain.DraftBasket{Lines: []domain.OrderedLine{}}, Restored: s.Basket.Restored}
	s.Orders = Orders{Items: []domain.StoredOrder{}}
	s.Meta.RequiresLogin = true
	s.Navigation = Navigation{Stack: []ui.Screen{ui.ScreenCatalog}}
	s.UI.Dialog = ui.Dialog{}
	s.UI.Inline = nil
	return s
}

func sessionChanged(s Snapshot, userID string) Snapshot {
	switch {
	case userID == "" && s.User.Status == UserLoggedIn:
		s = signOut(s)
		s.UI.Snackbar = ui.Snackbar{Message: "Your session has ended", Kind: ui.SnackbarInfo}
		return s
	case userID != "":
		return signIn(s, userID)
	default:
		return s
	}
}

func profileLoaded(s Snapshot, p domain.Profile) Snapshot {
	if s.User.Status != UserLoggedIn {
		return s
	}
	if p.UserID != "" && p.UserID != s.User.ID {
		return s
	}
	s.User.Profile = &p
	s.User.Error = nil
	return s
}

// fixSelection keeps the selection pointing at a catalog member. A dangling
// selection falls back to the first item, or to none.
func fixSelection(s Snapshot) Snapshot {
	id := s.Products.SelectedID
	if id == "" || catalog.Contains(s.Products.Items, id) {
		return s
	}
	s.Basket.Editing = withoutKey(s.Basket.Editing, id)
	if len(s.Products.Items) > 0 {
		s.Products.SelectedID = s.Products.Items[0].ID
	} else {
		s.Products.SelectedID = ""
	}
	return s
}
