package state

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/ui"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(id, price string, unit domain.Unit) domain.Item {
	return domain.Item{ID: id, Name: "Item " + id, Price: dec(price), Unit: unit, Available: true}
}

// fold reduces every action in order.
func fold(s Snapshot, actions ...action.Action) Snapshot {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

// withCatalog returns a logged-in snapshot holding p1 (piece, 2.50),
// p2 (piece, 1.00) and w1 (kg, 4.00).
func withCatalog(t *testing.T) Snapshot {
	t.Helper()
	return fold(Initial("seller-1", "2026-10-16"),
		action.AuthChecked{UserID: "u1"},
		action.CatalogLoaded{Items: []domain.Item{
			item("p1", "2.50", domain.UnitPiece),
			item("p2", "1.00", domain.UnitPiece),
			item("w1", "4.00", domain.UnitKilogram),
		}},
	)
}

func noUIError(t *testing.T, s Snapshot) {
	t.Helper()
	assert.Nil(t, s.UI.Inline)
	assert.False(t, s.UI.Snackbar.Visible())
	assert.False(t, s.UI.Dialog.Visible())
}

func TestInitial(t *testing.T) {
	s := Initial("seller-1", "slot")

	assert.Equal(t, ui.ScreenCatalog, s.Screen())
	assert.Equal(t, UserGuest, s.User.Status)
	assert.Equal(t, domain.StepNotStarted, s.Meta.Step.Kind)
	assert.NotNil(t, s.Products.Items)
	assert.NotNil(t, s.Basket.Draft.Lines)
}

func TestUpdateQuantity_NegativeClampsToZeroWithoutRemoval(t *testing.T) {
	s := fold(withCatalog(t), action.AddToBasket{ProductID: "p1", Quantity: dec("2")})

	s = Reduce(s, action.UpdateQuantity{ProductID: "p1", Amount: dec("-5")})

	q, ok := s.Basket.Editing["p1"]
	require.True(t, ok)
	assert.True(t, q.IsZero())

	l, ok := s.Basket.Draft.Line("p1")
	require.True(t, ok, "p1 must stay in the basket")
	assert.Equal(t, "2", l.Quantity.String())
	noUIError(t, s)
}

func TestUpdateQuantity_OnAnyState(t *testing.T) {
	states := map[string]Snapshot{
		"initial":      Initial("s", "slot"),
		"with catalog": withCatalog(t),
		"empty basket": fold(withCatalog(t), action.RemoveFromBasket{ProductID: "p1"}),
	}
	for name, s := range states {
		t.Run(name, func(t *testing.T) {
			next := Reduce(s, action.UpdateQuantity{ProductID: "p1", Amount: dec("-5")})
			assert.True(t, next.Basket.Editing["p1"].IsZero())
			assert.Equal(t, s.Basket.Draft, next.Basket.Draft)
			noUIError(t, next)
		})
	}
}

func TestUpdateQuantity_FractionalPieceIsInlineError(t *testing.T) {
	s := Reduce(withCatalog(t), action.UpdateQuantity{ProductID: "p1", Amount: dec("1.5")})

	require.NotNil(t, s.UI.Inline)
	assert.Equal(t, domain.ErrValidationFailure, s.UI.Inline.Type)
	assert.Equal(t, "quantity", s.UI.Inline.Field)

	s = Reduce(s, action.UpdateQuantity{ProductID: "p1", Amount: dec("2")})
	assert.Nil(t, s.UI.Inline)
}

func TestAddToBasket_SetsRatherThanAccumulates(t *testing.T) {
	s := fold(withCatalog(t),
		action.AddToBasket{ProductID: "p1", Quantity: dec("2")},
		action.AddToBasket{ProductID: "p1", Quantity: dec("3")},
	)

	require.Len(t, s.Basket.Draft.Lines, 1)
	assert.Equal(t, "3", s.Basket.Draft.Lines[0].Quantity.String())
	assert.Equal(t, int64(3), s.Basket.Draft.Lines[0].PieceCount)
}

func TestAddToBasket_ZeroRemoves(t *testing.T) {
	s := fold(withCatalog(t),
		action.AddToBasket{ProductID: "p1", Quantity: dec("2")},
		action.AddToBasket{ProductID: "p1", Quantity: dec("0")},
	)
	assert.True(t, s.Basket.Draft.IsEmpty())

	again := Reduce(s, action.AddToBasket{ProductID: "p1", Quantity: dec("-1")})
	assert.Equal(t, s, again)
}

func TestAddToBasket_SnapshotsPrice(t *testing.T) {
	s := fold(withCatalog(t),
		action.AddToBasket{ProductID: "p1", Quantity: dec("1")},
		action.DeltaReceived{Delta: catalog.Delta{Mode: catalog.ModeChanged, Item: item("p1", "9.99", domain.UnitPiece)}},
	)

	l, _ := s.Basket.Draft.Line("p1")
	assert.Equal(t, "2.5", l.Price.String())
}

func TestAddToBasket_WeighedFraction(t *testing.T) {
	s := Reduce(withCatalog(t), action.AddToBasket{ProductID: "w1", Quantity: dec("0.75")})

	l, ok := s.Basket.Draft.Line("w1")
	require.True(t, ok)
	assert.Equal(t, int64(1), l.PieceCount)
	assert.Equal(t, "3", s.Basket.Draft.Total().String())
}

func TestAddToBasket_UnknownProduct(t *testing.T) {
	s := Reduce(withCatalog(t), action.AddToBasket{ProductID: "ghost", Quantity: dec("1")})

	assert.True(t, s.Basket.Draft.IsEmpty())
	require.NotNil(t, s.UI.Snackbar.Error)
	assert.Equal(t, domain.ErrNotFound, s.UI.Snackbar.Error.Type)
}

func TestAddToBasket_CommitsEditBuffer(t *testing.T) {
	s := fold(withCatalog(t),
		action.SelectItem{ProductID: "p2"},
		action.UpdateQuantity{ProductID: "p2", Amount: dec("4")},
		action.AddToBasket{ProductID: "p2", Quantity: dec("4")},
	)

	_, editing := s.Basket.Editing["p2"]
	assert.False(t, editing)
	l, _ := s.Basket.Draft.Line("p2")
	assert.Equal(t, "4", l.Quantity.String())
}

func TestSelectItem_SeedsBufferAndNavigates(t *testing.T) {
	s := fold(withCatalog(t),
		action.AddToBasket{ProductID: "p1", Quantity: dec("3")},
		action.SelectItem{ProductID: "p1"},
	)

	assert.Equal(t, "p1", s.Products.SelectedID)
	assert.Equal(t, "3", s.Basket.Editing["p1"].String())
	assert.Equal(t, ui.ScreenItemDetail, s.Screen())

	s = Reduce(s, action.SelectItem{ProductID: "p2"})
	assert.Equal(t, "1", s.Basket.Editing["p2"].String())
	assert.Len(t, s.Navigation.Stack, 2)
}

func TestDeltaRemoved_SelectionFallsBack(t *testing.T) {
	s := fold(withCatalog(t), action.SelectItem{ProductID: "p2"})

	s = Reduce(s, action.DeltaReceived{Delta: catalog.Delta{Mode: catalog.ModeRemoved, Item: domain.Item{ID: "p2"}}})
	assert.Equal(t, "p1", s.Products.SelectedID)

	s = fold(s,
		action.DeltaReceived{Delta: catalog.Delta{Mode: catalog.ModeRemoved, Item: domain.Item{ID: "p1"}}},
		action.DeltaReceived{Delta: catalog.Delta{Mode: catalog.ModeRemoved, Item: domain.Item{ID: "w1"}}},
	)
	assert.Equal(t, "", s.Products.SelectedID)
}

func TestSelectionNeverDangles(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	modes := []catalog.Mode{catalog.ModeAdded, catalog.ModeAdded, catalog.ModeChanged, catalog.ModeRemoved, catalog.ModeMoved}
	s := Initial("s", "slot")

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("i%d", rng.Intn(5))
		if rng.Intn(4) == 0 {
			s = Reduce(s, action.SelectItem{ProductID: id})
		} else {
			s = Reduce(s, action.DeltaReceived{Delta: catalog.Delta{
				Mode: modes[rng.Intn(len(modes))],
				Item: item(id, "1.00", domain.UnitPiece),
			}})
		}

		if s.Products.SelectedID != "" {
			require.True(t, catalog.Contains(s.Products.Items, s.Products.SelectedID), "step %d", i)
		}
	}
}

func TestFeedFailed_KeepsLastGoodItems(t *testing.T) {
	s := withCatalog(t)
	before := s.Products.Items

	s = Reduce(s, action.FeedFailed{Error: domain.Classify(domain.NetworkFailure("feed dropped", nil))})

	assert.Equal(t, before, s.Products.Items)
	require.NotNil(t, s.Products.Error)
	assert.Equal(t, ui.DialogError, s.UI.Dialog.Kind)
	assert.Equal(t, ui.RetryCatalog, s.UI.Dialog.Retry)

	s = Reduce(s, action.DeltaReceived{Delta: catalog.Delta{Mode: catalog.ModeAdded, Item: item("p9", "1.00", domain.UnitPiece)}})
	assert.Nil(t, s.Products.Error)
}

func TestReduce_DoesNotMutatePreviousSnapshot(t *testing.T) {
	s := fold(withCatalog(t),
		action.AddToBasket{ProductID: "p1", Quantity: dec("2")},
		action.SelectItem{ProductID: "p1"},
	)
	items := append([]domain.Item(nil), s.Products.Items...)
	lines := append([]domain.OrderedLine(nil), s.Basket.Draft.Lines...)
	stack := append([]ui.Screen(nil), s.Navigation.Stack...)
	editing := s.Basket.Editing["p1"]

	fold(s,
		action.DeltaReceived{Delta: catalog.Delta{Mode: catalog.ModeChanged, Item: item("p1", "3.00", domain.UnitPiece)}},
		action.AddToBasket{ProductID: "p1", Quantity: dec("5")},
		action.UpdateQuantity{ProductID: "p1", Amount: dec("7")},
		action.NavigateTo{Screen: ui.ScreenBasket},
		action.RemoveFromBasket{ProductID: "p1"},
	)

	assert.Equal(t, items, s.Products.Items)
	assert.Equal(t, lines, s.Basket.Draft.Lines)
	assert.Equal(t, stack, s.Navigation.Stack)
	assert.True(t, editing.Equal(s.Basket.Editing["p1"]))
}

func TestReduce_Deterministic(t *testing.T) {
	actions := []action.Action{
		action.AddToBasket{ProductID: "p1", Quantity: dec("2")},
		action.SelectItem{ProductID: "w1"},
		action.UpdateQuantity{ProductID: "w1", Amount: dec("0.4")},
		action.SearchChanged{Query: "item"},
	}
	assert.Equal(t, fold(withCatalog(t), actions...), fold(withCatalog(t), actions...))
}

func TestStepChanged_FollowsForwardEdgesOnly(t *testing.T) {
	s := Initial("s", "slot")

	s = Reduce(s, action.StepChanged{Step: domain.Step(domain.StepLoadingOrder)})
	assert.Equal(t, domain.StepNotStarted, s.Meta.Step.Kind, "skipping ahead is ignored")

	s = fold(s,
		action.StepChanged{Step: domain.Step(domain.StepCheckingAuth)},
		action.StepChanged{Step: domain.Step(domain.StepComplete)},
	)
	assert.Equal(t, domain.StepComplete, s.Meta.Step.Kind)
	assert.True(t, s.Meta.IsInitialized)

	s = Reduce(s, action.StepChanged{Step: domain.FailedStep(domain.StepComplete, "late")})
	assert.Equal(t, domain.StepComplete, s.Meta.Step.Kind)
}

func TestStepChanged_FailedIsTerminal(t *testing.T) {
	s := fold(Initial("s", "slot"),
		action.StepChanged{Step: domain.Step(domain.StepCheckingAuth)},
		action.StepChanged{Step: domain.Step(domain.StepLoadingProfile)},
		action.StepChanged{Step: domain.FailedStep(domain.StepLoadingProfile, "timeout")},
		action.StepChanged{Step: domain.Step(domain.StepLoadingOrder)},
	)

	assert.Equal(t, domain.StepFailed, s.Meta.Step.Kind)
	assert.False(t, s.Meta.IsInitialized)
	assert.Equal(t, ui.DialogError, s.UI.Dialog.Kind)
}

func TestAuthChecked(t *testing.T) {
	s := Reduce(Initial("s", "slot"), action.AuthChecked{})
	assert.True(t, s.Meta.RequiresLogin)
	assert.Equal(t, UserGuest, s.User.Status)

	s = Reduce(s, action.AuthChecked{UserID: "u1"})
	assert.True(t, s.LoggedIn())
	assert.False(t, s.Meta.RequiresLogin)
}

func TestLoginFlow(t *testing.T) {
	s := Reduce(Initial("s", "slot"), action.Login{Email: ""})
	require.NotNil(t, s.UI.Inline)
	assert.Equal(t, "email", s.UI.Inline.Field)

	s = fold(s,
		action.NavigateTo{Screen: ui.ScreenLogin},
		action.Login{Email: "a@example.com", Password: "pw"},
	)
	assert.Equal(t, UserLoading, s.User.Status)
	assert.Nil(t, s.UI.Inline)

	s = Reduce(s, action.LoginSucceeded{UserID: "u1"})
	assert.True(t, s.LoggedIn())
	assert.NotContains(t, s.Navigation.Stack, ui.ScreenLogin)

	s = Reduce(s, action.ProfileLoaded{Profile: domain.Profile{UserID: "other"}})
	assert.Nil(t, s.User.Profile)
	s = Reduce(s, action.ProfileLoaded{Profile: domain.Profile{UserID: "u1", DisplayName: "Ada"}})
	require.NotNil(t, s.User.Profile)
	assert.Equal(t, "Ada", s.User.Profile.DisplayName)
}

func TestLogout_ClearsUserData(t *testing.T) {
	s := fold(withCatalog(t),
		action.AddToBasket{ProductID: "p1", Quantity: dec("1")},
		action.NavigateTo{Screen: ui.ScreenBasket},
		action.Logout{},
	)

	assert.Equal(t, UserGuest, s.User.Status)
	assert.True(t, s.Basket.Draft.IsEmpty())
	assert.True(t, s.Meta.RequiresLogin)
	assert.Equal(t, []ui.Screen{ui.ScreenCatalog}, s.Navigation.Stack)
	assert.Len(t, s.Products.Items, 3)
}

func TestSessionChanged_EndedExternally(t *testing.T) {
	s := fold(withCatalog(t), action.SessionChanged{UserID: ""})

	assert.Equal(t, UserGuest, s.User.Status)
	assert.Equal(t, "Your session has ended", s.UI.Snackbar.Message)
}

func TestNavigation(t *testing.T) {
	s := Initial("s", "slot")

	s = Reduce(s, action.NavigateTo{Screen: ui.ScreenOrders})
	assert.Equal(t, ui.ScreenLogin, s.Screen(), "guests are sent to login")

	s = fold(s, action.NavigateBack{}, action.NavigateBack{})
	assert.Equal(t, []ui.Screen{ui.ScreenCatalog}, s.Navigation.Stack)

	s = fold(s, action.OpenDrawer{}, action.NavigateTo{Screen: ui.ScreenBasket})
	assert.False(t, s.Navigation.DrawerOpen)
	assert.Equal(t, ui.ScreenBasket, s.Screen())

	s = fold(s, action.OpenDrawer{}, action.NavigateBack{})
	assert.False(t, s.Navigation.DrawerOpen)
	assert.Equal(t, ui.ScreenBasket, s.Screen(), "back closes the drawer first")

	unchanged := Reduce(s, action.NavigateTo{Screen: ui.Screen("nowhere")})
	assert.Equal(t, s, unchanged)
}

func TestUiActions(t *testing.T) {
	s := fold(Initial("s", "slot"),
		action.ShowSnackbar{Snackbar: ui.Snackbar{Message: "hi", Kind: ui.SnackbarInfo}},
		action.ShowDialog{Dialog: ui.InfoDialog("Title", "Body")},
		action.SetRefreshing{Refreshing: true},
	)
	assert.True(t, s.UI.Snackbar.Visible())
	assert.True(t, s.UI.Dialog.Visible())
	assert.True(t, s.UI.Refreshing)

	s = fold(s, action.HideSnackbar{}, action.HideDialog{}, action.SetRefreshing{})
	assert.Equal(t, UI{}, s.UI)
}

func TestSurfaceError(t *testing.T) {
	base := withCatalog(t)

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, s Snapshot)
	}{
		{"network opens retry dialog", domain.NetworkFailure("offline", nil), func(t *testing.T, s Snapshot) {
			assert.Equal(t, ui.DialogError, s.UI.Dialog.Kind)
			assert.Equal(t, ui.RetryOrders, s.UI.Dialog.Retry)
		}},
		{"auth routes to login", domain.AuthenticationRequired("sign in"), func(t *testing.T, s Snapshot) {
			assert.Equal(t, ui.ScreenLogin, s.Screen())
			assert.True(t, s.UI.Snackbar.Visible())
			assert.True(t, s.Meta.RequiresLogin)
		}},
		{"validation is inline", domain.ValidationFailure("quantity", "bad"), func(t *testing.T, s Snapshot) {
			require.NotNil(t, s.UI.Inline)
			assert.False(t, s.UI.Dialog.Visible())
		}},
		{"storage is a snackbar", domain.StorageFailure("disk full", nil), func(t *testing.T, s Snapshot) {
			assert.Equal(t, ui.SnackbarError, s.UI.Snackbar.Kind)
			assert.False(t, s.UI.Dialog.Visible())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SurfaceError(base, domain.Classify(tt.err), ui.RetryOrders)
			tt.check(t, s)
			assert.Equal(t, base.Products, s.Products)
			assert.Equal(t, base.Basket, s.Basket)
		})
	}
}
