package state

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/merge"
	"github.com/roach88/pickup/internal/ui"
)

func selectItem(s Snapshot, productID string) Snapshot {
	item, ok := domain.FindItem(s.Products.Items, productID)
	if !ok {
		return SurfaceError(s, domain.Classify(domain.NotFoundFailure("this product is no longer available")), ui.RetryNone)
	}

	s.Products.SelectedID = item.ID
	if _, editing := s.Basket.Editing[item.ID]; !editing {
		qty := item.Unit.DefaultQuantity()
		if l, inBasket := s.Basket.Draft.Line(item.ID); inBasket {
			qty = l.Quantity
		}
		s.Basket.Editing = withKey(s.Basket.Editing, item.ID, qty)
	}
	s.Navigation.Stack = push(s.Navigation.Stack, ui.ScreenItemDetail)
	return s
}

// updateQuantity only touches the edit buffer. Negative amounts clamp to
// zero, and a zero amount leaves the basket line in place until it is
// confirmed through AddToBasket or RemoveFromBasket.
func updateQuantity(s Snapshot, a action.UpdateQuantity) Snapshot {
	amount := a.Amount
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	s.Basket.Editing = withKey(s.Basket.Editing, a.ProductID, amount)

	unit := lineUnit(s, a.ProductID)
	if err := unit.CheckQuantity(amount); err != nil {
		return SurfaceError(s, domain.Classify(err), ui.RetryNone)
	}
	if s.UI.Inline != nil && s.UI.Inline.Field == "quantity" {
		s.UI.Inline = nil
	}
	return s
}

// addToBasket sets, never accumulates.
func addToBasket(s Snapshot, a action.AddToBasket) Snapshot {
	if !a.Quantity.IsPositive() {
		return removeFromBasket(s, a.ProductID)
	}
	if blocked, ok := checkEditable(s); !ok {
		return blocked
	}

	var line domain.OrderedLine
	if item, ok := domain.FindItem(s.Products.Items, a.ProductID); ok {
		line = domain.LineFromItem(item, a.Quantity)
	} else if existing, ok := s.Basket.Draft.Line(a.ProductID); ok {
		line = domain.NewOrderedLine(existing.ProductID, existing.ProductName, existing.Unit, existing.Price, a.Quantity)
	} else {
		return SurfaceError(s, domain.Classify(domain.NotFoundFailure("this product is no longer available")), ui.RetryNone)
	}

	if err := line.Unit.CheckQuantity(a.Quantity); err != nil {
		return SurfaceError(s, domain.Classify(err), ui.RetryNone)
	}

	s.Basket.Draft = s.Basket.Draft.Set(line)
	s.Basket.Editing = withoutKey(s.Basket.Editing, a.ProductID)
	s.Basket.Error = nil
	s.UI.Inline = nil
	return s
}

func removeFromBasket(s Snapshot, productID string) Snapshot {
	if _, ok := s.Basket.Draft.Line(productID); !ok {
		s.Basket.Editing = withoutKey(s.Basket.Editing, productID)
		return s
	}
	if blocked, ok := checkEditable(s); !ok {
		return blocked
	}
	s.Basket.Draft = s.Basket.Draft.Remove(productID)
	s.Basket.Editing = withoutKey(s.Basket.Editing, productID)
	return s
}

func checkEditable(s Snapshot) (Snapshot, bool) {
	if s.Basket.ReadOnly {
		return SurfaceError(s, domain.Classify(domain.ValidationFailure("basket", "this order can no longer be changed")), ui.RetryNone), false
	}
	return s, true
}

func requestCheckout(s Snapshot) Snapshot {
	if s.Basket.Submitting {
		return s
	}
	if !s.LoggedIn() {
		return SurfaceError(s, domain.Classify(domain.AuthenticationRequired("sign in to place your order")), ui.RetryNone)
	}
	if s.Basket.Merge != nil {
		return SurfaceError(s, domain.Classify(domain.ValidationFailure("merge", "resolve the basket changes first")), ui.RetryNone)
	}
	if blocked, ok := checkEditable(s); !ok {
		return blocked
	}
	if s.Basket.Draft.IsEmpty() {
		return SurfaceError(s, domain.Classify(domain.ValidationFailure("basket", "your basket is empty")), ui.RetryNone)
	}
	s.Basket.Submitting = true
	s.Basket.Error = nil
	s.UI.Inline = nil
	return s
}

// orderLoaded resumes a stored order for this pickup slot.
//
// An order that can no longer be edited is shown read-only. An empty draft
// adopts the order's lines, a draft already linked to the order is kept,
// and anything else goes through conflict detection.
func orderLoaded(s Snapshot, order domain.StoredOrder) Snapshot {
	if !order.Status.Editable() {
		s.Basket.CurrentOrder = &order
		s.Basket.ReadOnly = true
		return s
	}
	s.Basket.ReadOnly = false

	if s.Basket.Draft.IsEmpty() {
		s.Basket.Draft = s.Basket.Draft.WithLines(order.Lines).ForOrder(order)
		s.Basket.CurrentOrder = &order
		return s
	}
	if s.Basket.Draft.CurrentOrderID == order.ID {
		s.Basket.CurrentOrder = &order
		return s
	}
	return conflictsDetected(s, order, merge.DetectConflicts(s.Basket.Draft.Lines, order.Lines))
}

// basketSynced applies the first emission of the persisted basket as the
// restored draft. Every later emission echoes a write this client already
// made, possibly an outdated one, and is dropped.
//
// A stored order may have been loaded first. If the draft was adopted from
// that order, or its conflicts were parked against the draft as it was
// before the restore, the order is matched again against the restored
// lines.
func basketSynced(s Snapshot, lines []domain.OrderedLine) Snapshot {
	if s.Basket.Restored {
		return s
	}
	s.Basket.Restored = true

	restored := domain.DraftBasket{}.WithLines(lines)
	if restored.IsEmpty() {
		return s
	}

	var order *domain.StoredOrder
	switch {
	case s.Basket.Merge != nil:
		o := s.Basket.Merge.Order.Clone()
		order = &o
		for _, l := range s.Basket.Draft.Lines {
			restored = restored.Set(l)
		}
		s = closeMerge(s)
	case s.Basket.Draft.CurrentOrderID != "" && s.Basket.CurrentOrder != nil && !s.Basket.ReadOnly:
		o := *s.Basket.CurrentOrder
		order = &o
	default:
		for _, l := range s.Basket.Draft.Lines {
			restored = restored.Set(l)
		}
	}

	s.Basket.Draft = restored
	if order == nil {
		return s
	}
	s.Basket.CurrentOrder = nil
	return orderLoaded(s, *order)
}

func ordersUpdated(s Snapshot, orders []domain.StoredOrder) Snapshot {
	items := make([]domain.StoredOrder, len(orders))
	for i, o := range orders {
		items[i] = o.Clone()
	}
	s.Orders = Orders{Items: items}

	if cur := s.Basket.CurrentOrder; cur != nil {
		for _, o := range items {
			if o.ID == cur.ID && o.Status != cur.Status {
				updated := o
				s.Basket.CurrentOrder = &updated
				s.Basket.ReadOnly = !o.Status.Editable()
				break
			}
		}
	}
	return s
}

func orderPlaced(s Snapshot, order domain.StoredOrder) Snapshot {
	s.Basket.Submitting = false
	s.Basket.Error = nil
	s.Basket.Draft = s.Basket.Draft.WithLines(order.Lines).ForOrder(order)
	s.Basket.CurrentOrder = &order
	s.Basket.ReadOnly = !order.Status.Editable()

	items := make([]domain.StoredOrder, 0, len(s.Orders.Items)+1)
	replaced := false
	for _, o := range s.Orders.Items {
		if o.ID == order.ID {
			items = append(items, order)
			replaced = true
			continue
		}
		items = append(items, o)
	}
	if !replaced {
		items = append(items, order)
	}
	s.Orders.Items = items

	s.UI.Snackbar = ui.Snackbar{Message: fmt.Sprintf("Order placed for %s", order.PickupSlot), Kind: ui.SnackbarInfo}
	return s
}

// lineUnit finds the unit for a product from the catalog or the basket.
func lineUnit(s Snapshot, productID string) domain.Unit {
	if item, ok := domain.FindItem(s.Products.Items, productID); ok {
		return item.Unit
	}
	if l, ok := s.Basket.Draft.Line(productID); ok {
		return l.Unit
	}
	return domain.UnitPiece
}

func withKey(m map[string]decimal.Decimal, key string, v decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m)+1)
	for k, val := range m {
		out[k] = val
	}
	out[key] = v
	return out
}

func withoutKey(m map[string]decimal.Decimal, key string) map[string]decimal.Decimal {
	if _, ok := m[key]; !ok {
		return m
	}
	if len(m) == 1 {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(m)-1)
	for k, val := range m {
		if k != key {
			out[k] = val
		}
	}
	return out
}
