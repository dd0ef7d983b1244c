package domain

import (
	"time"
)

// OrderStatus is the lifecycle state of a stored order. Transitions are made
// by the order repository, never by the client core.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusLocked    OrderStatus = "LOCKED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusLocked, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Editable reports whether an order in this status may still be changed by
// the customer. Only PLACED orders are editable.
func (s OrderStatus) Editable() bool {
	return s == OrderStatusPlaced
}

// StoredOrder is an immutable snapshot of a previously submitted basket.
type StoredOrder struct {
	ID          string        `json:"id" yaml:"id"`
	UserID      string        `json:"user_id" yaml:"user_id"`
	SellerID    string        `json:"seller_id" yaml:"seller_id"`
	PickupSlot  string        `json:"pickup_slot" yaml:"pickup_slot"`
	CreatedDate time.Time     `json:"created_date" yaml:"created_date"`
	PickupDate  time.Time     `json:"pickup_date" yaml:"pickup_date"`
	Lines       []OrderedLine `json:"lines" yaml:"lines"`
	Status      OrderStatus   `json:"status" yaml:"status"`
}

// Line returns the order's line for a product.
func (o StoredOrder) Line(productID string) (OrderedLine, bool) {
	for _, l := range o.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return OrderedLine{}, false
}

// Clone returns a copy whose Lines slice is not shared with o.
func (o StoredOrder) Clone() StoredOrder {
	o.Lines = append([]OrderedLine(nil), o.Lines...)
	return o
}
