package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/pickup/internal/domain"
)

// Dec parses a decimal literal and panics on bad input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Item returns an available catalog item.
func Item(id, name, price string, unit domain.Unit) domain.Item {
	return domain.Item{
		ID:        id,
		Name:      name,
		Price:     Dec(price),
		Unit:      unit,
		Available: true,
	}
}

// Line returns a piece-unit line named after its product id.
func Line(productID, qty, price string) domain.OrderedLine {
	return domain.NewOrderedLine(productID, productID, domain.UnitPiece, Dec(price), Dec(qty))
}

// FixedTime is the reference instant used by fixtures.
var FixedTime = time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

// Order returns a stored order for user u1 at seller-1 with the given
// status and lines.
func Order(id string, status domain.OrderStatus, lines ...domain.OrderedLine) domain.StoredOrder {
	return domain.StoredOrder{
		ID:          id,
		UserID:      "u1",
		SellerID:    "seller-1",
		PickupSlot:  "2026-10-16",
		CreatedDate: FixedTime,
		PickupDate:  FixedTime.Add(24 * time.Hour),
		Lines:       lines,
		Status:      status,
	}
}
