package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is the sales unit of an item. It decides whether quantities are
// weighed (fractional) or counted (integral).
type Unit string

// Common units. Any other value is treated as a piece unit.
const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitHundredG   Unit = "100g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
	UnitPiece      Unit = "piece"
	UnitBunch      Unit = "bunch"
)

// Weighed reports whether quantities in this unit may be fractional.
func (u Unit) Weighed() bool {
	switch Unit(strings.ToLower(string(u))) {
	case UnitKilogram, UnitGram, UnitHundredG, UnitLiter, UnitMilliliter:
		return true
	default:
		return false
	}
}

// DefaultQuantity is the amount pre-filled when an item is first selected.
func (u Unit) DefaultQuantity() decimal.Decimal {
	return decimal.NewFromInt(1)
}

// PieceCount derives the integral count stored on a line. A weighed amount
// is a single portion; a counted amount is its own count.
func (u Unit) PieceCount(quantity decimal.Decimal) int64 {
	if !quantity.IsPositive() {
		return 0
	}
	if u.Weighed() {
		return 1
	}
	return quantity.Round(0).IntPart()
}

// CheckQuantity validates a quantity for this unit. Negative amounts and
// fractional piece counts are rejected.
func (u Unit) CheckQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return ValidationFailure("quantity", "quantity must not be negative")
	}
	if !u.Weighed() && !quantity.Equal(quantity.Truncate(0)) {
		return ValidationFailure("quantity", fmt.Sprintf("%s is sold per piece, %s is not a whole number", u, quantity))
	}
	return nil
}
