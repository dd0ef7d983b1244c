package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderedLine is one basket or order line.
//
// Price is snapshotted when the line is created and is not linked to the
// live catalog price. PieceCount is derived from Quantity and Unit at
// creation time.
//
// INVARIANT: a line held by a DraftBasket always has Quantity > 0.
type OrderedLine struct {
	ProductID   string          `json:"product_id" yaml:"product_id"`
	ProductName string          `json:"product_name" yaml:"product_name"`
	Unit        Unit            `json:"unit" yaml:"unit"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Quantity    decimal.Decimal `json:"quantity" yaml:"quantity"`
	PieceCount  int64           `json:"piece_count" yaml:"piece_count"`
}

// NewOrderedLine builds a line and derives its piece count.
func NewOrderedLine(productID, name string, unit Unit, price, quantity decimal.Decimal) OrderedLine {
	return OrderedLine{
		ProductID:   productID,
		ProductName: name,
		Unit:        unit,
		Price:       price,
		Quantity:    quantity,
		PieceCount:  unit.PieceCount(quantity),
	}
}

// LineFromItem snapshots the item's current name, unit and price.
func LineFromItem(item Item, quantity decimal.Decimal) OrderedLine {
	return NewOrderedLine(item.ID, item.Name, item.Unit, item.Price, quantity)
}

// Total is price times quantity.
func (l OrderedLine) Total() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}

// SameTerms reports whether two lines agree on quantity and price.
// Names and units are informational and not compared.
func (l OrderedLine) SameTerms(o OrderedLine) bool {
	return l.Quantity.Equal(o.Quantity) && l.Price.Equal(o.Price)
}

// DraftBasket is the locally held, not yet submitted set of lines, keyed
// by product id. When CurrentOrderID is set the draft represents edits to
// an already placed order.
//
// Methods never mutate the receiver; they return an updated copy so that a
// published snapshot is never changed underneath its readers.
type DraftBasket struct {
	Lines            []OrderedLine `json:"lines"`
	CurrentOrderID   string        `json:"current_order_id,omitempty"`
	CurrentOrderDate time.Time     `json:"current_order_date"`
}

// Line returns the line for a product.
func (b DraftBasket) Line(productID string) (OrderedLine, bool) {
	for _, l := range b.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return OrderedLine{}, false
}

// Set replaces the product's line in place, or appends it if absent.
// Quantity and price are replaced, not summed.
func (b DraftBasket) Set(line OrderedLine) DraftBasket {
	lines := make([]OrderedLine, 0, len(b.Lines)+1)
	replaced := false
	for _, l := range b.Lines {
		if l.ProductID == line.ProductID {
			lines = append(lines, line)
			replaced = true
			continue
		}
		lines = append(lines, l)
	}
	if !replaced {
		lines = append(lines, line)
	}
	b.Lines = lines
	return b
}

// Remove drops the product's line. Removing an absent product is a no-op.
func (b DraftBasket) Remove(productID string) DraftBasket {
	if _, ok := b.Line(productID); !ok {
		return b
	}
	lines := make([]OrderedLine, 0, len(b.Lines))
	for _, l := range b.Lines {
		if l.ProductID != productID {
			lines = append(lines, l)
		}
	}
	b.Lines = lines
	return b
}

// WithLines replaces all lines. Lines with a non-positive quantity and
// repeated product ids (last one wins) are dropped.
func (b DraftBasket) WithLines(lines []OrderedLine) DraftBasket {
	out := DraftBasket{CurrentOrderID: b.CurrentOrderID, CurrentOrderDate: b.CurrentOrderDate}
	for _, l := range lines {
		if !l.Quantity.IsPositive() {
			continue
		}
		out = out.Set(l)
	}
	if out.Lines == nil {
		out.Lines = []OrderedLine{}
	}
	return out
}

// ForOrder links the draft to a stored order.
func (b DraftBasket) ForOrder(order StoredOrder) DraftBasket {
	b.CurrentOrderID = order.ID
	b.CurrentOrderDate = order.CreatedDate
	return b
}

// IsEmpty reports whether the draft has no lines.
func (b DraftBasket) IsEmpty() bool {
	return len(b.Lines) == 0
}

// Total sums all line totals.
func (b DraftBasket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Lines {
		total = total.Add(l.Total())
	}
	return total
}
