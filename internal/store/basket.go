package store

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/source"
)

var _ source.BasketPersistence = (*Basket)(nil)

// Basket persists the draft basket lines in insertion order.
type Basket struct {
	db      *sql.DB
	changes *source.Feed[struct{}]
}

func newBasket(db *sql.DB) *Basket {
	return &Basket{db: db, changes: source.NewFeed[struct{}]()}
}

// Lines returns the persisted lines in insertion order.
// Returns an empty slice (not nil) for an empty basket.
func (b *Basket) Lines(ctx context.Context) ([]domain.OrderedLine, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT product_id, name, unit, price, quantity
		FROM basket_lines
		ORDER BY position ASC, product_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, domain.StorageFailure("query basket lines", err)
	}
	defer rows.Close()

	lines := []domain.OrderedLine{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, domain.StorageFailure("scan basket line", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageFailure("iterate basket lines", err)
	}
	return lines, nil
}

// Observe streams the lines after every write, starting with the current
// lines. A failed first read is returned; later failed reads are logged and
// skipped.
func (b *Basket) Observe(ctx context.Context) (<-chan []domain.OrderedLine, error) {
	ctx, cancel := context.WithCancel(ctx)
	changes := b.changes.Subscribe(ctx, nil)
	lines, err := b.Lines(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	out := make(chan []domain.OrderedLine, 1)
	out <- lines
	go func() {
		defer cancel()
		defer close(out)
		for range changes {
			lines, err := b.Lines(ctx)
			if err != nil {
				slog.Warn("basket read failed", "error", err)
				continue
			}
			select {
			case out <- lines:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Add inserts the line, or replaces the existing line for the product in
// place.
func (b *Basket) Add(ctx context.Context, line domain.OrderedLine) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO basket_lines (product_id, name, unit, price, quantity, position)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM basket_lines))
		ON CONFLICT(product_id) DO UPDATE SET
			name = excluded.name,
			unit = excluded.unit,
			price = excluded.price,
			quantity = excluded.quantity
	`, line.ProductID, line.ProductName, string(line.Unit), line.Price.String(), line.Quantity.String())
	if err != nil {
		return domain.StorageFailure("add basket line", err)
	}
	b.changes.Publish(struct{}{})
	return nil
}

// Update replaces an existing line. Returns a NotFound failure if the
// product has no line.
func (b *Basket) Update(ctx context.Context, line domain.OrderedLine) error {
	res, err := b.db.ExecContext(ctx, `
		UPDATE basket_lines
		SET name = ?, unit = ?, price = ?, quantity = ?
		WHERE product_id = ?
	`, line.ProductName, string(line.Unit), line.Price.String(), line.Quantity.String(), line.ProductID)
	if err != nil {
		return domain.StorageFailure("update basket line", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StorageFailure("update basket line", err)
	}
	if n == 0 {
		return domain.NotFoundFailure("no basket line for " + line.ProductID)
	}
	b.changes.Publish(struct{}{})
	return nil
}

// Remove deletes the product's line. Removing an absent line is a no-op.
func (b *Basket) Remove(ctx context.Context, productID string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM basket_lines WHERE product_id = ?`, productID); err != nil {
		return domain.StorageFailure("remove basket line", err)
	}
	b.changes.Publish(struct{}{})
	return nil
}

// Clear deletes every line.
func (b *Basket) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM basket_lines`); err != nil {
		return domain.StorageFailure("clear basket", err)
	}
	b.changes.Publish(struct{}{})
	return nil
}

// scanLine reads product_id, name, unit, price and quantity columns.
func scanLine(rows *sql.Rows) (domain.OrderedLine, error) {
	var (
		productID, name, unit string
		price, quantity       decimal.Decimal
	)
	if err := rows.Scan(&productID, &name, &unit, &price, &quantity); err != nil {
		return domain.OrderedLine{}, err
	}
	return domain.NewOrderedLine(productID, name, domain.Unit(unit), price, quantity), nil
}
