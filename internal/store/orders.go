package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/source"
)

var _ source.OrderStore = (*Orders)(nil)

// Orders persists stored orders with their lines.
type Orders struct {
	db      *sql.DB
	changes *source.Feed[struct{}]
}

func newOrders(db *sql.DB) *Orders {
	return &Orders{db: db, changes: source.NewFeed[struct{}]()}
}

// timeLayout keeps sub-second precision and sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// SaveOrder inserts or replaces an order by id, lines included.
func (o *Orders) SaveOrder(ctx context.Context, order domain.StoredOrder) error {
	if err := o.save(ctx, order); err != nil {
		return domain.StorageFailure("save order", err)
	}
	o.changes.Publish(struct{}{})
	return nil
}

func (o *Orders) save(ctx context.Context, order domain.StoredOrder) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, seller_id, pickup_slot, created_date, pickup_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			seller_id = excluded.seller_id,
			pickup_slot = excluded.pickup_slot,
			created_date = excluded.created_date,
			pickup_date = excluded.pickup_date,
			status = excluded.status
	`,
		order.ID,
		order.UserID,
		order.SellerID,
		order.PickupSlot,
		formatTime(order.CreatedDate),
		formatTime(order.PickupDate),
		string(order.Status),
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, order.ID); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	for i, l := range order.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, position, product_id, name, unit, price, quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, order.ID, i, l.ProductID, l.ProductName, string(l.Unit), l.Price.String(), l.Quantity.String())
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", l.ProductID, err)
		}
	}

	return tx.Commit()
}

// LoadOrder returns the user's most recent order for a pickup slot, or nil.
func (o *Orders) LoadOrder(ctx context.Context, userID, pickupSlot string) (*domain.StoredOrder, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT id, user_id, seller_id, pickup_slot, created_date, pickup_date, status
		FROM orders
		WHERE user_id = ? AND pickup_slot = ?
		ORDER BY created_date DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, userID, pickupSlot)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StorageFailure("load order", err)
	}
	if order.Lines, err = o.lines(ctx, order.ID); err != nil {
		return nil, domain.StorageFailure("load order", err)
	}
	return &order, nil
}

// List returns the seller's orders, oldest first.
// Returns an empty slice (not nil) if none exist.
func (o *Orders) List(ctx context.Context, sellerID string) ([]domain.StoredOrder, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, user_id, seller_id, pickup_slot, created_date, pickup_date, status
		FROM orders
		WHERE seller_id = ?
		ORDER BY created_date ASC, id COLLATE BINARY ASC
	`, sellerID)
	if err != nil {
		return nil, domain.StorageFailure("query orders", err)
	}

	orders := []domain.StoredOrder{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, domain.StorageFailure("scan order", err)
		}
		orders = append(orders, order)
	}
	// Lines are read on the same single connection, so the cursor must be
	// closed first.
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, domain.StorageFailure("iterate orders", err)
	}
	rows.Close()

	for i := range orders {
		if orders[i].Lines, err = o.lines(ctx, orders[i].ID); err != nil {
			return nil, domain.StorageFailure("query orders", err)
		}
	}
	return orders, nil
}

// ObserveOrders streams the seller's orders after every save, starting
// with the current list. A failed read is logged and skipped.
func (o *Orders) ObserveOrders(ctx context.Context, sellerID string) (<-chan []domain.StoredOrder, error) {
	changes := o.changes.Subscribe(ctx, func() struct{} { return struct{}{} })
	out := make(chan []domain.StoredOrder)
	go func() {
		defer close(out)
		for range changes {
			orders, err := o.List(ctx, sellerID)
			if err != nil {
				slog.Warn("orders read failed", "seller_id", sellerID, "error", err)
				continue
			}
			select {
			case out <- orders:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (o *Orders) lines(ctx context.Context, orderID string) ([]domain.OrderedLine, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT product_id, name, unit, price, quantity
		FROM order_lines
		WHERE order_id = ?
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.OrderedLine{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.StoredOrder, error) {
	var (
		order           domain.StoredOrder
		status          string
		created, pickup string
	)
	if err := row.Scan(&order.ID, &order.UserID, &order.SellerID, &order.PickupSlot, &created, &pickup, &status); err != nil {
		return domain.StoredOrder{}, err
	}
	var err error
	if order.CreatedDate, err = parseTime(created); err != nil {
		return domain.StoredOrder{}, fmt.Errorf("parse created_date: %w", err)
	}
	if order.PickupDate, err = parseTime(pickup); err != nil {
		return domain.StoredOrder{}, fmt.Errorf("parse pickup_date: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}
