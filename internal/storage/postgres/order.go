package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orders-ms/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, status, total_amount, total_items, created_at)
	VALUES ($1, $2, $3, $4, $5)`

	insertItemSQL = `INSERT INTO order_items (order_id, product_id, price, quantity)
	VALUES ($1, $2, $3, $4)`

	selectOrderSQL = `SELECT id, status, total_amount, total_items, created_at
	FROM orders WHERE id = $1`

	selectItemsSQL = `SELECT product_id, price, quantity
	FROM order_items WHERE order_id = $1 ORDER BY id`

	countOrdersSQL = `SELECT count(*) FROM orders
	WHERE $1::text IS NULL OR status = $1`

	listOrdersSQL = `SELECT id, status, total_amount, total_items, created_at
	FROM orders
	WHERE $1::text IS NULL OR status = $1
	ORDER BY created_at, id
	LIMIT $2 OFFSET $3`

	updateStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithItems persists the order and its line items in one transaction.
// The items go through a single batch round trip.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Status, o.TotalAmount, o.TotalItems, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(insertItemSQL, o.ID, item.ProductID, item.Price, item.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting items for order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns the order with its line items, or order.ErrOrderNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, selectOrderSQL, id).Scan(
		&o.ID, &o.Status, &o.TotalAmount, &o.TotalItems, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, selectItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	defer rows.Close()

	o.Items = []order.Item{}
	for rows.Next() {
		var item order.Item
		if err := rows.Scan(&item.ProductID, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning item for order %q: %w", id, err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading items for order %q: %w", id, err)
	}

	return &o, nil
}

// CountByStatus counts orders matching the filter; nil matches all statuses.
func (r *OrderRepository) CountByStatus(ctx context.Context, status *order.Status) (int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, countOrdersSQL, statusArg(status)).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return total, nil
}

// ListPage returns one page of orders without items, ordered by
// (created_at, id).
func (r *OrderRepository) ListPage(ctx context.Context, status *order.Status, offset, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, statusArg(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	orders := []order.Order{}
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalAmount, &o.TotalItems, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the status of an existing order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// statusArg converts the optional filter into a nullable text parameter.
func statusArg(status *order.Status) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}
