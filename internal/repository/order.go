package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/canteen-preorder/internal/domain/order"
)

const uniqueViolation = "23505"

const orderColumns = `id, student_id, stall_id, total_amount, pickup_time_slot,
	order_token, status, payment_status, notes, created_at, updated_at`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header and its items in one transaction.
// Either everything lands or nothing does.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (id, student_id, stall_id, total_amount, pickup_time_slot,
			order_token, status, payment_status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.StudentID, o.StallID, o.TotalAmount, o.PickupSlot,
		o.Token, o.Status, o.PaymentStatus, o.Notes, o.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "orders_order_token_key" {
			return order.ErrDuplicateToken
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for i, it := range o.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, line_no, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, it.ProductID, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("creating item for order %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByToken returns an order by its pickup token.
func (r *OrderRepository) GetByToken(ctx context.Context, token string) (*order.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_token = $1`, token)
}

func (r *OrderRepository) getOne(ctx context.Context, sql, arg string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// ListByStall returns a stall's orders, newest first, without items.
func (r *OrderRepository) ListByStall(ctx context.Context, stallID string) ([]order.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE stall_id = $1 ORDER BY created_at DESC`,
		stallID,
	)
}

// ListByStudent returns a student's orders, newest first, without items.
func (r *OrderRepository) ListByStudent(ctx context.Context, studentID string) ([]order.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE student_id = $1 ORDER BY created_at DESC`,
		studentID,
	)
}

// UpdateStatusFrom applies a status change only when the order is still in
// the expected source state. The single guarded UPDATE is what serializes
// concurrent transition requests: exactly one of them sees RowsAffected == 1.
func (r *OrderRepository) UpdateStatusFrom(ctx context.Context, id string, from, to order.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("updating status of order %q: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetPaymentStatus updates the payment flag of an order.
func (r *OrderRepository) SetPaymentStatus(ctx context.Context, id string, ps order.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1`,
		id, ps,
	)
	if err != nil {
		return fmt.Errorf("updating payment status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, arg string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity, unit_price FROM order_items
		WHERE order_id = $1 ORDER BY line_no`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading items of order %q: %w", orderID, err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning item of order %q: %w", orderID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.StudentID, &o.StallID, &o.TotalAmount, &o.PickupSlot,
		&o.Token, &o.Status, &o.PaymentStatus, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}
