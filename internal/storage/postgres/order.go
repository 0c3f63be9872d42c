package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skobelev/storefront/internal/domain/order"
)

const orderColumns = `id, order_number, user_id, status, payment_status,
	subtotal, tax_amount, shipping_amount, discount_amount, total,
	COALESCE(coupon_id, ''), COALESCE(shipping_address_id, ''), COALESCE(billing_address_id, ''),
	shipped_at, delivered_at, created_at, updated_at`

const (
	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (id, order_number, user_id, status, payment_status,
		subtotal, tax_amount, shipping_amount, discount_amount, total,
		coupon_id, shipping_address_id, billing_address_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''))`

	updateOrderSQL = `UPDATE orders SET payment_status = $2,
		subtotal = $3, tax_amount = $4, shipping_amount = $5,
		discount_amount = $6, total = $7, coupon_id = NULLIF($8, ''),
		shipping_address_id = NULLIF($9, ''), billing_address_id = NULLIF($10, ''),
		updated_at = now()
		WHERE id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2,
		shipped_at = $3, delivered_at = $4, updated_at = now()
		WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT id, product_id, quantity, unit_price, total
		FROM order_items WHERE order_id = $1 ORDER BY id`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6)`
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

// List returns all orders, newest first, without line items.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetByID returns an order with its line items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scanning order %q", id)
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "listing items for order %q", id)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, errors.Wrapf(err, "scanning items for order %q", id)
	}
	return &o, nil
}

// Create persists a new order and its line items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.OrderNumber, o.UserID, o.Status, o.PaymentStatus,
			o.Subtotal, o.TaxAmount, o.ShippingAmount, o.DiscountAmount, o.Total,
			o.CouponID, o.ShippingAddressID, o.BillingAddressID,
		)
		if err != nil {
			return errors.Wrapf(err, "inserting order %q", o.ID)
		}
		return insertItems(ctx, tx, o)
	})
}

// Update persists order edits and replaces the line items. Status changes go
// through UpdateStatus instead.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateOrderSQL,
			o.ID, o.PaymentStatus,
			o.Subtotal, o.TaxAmount, o.ShippingAmount, o.DiscountAmount, o.Total,
			o.CouponID, o.ShippingAddressID, o.BillingAddressID,
		)
		if err != nil {
			return errors.Wrapf(err, "updating order %q", o.ID)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotFound
		}

		if _, err := tx.Exec(ctx, deleteOrderItemsSQL, o.ID); err != nil {
			return errors.Wrapf(err, "clearing items for order %q", o.ID)
		}
		return insertItems(ctx, tx, o)
	})
}

// UpdateStatus persists a status change plus the fulfillment timestamps.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, o.ID, o.Status, o.ShippedAt, o.DeliveredAt)
	if err != nil {
		return errors.Wrapf(err, "updating status for order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes an order and, via cascade, its line items.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func insertItems(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	for i := range o.Items {
		item := &o.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		_, err := tx.Exec(ctx, insertOrderItemSQL,
			item.ID, o.ID, item.ProductID, item.Quantity, item.UnitPrice, item.Total,
		)
		if err != nil {
			return errors.Wrapf(err, "inserting item %q for order %q", item.ProductID, o.ID)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus,
		&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.Total,
		&o.CouponID, &o.ShippingAddressID, &o.BillingAddressID,
		&o.ShippedAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Total)
	return it, err
}
