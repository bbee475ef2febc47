package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devmaster/food-delivery/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (
		id, number, restaurant_id, status, payment_status, items,
		subtotal, delivery_fee, discount, total, coupon_code,
		distance_km, eta_minutes, notes, cancellation_reason,
		created_at, estimated_delivery, history, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16, $17, $18, $19)`

	getOrderSQL = `SELECT id, number, restaurant_id, status, payment_status, items,
		subtotal, delivery_fee, discount, total, coupon_code,
		distance_km, eta_minutes, notes, cancellation_reason,
		created_at, confirmed_at, preparing_at, ready_at, dispatched_at,
		delivered_at, canceled_at, estimated_delivery, history, version
		FROM orders WHERE id = $1`

	// The version predicate makes the save a compare-and-swap: a concurrent
	// writer that committed first leaves this update matching zero rows.
	saveOrderSQL = `UPDATE orders SET
		status = $2, payment_status = $3, cancellation_reason = $4,
		confirmed_at = $5, preparing_at = $6, ready_at = $7,
		dispatched_at = $8, delivered_at = $9, canceled_at = $10,
		history = $11, version = version + 1
		WHERE id = $1 AND version = $12`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items and the status history are stored as JSONB documents on the order
// row.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order with version 1.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshaling order items")
	}
	historyJSON, err := json.Marshal(o.History)
	if err != nil {
		return errors.Wrap(err, "marshaling order history")
	}

	o.Version = 1
	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Number, o.RestaurantID, o.Status, o.PaymentStatus, itemsJSON,
		o.Subtotal, o.DeliveryFee, o.Discount, o.Total, o.CouponCode,
		o.DistanceKm, o.ETAMinutes, o.Notes, o.CancellationReason,
		o.CreatedAt, o.EstimatedDelivery, historyJSON, o.Version,
	)
	if err != nil {
		return errors.Wrapf(err, "creating order %q", o.ID)
	}

	return nil
}

// Get returns an order by id, or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", id)
	}
	return o, nil
}

// Save updates the mutable fields of an order, conditional on the version
// observed at load time. When the row moved on since then it returns
// order.ErrConcurrencyConflict; the caller is expected to reload and retry.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order, expectedVersion int64) error {
	historyJSON, err := json.Marshal(o.History)
	if err != nil {
		return errors.Wrap(err, "marshaling order history")
	}

	tag, err := r.pool.Exec(ctx, saveOrderSQL,
		o.ID, o.Status, o.PaymentStatus, o.CancellationReason,
		o.ConfirmedAt, o.PreparingAt, o.ReadyAt,
		o.DispatchedAt, o.DeliveredAt, o.CanceledAt,
		historyJSON, expectedVersion,
	)
	if err != nil {
		return errors.Wrapf(err, "saving order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, orderExistsSQL, o.ID).Scan(&exists); err != nil {
			return errors.Wrapf(err, "saving order %q", o.ID)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrConcurrencyConflict
	}

	o.Version = expectedVersion + 1
	return nil
}

func scanOrder(row pgx.CollectableRow) (*order.Order, error) {
	var (
		o           order.Order
		itemsJSON   []byte
		historyJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.RestaurantID, &o.Status, &o.PaymentStatus, &itemsJSON,
		&o.Subtotal, &o.DeliveryFee, &o.Discount, &o.Total, &o.CouponCode,
		&o.DistanceKm, &o.ETAMinutes, &o.Notes, &o.CancellationReason,
		&o.CreatedAt, &o.ConfirmedAt, &o.PreparingAt, &o.ReadyAt, &o.DispatchedAt,
		&o.DeliveredAt, &o.CanceledAt, &o.EstimatedDelivery, &historyJSON, &o.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshaling order items")
	}
	if err := json.Unmarshal(historyJSON, &o.History); err != nil {
		return nil, errors.Wrap(err, "unmarshaling order history")
	}
	return &o, nil
}
