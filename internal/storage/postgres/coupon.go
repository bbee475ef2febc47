package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devmaster/food-delivery/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, description, discount_type, discount_value,
		minimum_order_value, maximum_discount, usage_limit, used_count,
		valid_from, valid_until, active
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	// The WHERE clause admits the increment only while a slot is free, so
	// concurrent reservations against the same coupon serialize on the row
	// and at most usage_limit of them succeed.
	reserveCouponSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE UPPER(code) = UPPER($1) AND active = TRUE
		AND (usage_limit IS NULL OR used_count < usage_limit)`

	releaseCouponSQL = `UPDATE coupons SET used_count = GREATEST(used_count - 1, 0)
		WHERE UPPER(code) = UPPER($1)`

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE UPPER(code) = UPPER($1))`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive). Returns
// coupon.ErrCouponNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "finding coupon by code %q", code)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, errors.Wrapf(err, "finding coupon by code %q", code)
	}
	return c, nil
}

// Reserve consumes one usage slot with a single conditional update. It
// returns coupon.ErrLimitReached when every slot is taken and
// coupon.ErrCouponNotFound when the code does not exist.
func (r *CouponRepository) Reserve(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, reserveCouponSQL, code)
	if err != nil {
		return errors.Wrapf(err, "reserving coupon %q", code)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, couponExistsSQL, code).Scan(&exists); err != nil {
			return errors.Wrapf(err, "reserving coupon %q", code)
		}
		if !exists {
			return coupon.ErrCouponNotFound
		}
		return coupon.ErrLimitReached
	}
	return nil
}

// Release hands a usage slot back. The counter never goes below zero.
func (r *CouponRepository) Release(ctx context.Context, code string) error {
	if _, err := r.pool.Exec(ctx, releaseCouponSQL, code); err != nil {
		return errors.Wrapf(err, "releasing coupon %q", code)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (*coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.DiscountValue,
		&c.MinimumOrderValue, &c.MaximumDiscount, &c.UsageLimit, &c.UsedCount,
		&c.ValidFrom, &c.ValidUntil, &c.Active,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return &c, err
}
