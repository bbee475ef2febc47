// Package coupon validates discount codes against order subtotals and owns
// the usage-count integrity of every coupon.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the subtotal.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixedAmount subtracts a fixed value, capped at the subtotal.
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

var (
	// ErrCouponNotFound is returned when no active coupon matches a code.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrLimitReached is returned when a reservation races past the usage limit.
	ErrLimitReached = errors.New("coupon usage limit reached")
)

// Coupon is a discount code with a validity window, usage cap, and discount
// formula. UsedCount is mutated only through Repository.Reserve and
// Repository.Release, never directly.
type Coupon struct {
	ID                int64
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MinimumOrderValue decimal.Decimal
	MaximumDiscount   *decimal.Decimal
	UsageLimit        *int
	UsedCount         int
	ValidFrom         time.Time
	ValidUntil        time.Time
	Active            bool
}

// Rejection reasons carried by ValidationResult.
const (
	ReasonNotFound     = "not_found"
	ReasonNotYetValid  = "not_yet_valid"
	ReasonExpired      = "expired"
	ReasonBelowMinimum = "below_minimum"
	ReasonLimitReached = "limit_reached"
)

// ValidationResult is the outcome of validating a coupon against a subtotal.
// Rejection is data, not an error: callers decide whether to proceed without
// the discount.
type ValidationResult struct {
	Valid      bool
	Reason     string
	Message    string
	Discount   decimal.Decimal
	FinalTotal decimal.Decimal
	Coupon     *Coupon
}

// Repository provides coupon lookup and the two atomic usage-count mutations.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// Reserve increments UsedCount only while it is below the usage limit,
	// as a single conditional update. Returns ErrLimitReached when the
	// limit is exhausted and ErrCouponNotFound for unknown or inactive codes.
	Reserve(ctx context.Context, code string) error

	// Release undoes a reservation. UsedCount never goes below zero.
	Release(ctx context.Context, code string) error
}
