package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Engine validates coupon codes and prices their discounts. Reservation and
// release of usage slots are delegated to the repository, which implements
// them as single conditional updates.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates an Engine backed by the given Repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Validate checks a coupon code against an order subtotal and computes the
// discount. It is read-only: no usage slot is consumed. Business-rule
// rejections come back inside the result, never as an error; the error return
// is reserved for repository failures.
func (e *Engine) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (ValidationResult, error) {
	c, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return rejected(ReasonNotFound, "coupon not found"), nil
		}
		return ValidationResult{}, errors.Wrap(err, "lookup coupon")
	}

	if !c.Active {
		return rejected(ReasonNotFound, "coupon not found"), nil
	}

	// Validity window is a closed interval [ValidFrom, ValidUntil].
	now := e.now()
	if now.Before(c.ValidFrom) {
		return rejected(ReasonNotYetValid, "coupon is not valid yet"), nil
	}
	if now.After(c.ValidUntil) {
		return rejected(ReasonExpired, "coupon expired"), nil
	}

	if subtotal.LessThan(c.MinimumOrderValue) {
		return rejected(ReasonBelowMinimum,
			"order subtotal below coupon minimum of "+c.MinimumOrderValue.StringFixed(2)), nil
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return rejected(ReasonLimitReached, "coupon usage limit reached"), nil
	}

	discount := Discount(c, subtotal)

	return ValidationResult{
		Valid:      true,
		Message:    "coupon applied",
		Discount:   discount,
		FinalTotal: subtotal.Sub(discount),
		Coupon:     c,
	}, nil
}

// Reserve consumes one usage slot for the coupon. The repository performs the
// increment as an atomic compare-and-increment, so N concurrent reservations
// against limit L yield exactly min(N, L) successes.
func (e *Engine) Reserve(ctx context.Context, code string) error {
	if err := e.repo.Reserve(ctx, code); err != nil {
		if errors.Is(err, ErrLimitReached) || errors.Is(err, ErrCouponNotFound) {
			return err
		}
		return errors.Wrap(err, "reserve coupon")
	}
	return nil
}

// Release returns a previously reserved usage slot, e.g. when an order is
// canceled before it was committed.
func (e *Engine) Release(ctx context.Context, code string) error {
	if err := e.repo.Release(ctx, code); err != nil {
		return errors.Wrap(err, "release coupon")
	}
	return nil
}

// Discount computes the raw discount for a coupon and subtotal without any
// eligibility checks. Percentage discounts are a share of the subtotal; fixed
// discounts are capped at the subtotal. Both are then clamped to
// MaximumDiscount when set. The result is rounded to 2 decimal places and
// never exceeds the subtotal.
func Discount(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(c.DiscountValue).Div(hundred)
	case DiscountFixedAmount:
		discount = decimal.Min(c.DiscountValue, subtotal)
	default:
		return decimal.Zero
	}

	if c.MaximumDiscount != nil && discount.GreaterThan(*c.MaximumDiscount) {
		discount = *c.MaximumDiscount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return discount.Round(2)
}

func rejected(reason, message string) ValidationResult {
	return ValidationResult{
		Valid:    false,
		Reason:   reason,
		Message:  message,
		Discount: decimal.Zero,
	}
}
