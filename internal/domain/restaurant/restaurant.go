package restaurant

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/devmaster/food-delivery/internal/domain/pricing"
)

var (
	// ErrNotFound is returned when a requested restaurant does not exist.
	ErrNotFound = errors.New("restaurant not found")
	// ErrClosed is returned when the restaurant is not accepting orders.
	ErrClosed = errors.New("restaurant is closed")
	// ErrInactive is returned when the restaurant has been deactivated.
	ErrInactive = errors.New("restaurant is inactive")
)

// BelowMinimumOrderError is returned when an order subtotal does not
// reach the restaurant's minimum.
type BelowMinimumOrderError struct {
	Minimum decimal.Decimal
}

func (e *BelowMinimumOrderError) Error() string {
	return "order subtotal below restaurant minimum of " + e.Minimum.StringFixed(2)
}

// Restaurant is an establishment customers order from. Location is
// the pickup point for delivery distance calculations.
type Restaurant struct {
	ID                int64
	Name              string
	Location          pricing.GeoPoint
	PrepTimeMinutes   int
	MinimumOrderValue decimal.Decimal
	Active            bool
	Open              bool
}

// AcceptingOrders reports whether new orders may be placed. It returns
// ErrInactive or ErrClosed describing why not.
func (r *Restaurant) AcceptingOrders() error {
	if !r.Active {
		return ErrInactive
	}
	if !r.Open {
		return ErrClosed
	}
	return nil
}

// Repository defines read operations for restaurants.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Restaurant, error)
}
