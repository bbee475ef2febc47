package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// UnavailableError is returned when an order references a product
// that exists but is not currently offered.
type UnavailableError struct {
	ProductID int64
	Name      string
}

func (e *UnavailableError) Error() string {
	return "product " + e.Name + " is unavailable"
}

// Product represents a menu item offered by a restaurant.
type Product struct {
	ID           int64
	RestaurantID int64
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     string
	Available    bool
	Options      []Option
}

// Option is an add-on a customer may attach to a product,
// such as an extra topping. AdditionalPrice may be zero.
type Option struct {
	ID              int64
	Name            string
	AdditionalPrice decimal.Decimal
	Available       bool
}

// Option returns the option with the given id, or nil when the
// product does not offer it.
func (p *Product) Option(id int64) *Option {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}

// Repository defines read operations for the menu catalog.
type Repository interface {
	List(ctx context.Context, restaurantID int64) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
