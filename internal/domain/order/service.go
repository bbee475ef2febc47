package order

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devmaster/food-delivery/internal/domain/coupon"
	"github.com/devmaster/food-delivery/internal/domain/pricing"
	"github.com/devmaster/food-delivery/internal/domain/product"
	"github.com/devmaster/food-delivery/internal/domain/restaurant"
)

// CartItem is one requested line of a new order, referencing catalog
// entries by id. Prices are resolved server side.
type CartItem struct {
	ProductID int64
	Quantity  int
	OptionIDs []int64
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	RestaurantID     int64
	DeliveryLocation pricing.GeoPoint
	Items            []CartItem
	CouponCode       string
	Notes            string
	Actor            string
}

// CreateResult holds the outcome of a placed order. CouponRejection is
// set when a coupon code was supplied but could not be applied; the
// order is still created without the discount.
type CreateResult struct {
	Order           *Order
	CouponRejection *coupon.ValidationResult
}

// Service coordinates order placement and lifecycle updates across the
// catalog, coupon, pricing and persistence layers.
type Service struct {
	products    product.Repository
	restaurants restaurant.Repository
	coupons     *coupon.Engine
	pricing     *pricing.Calculator
	orders      Repository
	machine     *Machine
	now         func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	restaurants restaurant.Repository,
	coupons *coupon.Engine,
	calc *pricing.Calculator,
	orders Repository,
	machine *Machine,
) *Service {
	return &Service{
		products:    products,
		restaurants: restaurants,
		coupons:     coupons,
		pricing:     calc,
		orders:      orders,
		machine:     machine,
		now:         time.Now,
	}
}

// Create validates the cart, snapshots catalog prices, quotes the
// delivery, applies the coupon when possible and persists the order in
// AWAITING_CONFIRMATION.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	rest, err := s.restaurants.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "get restaurant")
	}
	if err := rest.AcceptingOrders(); err != nil {
		return nil, err
	}

	items, subtotal, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if subtotal.LessThan(rest.MinimumOrderValue) {
		return nil, &restaurant.BelowMinimumOrderError{Minimum: rest.MinimumOrderValue}
	}

	quote := s.pricing.Quote(rest.Location, req.DeliveryLocation, rest.PrepTimeMinutes)

	result := &CreateResult{}
	discount := decimal.Zero
	appliedCode := ""
	if req.CouponCode != "" {
		validation, err := s.coupons.Validate(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		if validation.Valid {
			// Claim a usage slot before committing to the discount. The
			// reservation can still lose a race against the usage limit;
			// the order then proceeds at full price.
			if err := s.coupons.Reserve(ctx, req.CouponCode); err != nil {
				if errors.Is(err, coupon.ErrLimitReached) {
					rejected := coupon.ValidationResult{
						Valid:   false,
						Reason:  coupon.ReasonLimitReached,
						Message: "coupon usage limit reached",
					}
					result.CouponRejection = &rejected
				} else {
					return nil, errors.Wrap(err, "reserve coupon")
				}
			} else {
				discount = validation.Discount
				appliedCode = req.CouponCode
			}
		} else {
			rejection := validation
			result.CouponRejection = &rejection
		}
	}

	total := subtotal.Add(quote.Fee).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:           uuid.New().String(),
		Number:       newOrderNumber(s.now()),
		RestaurantID: req.RestaurantID,
		Items:        items,
		Subtotal:     subtotal.Round(2),
		DeliveryFee:  quote.Fee,
		Discount:     discount.Round(2),
		Total:        total.Round(2),
		CouponCode:   appliedCode,
		DistanceKm:   quote.DistanceKm,
		ETAMinutes:   quote.ETAMinutes,
		Notes:        req.Notes,
	}
	s.machine.Initialize(o, req.Actor)
	o.EstimatedDelivery = o.CreatedAt.Add(time.Duration(quote.ETAMinutes) * time.Minute)

	if err := s.orders.Create(ctx, o); err != nil {
		// The order never existed, so the usage slot must be handed back.
		if appliedCode != "" {
			_ = s.coupons.Release(ctx, appliedCode)
		}
		return nil, errors.Wrap(err, "create order")
	}

	result.Order = o
	return result, nil
}

// buildItems resolves cart lines against the catalog in one batch,
// snapshots prices and computes the subtotal.
func (s *Service) buildItems(ctx context.Context, cart []CartItem) ([]Item, decimal.Decimal, error) {
	ids := make([]int64, len(cart))
	for i, line := range cart {
		if line.Quantity <= 0 {
			return nil, decimal.Zero, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	items := make([]Item, 0, len(cart))
	subtotal := decimal.Zero
	for _, line := range cart {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, decimal.Zero, errors.Wrapf(product.ErrNotFound, "product %d", line.ProductID)
		}
		if !p.Available {
			return nil, decimal.Zero, &product.UnavailableError{ProductID: p.ID, Name: p.Name}
		}

		opts := make([]ItemOption, 0, len(line.OptionIDs))
		for _, optID := range line.OptionIDs {
			opt := p.Option(optID)
			if opt == nil || !opt.Available {
				return nil, decimal.Zero, errors.Wrapf(product.ErrNotFound, "option %d for product %d", optID, p.ID)
			}
			opts = append(opts, ItemOption{
				OptionID:        opt.ID,
				Name:            opt.Name,
				AdditionalPrice: opt.AdditionalPrice,
			})
		}

		item := Item{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			Options:   opts,
		}
		item.Subtotal = item.ComputeSubtotal()
		items = append(items, item)
		subtotal = subtotal.Add(item.Subtotal)
	}
	return items, subtotal, nil
}

// UpdateStatus transitions an order to target and persists it with an
// optimistic version check.
func (s *Service) UpdateStatus(ctx context.Context, id string, target Status, actor, note string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.machine.Transition(o, target, actor, note); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o, o.Version); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel cancels an order with the given reason. When the order held a
// coupon and was canceled before confirmation, the usage slot is
// released.
func (s *Service) Cancel(ctx context.Context, id, reason, actor string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	wasCanceled := o.Status == StatusCanceled
	confirmed := o.ConfirmedAt != nil
	if err := s.machine.Cancel(o, reason, actor); err != nil {
		return nil, err
	}
	if wasCanceled {
		return o, nil
	}
	if err := s.orders.Save(ctx, o, o.Version); err != nil {
		return nil, err
	}
	if o.CouponCode != "" && !confirmed {
		if err := s.coupons.Release(ctx, o.CouponCode); err != nil {
			return nil, errors.Wrap(err, "release coupon")
		}
	}
	return o, nil
}

// SetPaymentStatus transitions the payment state of an order.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, target PaymentStatus) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.machine.TransitionPayment(o, target); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o, o.Version); err != nil {
		return nil, err
	}
	return o, nil
}

// ValidateCoupon previews a coupon against a subtotal without reserving
// a usage slot.
func (s *Service) ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (coupon.ValidationResult, error) {
	return s.coupons.Validate(ctx, code, subtotal)
}

// Quote estimates delivery fee and time for a restaurant and drop-off
// point without creating an order.
func (s *Service) Quote(ctx context.Context, restaurantID int64, dest pricing.GeoPoint) (pricing.Quote, error) {
	rest, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return pricing.Quote{}, errors.Wrap(err, "get restaurant")
	}
	return s.pricing.Quote(rest.Location, dest, rest.PrepTimeMinutes), nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// History returns the status history of an order, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.History, nil
}

// newOrderNumber builds a human readable order reference such as
// ORD-20260901-4F2A91.
func newOrderNumber(at time.Time) string {
	return fmt.Sprintf("ORD-%s-%06X", at.UTC().Format("20060102"), rand.Intn(1<<24))
}
