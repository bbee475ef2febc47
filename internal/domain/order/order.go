// Package order owns the order aggregate: its pricing invariants, its status
// and payment lifecycles, and the append-only history of every transition.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order lifecycle operations.
var (
	// ErrNotFound is returned when no order matches the given ID.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyTerminal is returned when mutating a delivered or canceled order.
	ErrAlreadyTerminal = errors.New("order is in a terminal status")
	// ErrConcurrencyConflict is returned when a conditional save observed a
	// stale version. The caller must reload and retry.
	ErrConcurrencyConflict = errors.New("order was modified concurrently")
	// ErrEmptyItems is returned when an order is created without items.
	ErrEmptyItems = errors.New("order requires at least one item")
)

// InvalidTransitionError indicates an attempted edge that is not in the
// allowed-transitions table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// ItemOption is a selected product option with its price snapshot.
type ItemOption struct {
	OptionID        int64
	Name            string
	AdditionalPrice decimal.Decimal
}

// Item is an order line with prices snapshotted at order time. Later product
// price changes never affect an existing order.
type Item struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Options   []ItemOption
	Subtotal  decimal.Decimal
}

// ComputeSubtotal returns quantity × (unit price + option add-ons).
func (i Item) ComputeSubtotal() decimal.Decimal {
	unit := i.UnitPrice
	for _, opt := range i.Options {
		unit = unit.Add(opt.AdditionalPrice)
	}
	return unit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HistoryEntry is one record in the append-only status transition log.
type HistoryEntry struct {
	Status    Status
	Actor     string
	Note      string
	CreatedAt time.Time
}

// Order is the aggregate root for a customer purchase. It is created once by
// the Service and mutated only through the Machine afterwards.
//
// Pricing invariant: Total = max(Subtotal + DeliveryFee - Discount, 0) and
// Discount <= Subtotal.
type Order struct {
	ID     string
	Number string

	RestaurantID int64

	Status        Status
	PaymentStatus PaymentStatus

	Items []Item

	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	CouponCode  string

	DistanceKm decimal.Decimal
	ETAMinutes int

	Notes              string
	CancellationReason string

	// One timestamp per status reached, set once and never overwritten.
	CreatedAt         time.Time
	ConfirmedAt       *time.Time
	PreparingAt       *time.Time
	ReadyAt           *time.Time
	DispatchedAt      *time.Time
	DeliveredAt       *time.Time
	CanceledAt        *time.Time
	EstimatedDelivery time.Time

	History []HistoryEntry

	// Version backs optimistic locking: saves are conditional on the
	// version observed at load time.
	Version int64
}

// StatusTimestamp returns the timestamp recorded for the given status, or nil
// if the order never reached it.
func (o *Order) StatusTimestamp(s Status) *time.Time {
	switch s {
	case StatusAwaitingConfirmation:
		return &o.CreatedAt
	case StatusConfirmed:
		return o.ConfirmedAt
	case StatusPreparing:
		return o.PreparingAt
	case StatusReady:
		return o.ReadyAt
	case StatusOutForDelivery:
		return o.DispatchedAt
	case StatusDelivered:
		return o.DeliveredAt
	case StatusCanceled:
		return o.CanceledAt
	}
	return nil
}

// setStatusTimestamp stamps the field for s if it has not been set yet.
func (o *Order) setStatusTimestamp(s Status, at time.Time) {
	stamp := func(field **time.Time) {
		if *field == nil {
			t := at
			*field = &t
		}
	}

	switch s {
	case StatusConfirmed:
		stamp(&o.ConfirmedAt)
	case StatusPreparing:
		stamp(&o.PreparingAt)
	case StatusReady:
		stamp(&o.ReadyAt)
	case StatusOutForDelivery:
		stamp(&o.DispatchedAt)
	case StatusDelivered:
		stamp(&o.DeliveredAt)
	case StatusCanceled:
		stamp(&o.CanceledAt)
	}
}

// Repository defines persistence for orders. Save is conditional on the
// expected version and must return ErrConcurrencyConflict on a stale write.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Save(ctx context.Context, o *Order, expectedVersion int64) error
}
