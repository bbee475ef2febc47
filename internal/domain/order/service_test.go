package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmaster/food-delivery/internal/domain/coupon"
	"github.com/devmaster/food-delivery/internal/domain/pricing"
	"github.com/devmaster/food-delivery/internal/domain/product"
	"github.com/devmaster/food-delivery/internal/domain/restaurant"
)

type mockProductRepo struct {
	products map[int64]product.Product
}

func (m *mockProductRepo) List(_ context.Context, _ int64) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockRestaurantRepo struct {
	restaurants map[int64]restaurant.Restaurant
}

func (m *mockRestaurantRepo) GetByID(_ context.Context, id int64) (*restaurant.Restaurant, error) {
	r, ok := m.restaurants[id]
	if !ok {
		return nil, restaurant.ErrNotFound
	}
	return &r, nil
}

type mockCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*coupon.Coupon
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[code]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) Reserve(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[code]
	if !ok {
		return coupon.ErrCouponNotFound
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return coupon.ErrLimitReached
	}
	c.UsedCount++
	return nil
}

func (m *mockCouponRepo) Release(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coupons[code]; ok && c.UsedCount > 0 {
		c.UsedCount--
	}
	return nil
}

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Save(_ context.Context, o *Order, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrConcurrencyConflict
	}
	o.Version = expectedVersion + 1
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func testPricingParams() pricing.Params {
	return pricing.Params{
		BaseFee:          decimal.RequireFromString("5.00"),
		PerKmRate:        decimal.RequireFromString("1.50"),
		AvgSpeedKmh:      20,
		MinTravelMinutes: 10,
	}
}

func newTestService(t *testing.T, coupons map[string]*coupon.Coupon) (*Service, *mockOrderRepo, *mockCouponRepo) {
	t.Helper()

	products := &mockProductRepo{products: map[int64]product.Product{
		1: {
			ID:        1,
			Name:      "Margherita",
			Price:     decimal.RequireFromString("40.00"),
			Available: true,
			Options: []product.Option{
				{ID: 10, Name: "Extra cheese", AdditionalPrice: decimal.RequireFromString("5.00"), Available: true},
				{ID: 11, Name: "Stale topping", AdditionalPrice: decimal.Zero, Available: false},
			},
		},
		2: {ID: 2, Name: "Soda", Price: decimal.RequireFromString("8.00"), Available: true},
		3: {ID: 3, Name: "Sold out", Price: decimal.RequireFromString("12.00"), Available: false},
	}}
	restaurants := &mockRestaurantRepo{restaurants: map[int64]restaurant.Restaurant{
		7: {
			ID:                7,
			Name:              "Pizza Place",
			Location:          mustGeo(t, -23.5505, -46.6333),
			PrepTimeMinutes:   30,
			MinimumOrderValue: decimal.RequireFromString("20.00"),
			Active:            true,
			Open:              true,
		},
	}}
	if coupons == nil {
		coupons = map[string]*coupon.Coupon{}
	}
	couponRepo := &mockCouponRepo{coupons: coupons}
	orders := newMockOrderRepo()

	svc := NewService(
		products,
		restaurants,
		coupon.NewEngine(couponRepo),
		pricing.NewCalculator(testPricingParams()),
		orders,
		NewMachine(),
	)
	return svc, orders, couponRepo
}

func mustGeo(t *testing.T, lat, lon float64) pricing.GeoPoint {
	t.Helper()
	p, err := pricing.NewGeoPoint(lat, lon)
	require.NoError(t, err)
	return p
}

func activeCoupon(code string, usageLimit *int) *coupon.Coupon {
	return &coupon.Coupon{
		ID:            1,
		Code:          code,
		DiscountType:  coupon.DiscountPercentage,
		DiscountValue: decimal.RequireFromString("10"),
		ValidFrom:     time.Now().Add(-24 * time.Hour),
		ValidUntil:    time.Now().Add(24 * time.Hour),
		UsageLimit:    usageLimit,
		Active:        true,
	}
}

func baseRequest(t *testing.T) CreateRequest {
	return CreateRequest{
		RestaurantID:     7,
		DeliveryLocation: mustGeo(t, -23.5614, -46.6559),
		Items: []CartItem{
			{ProductID: 1, Quantity: 1, OptionIDs: []int64{10}},
			{ProductID: 2, Quantity: 2},
		},
		Actor: "customer",
	}
}

func TestService_Create(t *testing.T) {
	svc, orders, _ := newTestService(t, nil)

	res, err := svc.Create(context.Background(), baseRequest(t))
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.CouponRejection)

	o := res.Order
	assert.Equal(t, StatusAwaitingConfirmation, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.NotEmpty(t, o.Number)

	// 1 x (40 + 5) + 2 x 8 = 61.00
	assert.True(t, decimal.RequireFromString("61.00").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, o.DeliveryFee.GreaterThan(decimal.RequireFromString("5.00")), "fee %s", o.DeliveryFee)
	assert.True(t, o.Subtotal.Add(o.DeliveryFee).Equal(o.Total), "total %s", o.Total)
	assert.True(t, o.EstimatedDelivery.After(o.CreatedAt))

	stored, err := orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, stored.Number)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateRequest)
		wantErr func(*testing.T, error)
	}{
		{
			name:   "no items",
			mutate: func(r *CreateRequest) { r.Items = nil },
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyItems)
			},
		},
		{
			name:   "zero quantity",
			mutate: func(r *CreateRequest) { r.Items[0].Quantity = 0 },
			wantErr: func(t *testing.T, err error) {
				var invalid *InvalidQuantityError
				assert.ErrorAs(t, err, &invalid)
			},
		},
		{
			name:   "unknown restaurant",
			mutate: func(r *CreateRequest) { r.RestaurantID = 99 },
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, restaurant.ErrNotFound)
			},
		},
		{
			name:   "unknown product",
			mutate: func(r *CreateRequest) { r.Items[0].ProductID = 99 },
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, product.ErrNotFound)
			},
		},
		{
			name:   "unavailable product",
			mutate: func(r *CreateRequest) { r.Items[0].ProductID = 3 },
			wantErr: func(t *testing.T, err error) {
				var unavailable *product.UnavailableError
				assert.ErrorAs(t, err, &unavailable)
			},
		},
		{
			name:   "unavailable option",
			mutate: func(r *CreateRequest) { r.Items[0].OptionIDs = []int64{11} },
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, product.ErrNotFound)
			},
		},
		{
			name: "below restaurant minimum",
			mutate: func(r *CreateRequest) {
				r.Items = []CartItem{{ProductID: 2, Quantity: 1}}
			},
			wantErr: func(t *testing.T, err error) {
				var below *restaurant.BelowMinimumOrderError
				assert.ErrorAs(t, err, &below)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t, nil)
			req := baseRequest(t)
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			tt.wantErr(t, err)
		})
	}
}

func TestService_Create_WithCoupon(t *testing.T) {
	limit := 10
	svc, _, repo := newTestService(t, map[string]*coupon.Coupon{
		"SAVE10": activeCoupon("SAVE10", &limit),
	})

	req := baseRequest(t)
	req.CouponCode = "SAVE10"

	res, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, res.CouponRejection)

	o := res.Order
	assert.Equal(t, "SAVE10", o.CouponCode)
	// 10% of 61.00
	assert.True(t, decimal.RequireFromString("6.10").Equal(o.Discount), "discount %s", o.Discount)
	assert.True(t, o.Subtotal.Add(o.DeliveryFee).Sub(o.Discount).Equal(o.Total), "total %s", o.Total)
	assert.Equal(t, 1, repo.coupons["SAVE10"].UsedCount)
}

func TestService_Create_InvalidCouponProceedsWithoutDiscount(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	req := baseRequest(t)
	req.CouponCode = "NOPE"

	res, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res.CouponRejection)
	assert.Equal(t, coupon.ReasonNotFound, res.CouponRejection.Reason)

	o := res.Order
	assert.Empty(t, o.CouponCode)
	assert.True(t, o.Discount.IsZero())
	assert.True(t, o.Subtotal.Add(o.DeliveryFee).Equal(o.Total))
}

func TestService_Create_CouponExhausted(t *testing.T) {
	limit := 0
	svc, _, _ := newTestService(t, map[string]*coupon.Coupon{
		"GONE": activeCoupon("GONE", &limit),
	})

	req := baseRequest(t)
	req.CouponCode = "GONE"

	res, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res.CouponRejection)
	assert.Equal(t, coupon.ReasonLimitReached, res.CouponRejection.Reason)
	assert.True(t, res.Order.Discount.IsZero())
}

func TestService_UpdateStatus(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	res, err := svc.Create(context.Background(), baseRequest(t))
	require.NoError(t, err)

	o, err := svc.UpdateStatus(context.Background(), res.Order.ID, StatusConfirmed, "restaurant", "")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	require.NotNil(t, o.ConfirmedAt)

	// Reload and continue down the lifecycle.
	o, err = svc.UpdateStatus(context.Background(), o.ID, StatusPreparing, "restaurant", "")
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, o.Status)
}

func TestService_UpdateStatus_InvalidEdge(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	res, err := svc.Create(context.Background(), baseRequest(t))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), res.Order.ID, StatusDelivered, "courier", "")
	var invalid *InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestService_UpdateStatus_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.UpdateStatus(context.Background(), "missing", StatusConfirmed, "restaurant", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateStatus_ConcurrencyConflict(t *testing.T) {
	svc, orders, _ := newTestService(t, nil)
	res, err := svc.Create(context.Background(), baseRequest(t))
	require.NoError(t, err)

	// A competing writer bumps the stored version between load and save.
	orders.mu.Lock()
	orders.orders[res.Order.ID].Version++
	orders.mu.Unlock()

	stale := *res.Order
	err = orders.Save(context.Background(), &stale, res.Order.Version)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
}

func TestService_Cancel_ReleasesCouponBeforeConfirmation(t *testing.T) {
	limit := 10
	svc, _, repo := newTestService(t, map[string]*coupon.Coupon{
		"SAVE10": activeCoupon("SAVE10", &limit),
	})

	req := baseRequest(t)
	req.CouponCode = "SAVE10"
	res, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, repo.coupons["SAVE10"].UsedCount)

	o, err := svc.Cancel(context.Background(), res.Order.ID, "changed my mind", "customer")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, o.Status)
	assert.Equal(t, "changed my mind", o.CancellationReason)
	assert.Equal(t, 0, repo.coupons["SAVE10"].UsedCount)
}

func TestService_Cancel_KeepsCouponAfterConfirmation(t *testing.T) {
	limit := 10
	svc, _, repo := newTestService(t, map[string]*coupon.Coupon{
		"SAVE10": activeCoupon("SAVE10", &limit),
	})

	req := baseRequest(t)
	req.CouponCode = "SAVE10"
	res, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), res.Order.ID, StatusConfirmed, "restaurant", "")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), res.Order.ID, "kitchen fire", "restaurant")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.coupons["SAVE10"].UsedCount)
}

func TestService_Cancel_Idempotent(t *testing.T) {
	limit := 10
	svc, _, repo := newTestService(t, map[string]*coupon.Coupon{
		"SAVE10": activeCoupon("SAVE10", &limit),
	})

	req := baseRequest(t)
	req.CouponCode = "SAVE10"
	res, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), res.Order.ID, "first", "customer")
	require.NoError(t, err)
	o, err := svc.Cancel(context.Background(), res.Order.ID, "second", "customer")
	require.NoError(t, err)

	assert.Equal(t, "first", o.CancellationReason)
	// The usage slot is handed back exactly once.
	assert.Equal(t, 0, repo.coupons["SAVE10"].UsedCount)
}

func TestService_SetPaymentStatus(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	res, err := svc.Create(context.Background(), baseRequest(t))
	require.NoError(t, err)

	o, err := svc.SetPaymentStatus(context.Background(), res.Order.ID, PaymentProcessing)
	require.NoError(t, err)
	assert.Equal(t, PaymentProcessing, o.PaymentStatus)

	o, err = svc.SetPaymentStatus(context.Background(), o.ID, PaymentApproved)
	require.NoError(t, err)
	assert.Equal(t, PaymentApproved, o.PaymentStatus)

	_, err = svc.SetPaymentStatus(context.Background(), o.ID, PaymentPending)
	var invalid *InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestService_History(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	res, err := svc.Create(context.Background(), baseRequest(t))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), res.Order.ID, StatusConfirmed, "restaurant", "accepted")
	require.NoError(t, err)

	history, err := svc.History(context.Background(), res.Order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, StatusAwaitingConfirmation, history[0].Status)
	assert.Equal(t, StatusConfirmed, history[1].Status)
	assert.Equal(t, "accepted", history[1].Note)
}

func TestService_Quote(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	q, err := svc.Quote(context.Background(), 7, mustGeo(t, -23.5614, -46.6559))
	require.NoError(t, err)
	assert.True(t, q.DistanceKm.GreaterThan(decimal.Zero))
	assert.True(t, q.Fee.GreaterThan(decimal.RequireFromString("5.00")))
	// 30 min prep plus at least the 10 minute travel floor.
	assert.GreaterOrEqual(t, q.ETAMinutes, 40)
}
