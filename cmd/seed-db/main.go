// Command seed-db loads restaurants and their menus from a JSON file into
// the database. Intended for local development and integration test setups.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/devmaster/food-delivery/internal/storage/postgres"
)

type restaurantJSON struct {
	Name              string          `json:"name"`
	Latitude          float64         `json:"latitude"`
	Longitude         float64         `json:"longitude"`
	PrepTimeMinutes   int             `json:"prepTimeMinutes"`
	MinimumOrderValue decimal.Decimal `json:"minimumOrderValue"`
	Products          []productJSON   `json:"products"`
}

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Options     []optionJSON    `json:"options"`
}

type optionJSON struct {
	Name            string          `json:"name"`
	AdditionalPrice decimal.Decimal `json:"additionalPrice"`
}

type couponJSON struct {
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discountType"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MinimumOrderValue decimal.Decimal  `json:"minimumOrderValue"`
	MaximumDiscount   *decimal.Decimal `json:"maximumDiscount"`
	UsageLimit        *int             `json:"usageLimit"`
	ValidDays         int              `json:"validDays"`
}

type seedJSON struct {
	Restaurants []restaurantJSON `json:"restaurants"`
	Coupons     []couponJSON     `json:"coupons"`
}

func main() {
	var (
		databaseURL string
		seedFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "seed-file", "db/seed/restaurants.json", "path to restaurants JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedFile string) error {
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return errors.Wrapf(err, "read %s", seedFile)
	}

	var seed seedJSON
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrapf(err, "parse %s", seedFile)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, r := range seed.Restaurants {
		if err := seedRestaurant(ctx, pool, r); err != nil {
			return errors.Wrapf(err, "seed restaurant %q", r.Name)
		}
	}
	for _, c := range seed.Coupons {
		if err := seedCoupon(ctx, pool, c); err != nil {
			return errors.Wrapf(err, "seed coupon %q", c.Code)
		}
	}

	slog.Info("seed done",
		slog.Int("restaurants", len(seed.Restaurants)),
		slog.Int("coupons", len(seed.Coupons)),
	)
	return nil
}

func seedCoupon(ctx context.Context, pool *pgxpool.Pool, c couponJSON) error {
	validDays := c.ValidDays
	if validDays == 0 {
		validDays = 30
	}
	validFrom := time.Now()

	_, err := pool.Exec(ctx,
		`INSERT INTO coupons (code, description, discount_type, discount_value,
			minimum_order_value, maximum_discount, usage_limit, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO NOTHING`,
		c.Code, c.Description, c.DiscountType, c.DiscountValue,
		c.MinimumOrderValue, c.MaximumDiscount, c.UsageLimit,
		validFrom, validFrom.AddDate(0, 0, validDays),
	)
	return errors.Wrap(err, "insert coupon")
}

func seedRestaurant(ctx context.Context, pool *pgxpool.Pool, r restaurantJSON) error {
	var restaurantID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO restaurants (name, latitude, longitude, prep_time_minutes, minimum_order_value)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.Name, r.Latitude, r.Longitude, r.PrepTimeMinutes, r.MinimumOrderValue,
	).Scan(&restaurantID)
	if err != nil {
		return errors.Wrap(err, "insert restaurant")
	}

	for _, p := range r.Products {
		var productID int64
		err := pool.QueryRow(ctx,
			`INSERT INTO products (restaurant_id, name, description, price, category)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			restaurantID, p.Name, p.Description, p.Price, p.Category,
		).Scan(&productID)
		if err != nil {
			return errors.Wrapf(err, "insert product %q", p.Name)
		}

		for _, opt := range p.Options {
			_, err := pool.Exec(ctx,
				`INSERT INTO product_options (product_id, name, additional_price)
				VALUES ($1, $2, $3)`,
				productID, opt.Name, opt.AdditionalPrice,
			)
			if err != nil {
				return errors.Wrapf(err, "insert option %q", opt.Name)
			}
		}
	}

	return nil
}
