package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devmaster/food-delivery/internal/domain/pricing"
	"github.com/devmaster/food-delivery/internal/domain/restaurant"
)

const getRestaurantByIDSQL = `SELECT id, name, latitude, longitude,
	prep_time_minutes, minimum_order_value, active, open
	FROM restaurants WHERE id = $1`

var _ restaurant.Repository = (*RestaurantRepository)(nil)

// RestaurantRepository implements restaurant.Repository backed by PostgreSQL.
type RestaurantRepository struct {
	pool *pgxpool.Pool
}

// NewRestaurantRepository returns a RestaurantRepository that uses the given
// pool.
func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{pool: pool}
}

// GetByID returns a restaurant by id, or restaurant.ErrNotFound.
func (r *RestaurantRepository) GetByID(ctx context.Context, id int64) (*restaurant.Restaurant, error) {
	rows, err := r.pool.Query(ctx, getRestaurantByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting restaurant %d", id)
	}

	rest, err := pgx.CollectExactlyOneRow(rows, scanRestaurant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, restaurant.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting restaurant %d", id)
	}
	return rest, nil
}

func scanRestaurant(row pgx.CollectableRow) (*restaurant.Restaurant, error) {
	var (
		rest     restaurant.Restaurant
		lat, lon float64
	)
	err := row.Scan(
		&rest.ID, &rest.Name, &lat, &lon,
		&rest.PrepTimeMinutes, &rest.MinimumOrderValue, &rest.Active, &rest.Open,
	)
	if err != nil {
		return nil, err
	}

	loc, err := pricing.NewGeoPoint(lat, lon)
	if err != nil {
		return nil, errors.Wrapf(err, "restaurant %d location", rest.ID)
	}
	rest.Location = loc
	return &rest, nil
}
