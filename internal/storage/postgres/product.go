package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devmaster/food-delivery/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, restaurant_id, name, description, price, category, available
		FROM products WHERE restaurant_id = $1 ORDER BY id`

	getProductByIDSQL = `SELECT id, restaurant_id, name, description, price, category, available
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, restaurant_id, name, description, price, category, available
		FROM products WHERE id = ANY($1)`

	getOptionsByProductIDsSQL = `SELECT id, product_id, name, additional_price, available
		FROM product_options WHERE product_id = ANY($1) ORDER BY id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns a restaurant's menu ordered by product id.
func (r *ProductRepository) List(ctx context.Context, restaurantID int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	if err := r.attachOptions(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product with its options.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %d", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %d", id)
	}

	products := []product.Product{p}
	if err := r.attachOptions(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetByIDs returns products matching any of the given ids, with options.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting products by ids")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "getting products by ids")
	}
	if err := r.attachOptions(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// attachOptions loads the options for all given products in one query.
func (r *ProductRepository) attachOptions(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]*product.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	rows, err := r.pool.Query(ctx, getOptionsByProductIDsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "getting product options")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			opt       product.Option
		)
		if err := rows.Scan(&opt.ID, &productID, &opt.Name, &opt.AdditionalPrice, &opt.Available); err != nil {
			return errors.Wrap(err, "scanning product option")
		}
		if p, ok := index[productID]; ok {
			p.Options = append(p.Options, opt)
		}
	}
	return errors.Wrap(rows.Err(), "getting product options")
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.RestaurantID, &p.Name, &p.Description,
		&p.Price, &p.Category, &p.Available,
	)
	return p, err
}
