package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/canteen-preorder/internal/domain/product"
)

const productColumns = `id, stall_id, name, description, price, category,
	prep_minutes, is_available, image_url`

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListByStall returns all products of one stall ordered by category and name.
func (r *ProductRepository) ListByStall(ctx context.Context, stallID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE stall_id = $1 ORDER BY category, name`,
		stallID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing products for stall %q: %w", stallID, err)
	}
	return scanProducts(rows)
}

// ListAvailable returns every currently orderable product across all stalls.
func (r *ProductRepository) ListAvailable(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_available ORDER BY stall_id, category, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing available products: %w", err)
	}
	return scanProducts(rows)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id,
	)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs batch-fetches products by identifier. Missing IDs are simply
// absent from the result; the caller decides whether that is an error.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]product.Product, error) {
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.StallID, &p.Name, &p.Description, &p.Price,
		&p.Category, &p.PrepMinutes, &p.Available, &p.ImageURL,
	)
	return p, err
}
