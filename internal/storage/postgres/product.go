package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const productColumns = `p.id, p.name, COALESCE(p.type_id, ''), COALESCE(t.name, ''), p.packages, p.created_at, p.updated_at`

const (
	listProductsSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN product_types t ON t.id = p.type_id
		WHERE ($1::text = '' OR p.name ILIKE '%' || $1 || '%')
		  AND ($2::text = '' OR t.name = $2)
		ORDER BY p.created_at DESC`

	listProductsByNameSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN product_types t ON t.id = p.type_id
		WHERE p.name = $1
		ORDER BY p.created_at DESC`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN product_types t ON t.id = p.type_id
		WHERE p.id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN product_types t ON t.id = p.type_id
		WHERE p.id = ANY($1)`

	createProductSQL = `INSERT INTO products (id, name, type_id, packages)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING created_at, updated_at`

	updateProductSQL = `UPDATE products
		SET name = $2, type_id = NULLIF($3, ''), packages = $4, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	deleteProductSQL = `WITH p AS (DELETE FROM products WHERE id = $1 RETURNING *)
		SELECT ` + productColumns + `
		FROM p LEFT JOIN product_types t ON t.id = p.type_id`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
// Packages are stored as a JSONB document on the product row.
type ProductRepository struct {
	pool       *pgxpool.Pool
	crossSells *CrossSellRepository
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{
		pool:       pool,
		crossSells: NewCrossSellRepository(pool),
	}
}

// List returns products matching f, newest first.
func (r *ProductRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	return r.query(ctx, "list products", listProductsSQL, f.Name, f.TypeName)
}

// ListByName returns products with exactly the given name.
func (r *ProductRepository) ListByName(ctx context.Context, name string) ([]catalog.Product, error) {
	return r.query(ctx, "list products by name", listProductsByNameSQL, name)
}

// GetByID returns a product with its cross-sell rules, or catalog.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	rules, err := r.crossSells.listByProducts(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p.CrossSells = rules[id]
	return &p, nil
}

// GetByIDs returns the products with the given IDs and their cross-sell
// rules in two queries. Unknown IDs are omitted.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	products, err := r.query(ctx, "get products by ids", getProductsByIDsSQL, ids)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return products, nil
	}

	found := make([]string, len(products))
	for i, p := range products {
		found[i] = p.ID
	}
	rules, err := r.crossSells.listByProducts(ctx, found)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].CrossSells = rules[products[i].ID]
	}
	return products, nil
}

// Create persists a new product.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	packages, err := jsonb(p.Packages)
	if err != nil {
		return errors.Wrap(err, "marshal packages")
	}
	err = r.pool.QueryRow(ctx, createProductSQL, p.ID, p.Name, p.TypeID, packages).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update replaces name, type and packages of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	packages, err := jsonb(p.Packages)
	if err != nil {
		return errors.Wrap(err, "marshal packages")
	}
	err = r.pool.QueryRow(ctx, updateProductSQL, p.ID, p.Name, p.TypeID, packages).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrNotFound
		}
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product and, by cascade, its cross-sell rules.
func (r *ProductRepository) Delete(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, deleteProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("deleting product %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("deleting product %q: %w", id, err)
	}
	return &p, nil
}

func (r *ProductRepository) query(ctx context.Context, op, sql string, args ...any) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.TypeID, &p.TypeName, &p.Packages, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
