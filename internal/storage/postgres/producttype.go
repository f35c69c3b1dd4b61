package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	listProductTypesSQL   = `SELECT id, name, created_at, updated_at FROM product_types ORDER BY name`
	getProductTypeSQL     = `SELECT id, name, created_at, updated_at FROM product_types WHERE id = $1`
	createProductTypeSQL  = `INSERT INTO product_types (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`
	updateProductTypeSQL  = `UPDATE product_types SET name = $2, updated_at = now() WHERE id = $1 RETURNING created_at, updated_at`
	deleteProductTypesSQL = `DELETE FROM product_types WHERE id = $1 RETURNING id, name, created_at, updated_at`
)

var _ catalog.TypeRepository = (*ProductTypeRepository)(nil)

// ProductTypeRepository implements catalog.TypeRepository backed by PostgreSQL.
type ProductTypeRepository struct {
	pool *pgxpool.Pool
}

// NewProductTypeRepository returns a ProductTypeRepository that uses the given pool.
func NewProductTypeRepository(pool *pgxpool.Pool) *ProductTypeRepository {
	return &ProductTypeRepository{pool: pool}
}

// List returns all product types ordered by name.
func (r *ProductTypeRepository) List(ctx context.Context) ([]catalog.ProductType, error) {
	rows, err := r.pool.Query(ctx, listProductTypesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing product types: %w", err)
	}
	types, err := pgx.CollectRows(rows, pgx.RowToStructByPos[catalog.ProductType])
	if err != nil {
		return nil, fmt.Errorf("listing product types: %w", err)
	}
	return types, nil
}

// GetByID returns a product type or catalog.ErrTypeNotFound.
func (r *ProductTypeRepository) GetByID(ctx context.Context, id string) (*catalog.ProductType, error) {
	return r.one(ctx, "getting", getProductTypeSQL, id)
}

// Create persists a new product type.
func (r *ProductTypeRepository) Create(ctx context.Context, t *catalog.ProductType) error {
	err := r.pool.QueryRow(ctx, createProductTypeSQL, t.ID, t.Name).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateTypeName
		}
		return fmt.Errorf("creating product type %q: %w", t.Name, err)
	}
	return nil
}

// Update renames a product type.
func (r *ProductTypeRepository) Update(ctx context.Context, t *catalog.ProductType) error {
	err := r.pool.QueryRow(ctx, updateProductTypeSQL, t.ID, t.Name).Scan(&t.CreatedAt, &t.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return catalog.ErrTypeNotFound
	case isUniqueViolation(err):
		return catalog.ErrDuplicateTypeName
	default:
		return fmt.Errorf("updating product type %q: %w", t.ID, err)
	}
}

// Delete removes a product type. Products of the type become untyped.
func (r *ProductTypeRepository) Delete(ctx context.Context, id string) (*catalog.ProductType, error) {
	return r.one(ctx, "deleting", deleteProductTypesSQL, id)
}

func (r *ProductTypeRepository) one(ctx context.Context, op, sql, id string) (*catalog.ProductType, error) {
	rows, err := r.pool.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("%s product type %q: %w", op, id, err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[catalog.ProductType])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrTypeNotFound
		}
		return nil, fmt.Errorf("%s product type %q: %w", op, id, err)
	}
	return &t, nil
}
