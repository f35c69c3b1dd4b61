package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const crossSellColumns = `id, product_id, required, offers, is_up_sell, created_at, updated_at`

const (
	listCrossSellsSQL = `SELECT ` + crossSellColumns + `
		FROM cross_sells
		WHERE ($1::text = '' OR product_id = $1)
		ORDER BY created_at DESC`

	listCrossSellsByProductsSQL = `SELECT ` + crossSellColumns + `
		FROM cross_sells WHERE product_id = ANY($1)
		ORDER BY created_at`

	createCrossSellSQL = `INSERT INTO cross_sells (id, product_id, required, offers, is_up_sell)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	updateCrossSellSQL = `UPDATE cross_sells
		SET product_id = $2, required = $3, offers = $4, is_up_sell = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	deleteCrossSellSQL = `DELETE FROM cross_sells WHERE id = $1`
)

var _ catalog.CrossSellRepository = (*CrossSellRepository)(nil)

// CrossSellRepository implements catalog.CrossSellRepository backed by PostgreSQL.
type CrossSellRepository struct {
	pool *pgxpool.Pool
}

// NewCrossSellRepository returns a CrossSellRepository that uses the given pool.
func NewCrossSellRepository(pool *pgxpool.Pool) *CrossSellRepository {
	return &CrossSellRepository{pool: pool}
}

// List returns every rule, or those owned by productID when non-empty.
func (r *CrossSellRepository) List(ctx context.Context, productID string) ([]catalog.CrossSellRule, error) {
	rows, err := r.pool.Query(ctx, listCrossSellsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing cross-sells: %w", err)
	}
	rules, err := pgx.CollectRows(rows, scanCrossSell)
	if err != nil {
		return nil, fmt.Errorf("listing cross-sells: %w", err)
	}
	return rules, nil
}

// listByProducts groups the rules of the given products by owner.
func (r *CrossSellRepository) listByProducts(ctx context.Context, productIDs []string) (map[string][]catalog.CrossSellRule, error) {
	rows, err := r.pool.Query(ctx, listCrossSellsByProductsSQL, productIDs)
	if err != nil {
		return nil, fmt.Errorf("listing cross-sells by products: %w", err)
	}
	rules, err := pgx.CollectRows(rows, scanCrossSell)
	if err != nil {
		return nil, fmt.Errorf("listing cross-sells by products: %w", err)
	}

	byProduct := make(map[string][]catalog.CrossSellRule, len(productIDs))
	for _, rule := range rules {
		byProduct[rule.ProductID] = append(byProduct[rule.ProductID], rule)
	}
	return byProduct, nil
}

// Create persists a new rule.
func (r *CrossSellRepository) Create(ctx context.Context, rule *catalog.CrossSellRule) error {
	required, offers, err := marshalConditions(rule)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, createCrossSellSQL, rule.ID, rule.ProductID, required, offers, rule.IsUpSell).
		Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating cross-sell %q: %w", rule.ID, err)
	}
	return nil
}

// Update replaces a rule.
func (r *CrossSellRepository) Update(ctx context.Context, rule *catalog.CrossSellRule) error {
	required, offers, err := marshalConditions(rule)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, updateCrossSellSQL, rule.ID, rule.ProductID, required, offers, rule.IsUpSell).
		Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrCrossSellNotFound
		}
		return fmt.Errorf("updating cross-sell %q: %w", rule.ID, err)
	}
	return nil
}

// Delete removes a rule.
func (r *CrossSellRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCrossSellSQL, id)
	if err != nil {
		return fmt.Errorf("deleting cross-sell %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrCrossSellNotFound
	}
	return nil
}

func marshalConditions(rule *catalog.CrossSellRule) (required, offers []byte, err error) {
	if required, err = jsonb(rule.Required); err != nil {
		return nil, nil, errors.Wrap(err, "marshal required products")
	}
	if offers, err = jsonb(rule.Offers); err != nil {
		return nil, nil, errors.Wrap(err, "marshal cross-sell products")
	}
	return required, offers, nil
}

func scanCrossSell(row pgx.CollectableRow) (catalog.CrossSellRule, error) {
	var rule catalog.CrossSellRule
	err := row.Scan(&rule.ID, &rule.ProductID, &rule.Required, &rule.Offers, &rule.IsUpSell, &rule.CreatedAt, &rule.UpdatedAt)
	return rule, err
}
