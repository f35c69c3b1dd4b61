package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const couponColumns = `id, code, type, amount, apply_for, max_discount, min_total_price,
	expire_date, total_usage_limit, user_usage_limit, allowed_emails,
	specific_products, required_products, created_at, updated_at`

const (
	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	// The guard makes concurrent redemptions unable to drive the counter
	// below zero.
	decrementCouponUsageSQL = `UPDATE coupons
		SET total_usage_limit = total_usage_limit - 1, updated_at = now()
		WHERE id = $1 AND total_usage_limit > 0
		RETURNING ` + couponColumns

	createCouponSQL = `INSERT INTO coupons (id, code, type, amount, apply_for, max_discount, min_total_price,
		expire_date, total_usage_limit, user_usage_limit, allowed_emails, specific_products, required_products)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	updateCouponSQL = `UPDATE coupons SET code = $2, type = $3, amount = $4, apply_for = $5,
		max_discount = $6, min_total_price = $7, expire_date = $8, total_usage_limit = $9,
		user_usage_limit = $10, allowed_emails = $11, specific_products = $12,
		required_products = $13, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1 RETURNING ` + couponColumns
)

var _ coupon.Store = (*CouponRepository)(nil)

// CouponRepository implements coupon.Store backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its exact code.
// Returns coupon.ErrNotFound when no coupon has the code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.one(ctx, fmt.Sprintf("finding coupon by code %q", code), getCouponByCodeSQL, code, coupon.ErrNotFound)
}

// GetByID returns a coupon or coupon.ErrNotFound.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.one(ctx, fmt.Sprintf("getting coupon %q", id), getCouponByIDSQL, id, coupon.ErrNotFound)
}

// DecrementUsage atomically consumes one use. It returns
// coupon.ErrUsageExhausted when the counter is already zero.
func (r *CouponRepository) DecrementUsage(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.one(ctx, fmt.Sprintf("decrementing usage of coupon %q", id), decrementCouponUsageSQL, id, coupon.ErrUsageExhausted)
}

// Delete removes a coupon and returns it.
func (r *CouponRepository) Delete(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.one(ctx, fmt.Sprintf("deleting coupon %q", id), deleteCouponSQL, id, coupon.ErrNotFound)
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return coupons, nil
}

// Create persists a new coupon. Returns coupon.ErrDuplicateCode when the
// code is taken.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	args, err := couponArgs(c)
	if err != nil {
		return err
	}
	if err := r.pool.QueryRow(ctx, createCouponSQL, args...).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update replaces a coupon.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	args, err := couponArgs(c)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, updateCouponSQL, args...).Scan(&c.CreatedAt, &c.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return coupon.ErrNotFound
	case isUniqueViolation(err):
		return coupon.ErrDuplicateCode
	default:
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
}

func (r *CouponRepository) one(ctx context.Context, op, sql, arg string, notFound error) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

func couponArgs(c *coupon.Coupon) ([]any, error) {
	specific, err := jsonb(c.SpecificProducts)
	if err != nil {
		return nil, errors.Wrap(err, "marshal specific products")
	}
	required, err := jsonb(c.RequiredProducts)
	if err != nil {
		return nil, errors.Wrap(err, "marshal required products")
	}
	emails := c.AllowedEmails
	if emails == nil {
		emails = []string{}
	}
	return []any{
		c.ID, c.Code, string(c.Type), c.Amount, string(c.ApplyFor), c.MaxDiscount, c.MinTotalPrice,
		c.ExpireDate, c.TotalUsageLimit, c.UserUsageLimit, emails, specific, required,
	}, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c        coupon.Coupon
		typ      string
		applyFor string
	)
	err := row.Scan(
		&c.ID, &c.Code, &typ, &c.Amount, &applyFor, &c.MaxDiscount, &c.MinTotalPrice,
		&c.ExpireDate, &c.TotalUsageLimit, &c.UserUsageLimit, &c.AllowedEmails,
		&c.SpecificProducts, &c.RequiredProducts, &c.CreatedAt, &c.UpdatedAt,
	)
	c.Type = coupon.Type(typ)
	c.ApplyFor = coupon.Scope(applyFor)
	return c, err
}
