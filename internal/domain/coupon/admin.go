package coupon

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError describes a malformed coupon.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Admin manages coupons on behalf of back-office users.
type Admin struct {
	store Store
}

// NewAdmin creates an Admin over store.
func NewAdmin(store Store) *Admin {
	return &Admin{store: store}
}

// List returns every coupon.
func (a *Admin) List(ctx context.Context) ([]Coupon, error) {
	return a.store.List(ctx)
}

// Create validates c, assigns its ID and persists it.
func (a *Admin) Create(ctx context.Context, c *Coupon) error {
	c.ID = uuid.NewString()
	if err := Validate(c); err != nil {
		return err
	}
	return a.store.Create(ctx, c)
}

// Update validates and replaces c.
func (a *Admin) Update(ctx context.Context, c *Coupon) error {
	if err := Validate(c); err != nil {
		return err
	}
	return a.store.Update(ctx, c)
}

// Delete removes the coupon with the given ID and returns it.
func (a *Admin) Delete(ctx context.Context, id string) (*Coupon, error) {
	return a.store.Delete(ctx, id)
}

// Validate normalizes the code and list fields and checks the discount terms.
func Validate(c *Coupon) error {
	c.Code = strings.TrimSpace(c.Code)
	if c.ApplyFor == "" {
		c.ApplyFor = ScopeAll
	}
	c.AllowedEmails = nonNil(c.AllowedEmails)
	c.SpecificProducts = nonNil(c.SpecificProducts)
	c.RequiredProducts = nonNil(c.RequiredProducts)
	switch {
	case c.Code == "":
		return &ValidationError{Field: "code", Reason: "required"}
	case c.Type != TypeFixed && c.Type != TypePercentage:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", c.Type)}
	case c.ApplyFor != ScopeAll && c.ApplyFor != ScopeSpecific:
		return &ValidationError{Field: "applyFor", Reason: fmt.Sprintf("unknown scope %q", c.ApplyFor)}
	case c.Amount.IsNegative():
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	case c.Type == TypePercentage && c.Amount.GreaterThan(hundred):
		return &ValidationError{Field: "amount", Reason: "percentage must be within 0..100"}
	case c.MaxDiscount.IsNegative():
		return &ValidationError{Field: "maxDiscount", Reason: "must not be negative"}
	case c.MinTotalPrice.IsNegative():
		return &ValidationError{Field: "minTotalPrice", Reason: "must not be negative"}
	case c.TotalUsageLimit < 0:
		return &ValidationError{Field: "totalUsageLimit", Reason: "must not be negative"}
	case c.UserUsageLimit != nil && *c.UserUsageLimit < 0:
		return &ValidationError{Field: "userUsageLimit", Reason: "must not be negative"}
	case c.ApplyFor == ScopeSpecific && len(c.SpecificProducts) == 0:
		return &ValidationError{Field: "specificProducts", Reason: "required for specific coupons"}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
