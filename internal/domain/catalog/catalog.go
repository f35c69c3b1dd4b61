package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrTypeNotFound is returned when a requested product type does not exist.
	ErrTypeNotFound = errors.New("product type not found")
	// ErrCrossSellNotFound is returned when a requested cross-sell rule does not exist.
	ErrCrossSellNotFound = errors.New("cross-sell rule not found")
	// ErrDuplicateTypeName is returned when a product type name is taken.
	ErrDuplicateTypeName = errors.New("product type name already exists")
)

var hundred = decimal.NewFromInt(100)

// BillingPeriod is a priced subscription length of a package.
type BillingPeriod struct {
	Months    int             `json:"period"`
	SalePrice decimal.Decimal `json:"salePrice"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

// Package is a named configuration of a product (e.g. "Basic", "Pro").
type Package struct {
	Name    string          `json:"name"`
	Periods []BillingPeriod `json:"periods"`
}

// Product is a sellable hosting product: VPS, SSL certificate, cPanel plan.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	TypeID     string          `json:"productType,omitempty"`
	TypeName   string          `json:"productTypeName,omitempty"`
	Packages   []Package       `json:"packages"`
	CrossSells []CrossSellRule `json:"crossSells,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Period looks up the billing period of the named package.
func (p *Product) Period(packageName string, months int) (BillingPeriod, bool) {
	for _, pkg := range p.Packages {
		if pkg.Name != packageName {
			continue
		}
		for _, bp := range pkg.Periods {
			if bp.Months == months {
				return bp, true
			}
		}
		return BillingPeriod{}, false
	}
	return BillingPeriod{}, false
}

// RequiredCondition must be satisfied by the cart for a cross-sell rule to
// fire. Empty PackageName and zero PeriodMonths mean "any".
type RequiredCondition struct {
	ProductID    string `json:"productId"`
	PackageName  string `json:"packageName,omitempty"`
	PeriodMonths int    `json:"period,omitempty"`
}

// OfferCondition names the discounted product of a cross-sell rule.
type OfferCondition struct {
	ProductID          string          `json:"productId"`
	PackageName        string          `json:"packageName,omitempty"`
	PeriodMonths       int             `json:"period,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount"`
}

// CrossSellRule grants a discount on Offers when the cart also holds one of
// the Required products.
type CrossSellRule struct {
	ID        string              `json:"id"`
	ProductID string              `json:"productId"`
	Required  []RequiredCondition `json:"option"`
	Offers    []OfferCondition    `json:"crossSellOption"`
	IsUpSell  bool                `json:"isUpSell"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// ProductType groups products (e.g. "vps", "ssl", "cpanel").
type ProductType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Filter narrows product listings.
type Filter struct {
	// Name matches product names case-insensitively as a substring.
	Name string
	// TypeName restricts results to products of the named type.
	TypeName string
}

// Reader is the read side consumed by the pricing engine.
type Reader interface {
	// GetByIDs returns products with packages and cross-sell rules populated.
	// Unknown IDs are absent from the result rather than reported as errors.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Repository defines persistence operations for products.
type Repository interface {
	Reader
	List(ctx context.Context, f Filter) ([]Product, error)
	ListByName(ctx context.Context, name string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) (*Product, error)
}

// TypeRepository defines persistence operations for product types.
type TypeRepository interface {
	List(ctx context.Context) ([]ProductType, error)
	GetByID(ctx context.Context, id string) (*ProductType, error)
	Create(ctx context.Context, t *ProductType) error
	Update(ctx context.Context, t *ProductType) error
	Delete(ctx context.Context, id string) (*ProductType, error)
}

// CrossSellRepository defines persistence operations for cross-sell rules.
type CrossSellRepository interface {
	// List returns every rule, or the rules of productID when it is non-empty.
	List(ctx context.Context, productID string) ([]CrossSellRule, error)
	Create(ctx context.Context, r *CrossSellRule) error
	Update(ctx context.Context, r *CrossSellRule) error
	Delete(ctx context.Context, id string) error
}
