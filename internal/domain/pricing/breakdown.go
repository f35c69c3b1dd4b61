package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
)

// MessageNoCoupon is the promo message when no coupon was applied.
const MessageNoCoupon = "no coupon applied"

// Cart is the input of a price computation.
type Cart struct {
	Lines      []cart.Line
	Domains    []cart.Domain
	CouponCode string
	// Email is checked against the coupon's allow list.
	Email string
}

// ItemSale is a cross-sell discount granted on one cart line.
type ItemSale struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	PackageName  string          `json:"packageName"`
	PeriodMonths int             `json:"period"`
	Discount     decimal.Decimal `json:"discount"`
	Percentage   decimal.Decimal `json:"percentage"`
}

// PricedLine is a cart line resolved against the catalog.
type PricedLine struct {
	cart.Line
	Name string
	// ProductType is the product type name, e.g. "ssl".
	ProductType string
	Period      catalog.BillingPeriod
}

// PricedDomain is a domain registration with its live price.
type PricedDomain struct {
	cart.Domain
	BuyPrice decimal.Decimal
	// Total is BuyPrice times Years.
	Total decimal.Decimal
}

// Breakdown is the result of a price computation.
type Breakdown struct {
	TotalBasePrice                   decimal.Decimal `json:"totalBasePrice"`
	TotalSalePrice                   decimal.Decimal `json:"totalSalePrice"`
	TotalSaleByProduct               decimal.Decimal `json:"totalSaleByProduct"`
	TotalSaleWithoutPromo            decimal.Decimal `json:"totalSaleWithoutPromo"`
	TotalSaleSubtractByCrossSale     decimal.Decimal `json:"totalSaleSubtractByCrossSale"`
	TotalPriceAfterCrossSaleAndPromo decimal.Decimal `json:"totalPriceAfterCrossSaleAndPromo"`
	TotalPriceIncludedVAT            decimal.Decimal `json:"totalPriceIncludedVAT"`
	PromoSale                        decimal.Decimal `json:"promoSale"`
	PromoMessage                     string          `json:"promoMessage"`
	PromoStatus                      coupon.Status   `json:"promoStatus"`
	PromoReason                      coupon.Reason   `json:"promoReason,omitempty"`
	PromoShortfall                   decimal.Decimal `json:"promoMoney"`
	VAT                              decimal.Decimal `json:"VAT"`
	ItemSale                         []ItemSale      `json:"itemSale"`
	Coupon                           *coupon.Coupon  `json:"coupon"`

	// Lines and Domains carry the resolved prices for order submission.
	Lines   []PricedLine   `json:"-"`
	Domains []PricedDomain `json:"-"`
	// Subtotal is the total the coupon was evaluated against.
	Subtotal decimal.Decimal `json:"-"`
}

// CouponAccepted reports whether the coupon was applied.
func (b *Breakdown) CouponAccepted() bool {
	return b.PromoStatus == coupon.StatusAccept
}
