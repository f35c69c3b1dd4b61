package coupon

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentageStep is the granularity percentage discounts are rounded to.
const percentageStep = -3

// Discount returns the amount the coupon takes off total.
//
// Fixed coupons are worth Amount regardless of total. Percentage coupons are
// worth total*Amount/100 rounded to the nearest 1000 and capped at
// MaxDiscount; without a positive cap they are worth nothing.
func (c *Coupon) Discount(total decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case TypeFixed:
		return floorAtZero(c.Amount)
	case TypePercentage:
		if !c.MaxDiscount.IsPositive() {
			return decimal.Zero
		}
		raw := total.Mul(c.Amount).Div(hundred).Round(percentageStep)
		return floorAtZero(decimal.Min(raw, c.MaxDiscount))
	default:
		return decimal.Zero
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
