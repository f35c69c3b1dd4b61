package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
)

var hundred = decimal.NewFromInt(100)

type offerRef struct {
	rule  *catalog.CrossSellRule
	offer catalog.OfferCondition
}

// offerIndex maps a discounted product ID to every rule offering it.
type offerIndex map[string][]offerRef

func buildOfferIndex(products []catalog.Product) offerIndex {
	idx := make(offerIndex)
	for i := range products {
		for j := range products[i].CrossSells {
			rule := &products[i].CrossSells[j]
			for _, o := range rule.Offers {
				idx[o.ProductID] = append(idx[o.ProductID], offerRef{rule: rule, offer: o})
			}
		}
	}
	return idx
}

type productPeriod struct {
	productID string
	months    int
}

// presence answers cart membership questions asked by required conditions.
type presence struct {
	products map[string]struct{}
	periods  map[productPeriod]struct{}
}

func newPresence(lines []cart.Line) presence {
	p := presence{
		products: make(map[string]struct{}, len(lines)),
		periods:  make(map[productPeriod]struct{}, len(lines)),
	}
	for _, l := range lines {
		p.products[l.ProductID] = struct{}{}
		p.periods[productPeriod{l.ProductID, l.PeriodMonths}] = struct{}{}
	}
	return p
}

func (p presence) hasProduct(id string) bool {
	_, ok := p.products[id]
	return ok
}

func (p presence) hasPeriod(id string, months int) bool {
	_, ok := p.periods[productPeriod{id, months}]
	return ok
}

// fires reports whether required condition q, together with offer o,
// discounts line l.
//
// A period-locked condition fires when the cart holds the required product
// on that period and l is the offered product and package on the same
// period. A condition without a period fires when the cart holds the
// required product at all and l is the offered product.
func fires(p presence, q catalog.RequiredCondition, o catalog.OfferCondition, l cart.Line) bool {
	if p.hasPeriod(q.ProductID, q.PeriodMonths) &&
		l.PeriodMonths == q.PeriodMonths &&
		l.PackageName == o.PackageName &&
		l.ProductID == o.ProductID {
		return true
	}
	return q.PeriodMonths == 0 &&
		p.hasProduct(q.ProductID) &&
		l.ProductID == o.ProductID
}

// resolveCrossSells returns every cross-sell firing on the priced lines.
// Presence is evaluated over all cart lines, priced or not.
func resolveCrossSells(all []cart.Line, priced []PricedLine, products []catalog.Product) []ItemSale {
	idx := buildOfferIndex(products)
	if len(idx) == 0 {
		return nil
	}
	p := newPresence(all)

	var sales []ItemSale
	for _, l := range priced {
		for _, ref := range idx[l.ProductID] {
			for _, q := range ref.rule.Required {
				if !fires(p, q, ref.offer, l.Line) {
					continue
				}
				sales = append(sales, ItemSale{
					ProductID:    l.ProductID,
					Name:         l.Name,
					PackageName:  l.PackageName,
					PeriodMonths: l.PeriodMonths,
					Discount:     l.Period.SalePrice.Mul(ref.offer.DiscountPercentage).Div(hundred),
					Percentage:   ref.offer.DiscountPercentage,
				})
			}
		}
	}
	return sales
}

type saleKey struct {
	productID string
	pkg       string
	months    int
}

// dedupeSales keeps the largest discount per (product, package, period),
// in first-seen order.
func dedupeSales(sales []ItemSale) []ItemSale {
	pos := make(map[saleKey]int, len(sales))
	out := make([]ItemSale, 0, len(sales))
	for _, s := range sales {
		k := saleKey{s.ProductID, s.PackageName, s.PeriodMonths}
		i, ok := pos[k]
		if !ok {
			pos[k] = len(out)
			out = append(out, s)
			continue
		}
		if s.Discount.GreaterThan(out[i].Discount) {
			out[i] = s
		}
	}
	return out
}
