// Package pricing computes cart price breakdowns: catalog prices, domain
// registrations, cross-sell discounts, coupon promotion and VAT.
package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
)

// VATRate is applied to the total after cross-sell and coupon deductions.
var VATRate = decimal.NewFromFloat(0.1)

// DomainPricer returns the live registration price of a domain for one year.
type DomainPricer interface {
	DomainPrice(ctx context.Context, domain string) (decimal.Decimal, error)
}

// CouponEvaluator decides whether a coupon applies to a cart.
type CouponEvaluator interface {
	Evaluate(ctx context.Context, req coupon.Request) (*coupon.Result, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tp = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.mp = mp }
}

// Engine is the price aggregator.
type Engine struct {
	catalog catalog.Reader
	domains DomainPricer
	coupons CouponEvaluator

	tp     trace.TracerProvider
	mp     metric.MeterProvider
	tracer trace.Tracer

	computations metric.Int64Counter
	crossSells   metric.Int64Counter
}

// NewEngine creates an Engine over its collaborators.
func NewEngine(products catalog.Reader, domains DomainPricer, coupons CouponEvaluator, opts ...Option) (*Engine, error) {
	e := &Engine{
		catalog: products,
		domains: domains,
		coupons: coupons,
		tp:      tracenoop.NewTracerProvider(),
		mp:      metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(e)
	}
	e.tracer = e.tp.Tracer("storefront/pricing")

	meter := e.mp.Meter("storefront/pricing")
	var err error
	if e.computations, err = meter.Int64Counter("pricing.computations",
		metric.WithDescription("Price computations by promo status"),
	); err != nil {
		return nil, errors.Wrap(err, "create computations counter")
	}
	if e.crossSells, err = meter.Int64Counter("pricing.cross_sells",
		metric.WithDescription("Cross-sell discounts applied"),
	); err != nil {
		return nil, errors.Wrap(err, "create cross-sells counter")
	}
	return e, nil
}

// Compute prices the cart. Any collaborator failure aborts the computation;
// no partial breakdown is returned.
func (e *Engine) Compute(ctx context.Context, c Cart) (_ *Breakdown, rerr error) {
	ctx, span := e.tracer.Start(ctx, "pricing.Compute", trace.WithAttributes(
		attribute.Int("cart.lines", len(c.Lines)),
		attribute.Int("cart.domains", len(c.Domains)),
		attribute.Bool("cart.coupon", c.CouponCode != ""),
	))
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if err := cart.Validate(c.Lines, c.Domains); err != nil {
		return nil, err
	}

	var (
		products []catalog.Product
		domains  []PricedDomain
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(c.Lines) == 0 {
			return nil
		}
		var err error
		products, err = e.catalog.GetByIDs(gctx, cart.ProductIDs(c.Lines))
		if err != nil {
			return errors.Wrap(err, "get products")
		}
		return nil
	})
	domains = make([]PricedDomain, len(c.Domains))
	for i, d := range c.Domains {
		g.Go(func() error {
			price, err := e.domains.DomainPrice(gctx, d.Name)
			if err != nil {
				return errors.Wrapf(err, "price domain %q", d.Name)
			}
			domains[i] = PricedDomain{
				Domain:   d,
				BuyPrice: price,
				Total:    price.Mul(decimal.NewFromInt(int64(d.Years))),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &Breakdown{Domains: domains}
	total := decimal.Zero
	for _, d := range domains {
		b.TotalBasePrice = b.TotalBasePrice.Add(d.Total)
		total = total.Add(d.Total)
	}

	b.Lines = priceLines(ctx, c.Lines, products)
	var baseNoDomain, saleNoDomain decimal.Decimal
	for _, l := range b.Lines {
		total = total.Add(l.Period.SalePrice)
		b.TotalBasePrice = b.TotalBasePrice.Add(l.Period.BasePrice)
		b.TotalSalePrice = b.TotalSalePrice.Add(l.Period.SalePrice)
		baseNoDomain = baseNoDomain.Add(l.Period.BasePrice)
		saleNoDomain = saleNoDomain.Add(l.Period.SalePrice)
	}

	b.ItemSale = dedupeSales(resolveCrossSells(c.Lines, b.Lines, products))
	for _, s := range b.ItemSale {
		b.TotalSaleSubtractByCrossSale = b.TotalSaleSubtractByCrossSale.Add(s.Discount)
	}
	total = total.Sub(b.TotalSaleSubtractByCrossSale)
	e.crossSells.Add(ctx, int64(len(b.ItemSale)))

	b.TotalSaleByProduct = baseNoDomain.Sub(saleNoDomain)

	b.Subtotal = total
	b.PromoStatus = coupon.StatusNotApplicable
	b.PromoMessage = MessageNoCoupon
	if c.CouponCode != "" {
		res, err := e.coupons.Evaluate(ctx, coupon.Request{
			Code:       c.CouponCode,
			Lines:      c.Lines,
			TotalPrice: total,
			Email:      c.Email,
		})
		if err != nil {
			return nil, errors.Wrap(err, "evaluate coupon")
		}
		total = applyCoupon(b, res, total)
	}

	b.TotalPriceAfterCrossSaleAndPromo = total
	b.VAT = total.Mul(VATRate)
	b.TotalPriceIncludedVAT = total.Add(b.VAT)
	b.TotalSaleWithoutPromo = b.TotalSaleByProduct.Add(b.TotalSaleSubtractByCrossSale)

	e.computations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("promo_status", string(b.PromoStatus)),
	))
	return b, nil
}

// applyCoupon records the evaluation outcome on b and returns the total
// after the promotion. The total does not go below zero.
func applyCoupon(b *Breakdown, res *coupon.Result, total decimal.Decimal) decimal.Decimal {
	switch res.Status {
	case coupon.StatusAccept:
		b.PromoStatus = res.Status
		b.PromoMessage = res.Message
		b.Coupon = res.Coupon
		b.PromoSale = res.Coupon.Discount(total)
		if b.PromoSale.IsPositive() {
			total = total.Sub(b.PromoSale)
		}
		if total.IsNegative() {
			total = decimal.Zero
		}
	case coupon.StatusReject:
		b.PromoStatus = res.Status
		b.PromoReason = res.Reason
		b.PromoMessage = res.Message
		b.PromoShortfall = res.Shortfall
		b.Coupon = res.Coupon
	}
	return total
}

// priceLines resolves each line's package and period. Lines that cannot be
// resolved are skipped.
func priceLines(ctx context.Context, lines []cart.Line, products []catalog.Product) []PricedLine {
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lg := zctx.From(ctx)
	priced := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			lg.Debug("Skip line of unknown product", zap.String("product_id", l.ProductID))
			continue
		}
		bp, ok := p.Period(l.PackageName, l.PeriodMonths)
		if !ok {
			lg.Debug("Skip line of unknown package period",
				zap.String("product_id", l.ProductID),
				zap.String("package", l.PackageName),
				zap.Int("period", l.PeriodMonths),
			)
			continue
		}
		priced = append(priced, PricedLine{Line: l, Name: p.Name, ProductType: p.TypeName, Period: bp})
	}
	return priced
}
