package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/events"
	"github.com/xenking/storefront/internal/hosting"
)

// Service encapsulates order placement.
type Service struct {
	pricer  Pricer
	hosting Submitter
	coupons CouponRedeemer
	events  events.Publisher
	now     func() time.Time
}

// NewService creates an order Service. A nil publisher discards events.
func NewService(pricer Pricer, submitter Submitter, coupons CouponRedeemer, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		pricer:  pricer,
		hosting: submitter,
		coupons: coupons,
		events:  pub,
		now:     time.Now,
	}
}

// Place prices the cart, submits the order and requests a payment link.
// An accepted coupon is redeemed after submission; losing the redemption
// race does not cancel the order.
func (s *Service) Place(ctx context.Context, req Request) (*Result, error) {
	if req.ClientID == "" {
		return nil, ErrClientIDRequired
	}

	b, err := s.pricer.Compute(ctx, req.Cart)
	if err != nil {
		return nil, errors.Wrap(err, "compute price")
	}
	if len(b.Lines) == 0 && len(b.Domains) == 0 {
		return nil, ErrNothingToOrder
	}

	o := buildOrder(req, b)
	id, err := s.hosting.CreateOrder(ctx, o)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	lg := zctx.From(ctx).With(zap.String("order_id", id))
	lg.Info("Order submitted",
		zap.String("client_id", req.ClientID),
		zap.Stringer("total", b.TotalPriceAfterCrossSaleAndPromo),
	)

	if b.CouponAccepted() {
		s.redeem(ctx, lg, req, b)
	}

	link, err := s.hosting.PaymentLink(ctx, id)
	if err != nil {
		return nil, &SubmissionError{OrderID: id, Err: errors.Wrap(err, "payment link")}
	}

	ev := events.Event{
		Type:       events.TypeOrderPlaced,
		Key:        id,
		OccurredAt: s.now(),
		Payload: map[string]any{
			"orderId":  id,
			"clientId": req.ClientID,
			"total":    b.TotalPriceAfterCrossSaleAndPromo,
			"vat":      b.VAT,
			"coupon":   req.Cart.CouponCode,
		},
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		lg.Warn("Publish order placed", zap.Error(err))
	}

	return &Result{
		OrderID:    id,
		PaymentURL: link,
		Breakdown:  b,
	}, nil
}

func (s *Service) redeem(ctx context.Context, lg *zap.Logger, req Request, b *pricing.Breakdown) {
	res, err := s.coupons.Redeem(ctx, coupon.Request{
		Code:       req.Cart.CouponCode,
		Lines:      req.Cart.Lines,
		TotalPrice: b.Subtotal,
		Email:      req.Cart.Email,
	})
	switch {
	case err != nil:
		lg.Error("Redeem coupon", zap.String("code", req.Cart.CouponCode), zap.Error(err))
	case !res.Accepted():
		lg.Warn("Coupon not redeemed",
			zap.String("code", req.Cart.CouponCode),
			zap.String("reason", string(res.Reason)),
		)
	}
}

// buildOrder maps a breakdown to the hosting order payload. Domain items are
// charged at the live buy price, product items at the catalog base price.
func buildOrder(req Request, b *pricing.Breakdown) *hosting.Order {
	serviceDomain := req.ServiceDomain
	if serviceDomain == "" && len(b.Domains) > 0 {
		serviceDomain = b.Domains[0].Name
	}

	items := make([]hosting.OrderItem, 0, len(b.Domains)+len(b.Lines))
	for _, d := range b.Domains {
		contact := req.Contact
		if contact.ContactName == "" {
			contact.ContactName = contact.FullName
		}
		items = append(items, hosting.OrderItem{
			Contact:       &contact,
			ProductType:   hosting.ItemTypeDomain,
			Domain:        d.Name,
			Amount:        d.BuyPrice,
			BillingCycle:  d.Years * 12,
			OrderItemType: hosting.ItemTypeNew,
		})
	}
	for _, l := range b.Lines {
		items = append(items, hosting.OrderItem{
			ProductID:     l.ProductID,
			ProductType:   l.ProductType,
			Domain:        serviceDomain,
			Amount:        l.Period.BasePrice,
			BillingCycle:  l.PeriodMonths,
			OrderItemType: hosting.ItemTypeNew,
		})
	}

	notes := "storefront order"
	if b.CouponAccepted() {
		notes += ", coupon " + req.Cart.CouponCode
	}

	return &hosting.Order{
		ClientID:       req.ClientID,
		DiscountAmount: b.PromoSale.Add(b.TotalSaleSubtractByCrossSale),
		OverrideAmount: b.TotalPriceAfterCrossSaleAndPromo,
		TaxRate:        pricing.VATRate,
		VATAmount:      b.VAT,
		TotalAmount:    b.TotalPriceAfterCrossSaleAndPromo,
		PaymentMethod:  hosting.PaymentMethodTransfer,
		Notes:          notes,
		Items:          items,
	}
}
