// Package handler exposes the storefront over HTTP.
package handler

import (
	"context"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/notification"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/user"
)

func init() {
	// Amounts are rendered as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Pricer computes cart breakdowns.
type Pricer interface {
	Compute(ctx context.Context, c pricing.Cart) (*pricing.Breakdown, error)
}

// OrderPlacer submits orders to the hosting platform.
type OrderPlacer interface {
	Place(ctx context.Context, req order.Request) (*order.Result, error)
}

// CouponChecker previews and redeems coupons.
type CouponChecker interface {
	Evaluate(ctx context.Context, req coupon.Request) (*coupon.Result, error)
	Redeem(ctx context.Context, req coupon.Request) (*coupon.Result, error)
}

// Domains proxies the hosting platform's domain endpoints.
type Domains interface {
	Suggest(ctx context.Context, keyword string) (jx.Raw, error)
	ListDomains(ctx context.Context) (jx.Raw, error)
	CheckAvailable(ctx context.Context, domains string) (jx.Raw, error)
	Whois(ctx context.Context, domain string) (jx.Raw, error)
}

// Locations serves the administrative divisions used in contact forms.
type Locations interface {
	Provinces(ctx context.Context) (jx.Raw, error)
	Districts(ctx context.Context, province string) (jx.Raw, error)
	Wards(ctx context.Context, province, district string) (jx.Raw, error)
}

// Deps are the collaborators of the Handler.
type Deps struct {
	Catalog       *catalog.Service
	Coupons       *coupon.Admin
	CouponChecker CouponChecker
	Users         *user.Service
	Notifications *notification.Service
	Pricer        Pricer
	Orders        OrderPlacer
	Domains       Domains
	Locations     Locations
}

// Handler implements the HTTP endpoints on top of the domain services.
type Handler struct {
	catalog       *catalog.Service
	coupons       *coupon.Admin
	couponChecker CouponChecker
	users         *user.Service
	notifications *notification.Service
	pricer        Pricer
	orders        OrderPlacer
	domains       Domains
	locations     Locations
}

// New creates a Handler.
func New(d Deps) *Handler {
	return &Handler{
		catalog:       d.Catalog,
		coupons:       d.Coupons,
		couponChecker: d.CouponChecker,
		users:         d.Users,
		notifications: d.Notifications,
		pricer:        d.Pricer,
		orders:        d.Orders,
		domains:       d.Domains,
		locations:     d.Locations,
	}
}
