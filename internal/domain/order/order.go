// Package order places storefront orders with the hosting platform.
package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/hosting"
)

var (
	// ErrClientIDRequired is returned when the request names no hosting client.
	ErrClientIDRequired = errors.New("client id required")
	// ErrNothingToOrder is returned when no cart line or domain could be priced.
	ErrNothingToOrder = errors.New("nothing to order")
)

// SubmissionError reports a failure after the order reached the hosting
// platform. The order exists upstream.
type SubmissionError struct {
	OrderID string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order %s: %v", e.OrderID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Request is the input of Service.Place.
type Request struct {
	Cart     pricing.Cart
	ClientID string
	Contact  hosting.Contact
	// ServiceDomain is the domain product items are provisioned for. When
	// empty, the first registered domain is used.
	ServiceDomain string
}

// Result is a placed order.
type Result struct {
	OrderID    string             `json:"orderId"`
	PaymentURL string             `json:"paymentUrl"`
	Breakdown  *pricing.Breakdown `json:"breakdown"`
}

// Pricer computes the breakdown of a cart.
type Pricer interface {
	Compute(ctx context.Context, c pricing.Cart) (*pricing.Breakdown, error)
}

// Submitter sends orders to the hosting platform.
type Submitter interface {
	CreateOrder(ctx context.Context, o *hosting.Order) (string, error)
	PaymentLink(ctx context.Context, orderID string) (string, error)
}

// CouponRedeemer consumes one use of a coupon.
type CouponRedeemer interface {
	Redeem(ctx context.Context, req coupon.Request) (*coupon.Result, error)
}
