package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/events"
)

// Status is the outcome of a coupon evaluation.
type Status string

const (
	StatusAccept        Status = "accept"
	StatusReject        Status = "reject"
	StatusNotApplicable Status = "not_applicable"
)

// Reason identifies which eligibility check decided the outcome.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotFound         Reason = "not_found"
	ReasonExpired          Reason = "expired"
	ReasonUsageExhausted   Reason = "usage_exhausted"
	ReasonUserLimit        Reason = "user_limit_exhausted"
	ReasonMinTotal         Reason = "min_total"
	ReasonEmailNotAllowed  Reason = "email_not_allowed"
	ReasonSpecificProducts Reason = "specific_products"
	ReasonRequiredProducts Reason = "required_products"
)

// Request is the cart state a coupon is evaluated against.
type Request struct {
	Code       string
	Lines      []cart.Line
	TotalPrice decimal.Decimal
	Email      string
}

// Result is a structured, non-fatal evaluation outcome. Rejections are
// results, not errors.
type Result struct {
	Status  Status `json:"status"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message"`
	// Shortfall is how much more the cart must cost to reach MinTotalPrice.
	Shortfall decimal.Decimal `json:"money"`
	Coupon    *Coupon         `json:"coupon,omitempty"`
}

// Accepted reports whether the coupon may be applied.
func (r *Result) Accepted() bool { return r.Status == StatusAccept }

func reject(reason Reason, msg string, c *Coupon) *Result {
	return &Result{Status: StatusReject, Reason: reason, Message: msg, Coupon: c}
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMeterProvider sets the meter provider for evaluation counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Evaluator) { e.meter = mp }
}

// WithPublisher sets the publisher notified of redemptions.
func WithPublisher(p events.Publisher) Option {
	return func(e *Evaluator) { e.events = p }
}

// Evaluator decides whether a coupon applies to a cart and redeems it.
type Evaluator struct {
	repo   Repository
	events events.Publisher
	meter  metric.MeterProvider
	now    func() time.Time

	evaluations metric.Int64Counter
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository, opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		repo:   repo,
		events: events.Nop{},
		meter:  noop.NewMeterProvider(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}

	var err error
	e.evaluations, err = e.meter.Meter("storefront/coupon").Int64Counter("coupon.evaluations",
		metric.WithDescription("Coupon evaluations by status and reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create evaluations counter")
	}
	return e, nil
}

// Evaluate runs the eligibility checks in order and stops at the first
// failing one. It never mutates the coupon.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	c, err := e.repo.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return e.record(ctx, &Result{
				Status:  StatusNotApplicable,
				Reason:  ReasonNotFound,
				Message: "coupon does not exist",
			}), nil
		}
		return nil, errors.Wrap(err, "find coupon")
	}
	return e.record(ctx, e.check(c, req)), nil
}

func (e *Evaluator) check(c *Coupon, req Request) *Result {
	if c.ExpireDate != nil && c.ExpireDate.Before(e.now()) {
		return reject(ReasonExpired, "coupon expired", c)
	}
	if c.TotalUsageLimit == 0 {
		return reject(ReasonUsageExhausted, "usage limit exhausted", c)
	}
	if c.UserUsageLimit != nil && *c.UserUsageLimit == 0 {
		return reject(ReasonUserLimit, "per-user limit exhausted", c)
	}
	if req.TotalPrice.LessThan(c.MinTotalPrice) {
		short := c.MinTotalPrice.Sub(req.TotalPrice)
		r := reject(ReasonMinTotal, fmt.Sprintf("add %s more to the order to use this coupon", short), c)
		r.Shortfall = short
		return r
	}
	if len(c.AllowedEmails) > 0 && !containsEmail(c.AllowedEmails, req.Email) {
		return reject(ReasonEmailNotAllowed, "email is not allowed to use this coupon", c)
	}
	if c.ApplyFor == ScopeSpecific && !allInCart(c.SpecificProducts, req.Lines) {
		return reject(ReasonSpecificProducts, "coupon applies only to specific products", c)
	}
	if !allInCart(c.RequiredProducts, req.Lines) {
		return reject(ReasonRequiredProducts, "cart is missing products required by this coupon", c)
	}
	return &Result{Status: StatusAccept, Message: "coupon can be used", Coupon: c}
}

// Redeem evaluates the coupon and, when accepted, consumes one use of its
// total usage limit. A concurrent redemption that takes the last use turns an
// accept into a usage-limit rejection.
func (e *Evaluator) Redeem(ctx context.Context, req Request) (*Result, error) {
	res, err := e.Evaluate(ctx, req)
	if err != nil || !res.Accepted() {
		return res, err
	}

	updated, err := e.repo.DecrementUsage(ctx, res.Coupon.ID)
	if err != nil {
		if errors.Is(err, ErrUsageExhausted) {
			return e.record(ctx, reject(ReasonUsageExhausted, "usage limit exhausted", res.Coupon)), nil
		}
		return nil, errors.Wrap(err, "decrement usage")
	}
	res.Coupon = updated

	ev := events.Event{
		Type:       events.TypeCouponRedeemed,
		Key:        updated.Code,
		OccurredAt: e.now(),
		Payload: map[string]any{
			"couponId":  updated.ID,
			"code":      updated.Code,
			"email":     req.Email,
			"remaining": updated.TotalUsageLimit,
		},
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		zctx.From(ctx).Warn("Publish coupon redemption",
			zap.String("code", updated.Code),
			zap.Error(err),
		)
	}
	return res, nil
}

func (e *Evaluator) record(ctx context.Context, r *Result) *Result {
	e.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(r.Status)),
		attribute.String("reason", string(r.Reason)),
	))
	return r
}

// allInCart reports whether every condition matches at least one line.
func allInCart(conds []Condition, lines []cart.Line) bool {
	for _, c := range conds {
		found := false
		for _, l := range lines {
			if c.Matches(l) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsEmail(allowed []string, email string) bool {
	email = strings.TrimSpace(email)
	for _, a := range allowed {
		if strings.EqualFold(a, email) {
			return true
		}
	}
	return false
}
