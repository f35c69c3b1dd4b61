package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypeFixed takes a fixed amount off the total.
	TypeFixed Type = "fixed"
	// TypePercentage takes a capped percentage off the total.
	TypePercentage Type = "percentage"
)

// Scope selects which carts a coupon may be used with.
type Scope string

const (
	// ScopeAll accepts any cart.
	ScopeAll Scope = "all"
	// ScopeSpecific requires every SpecificProducts tuple to be in the cart.
	ScopeSpecific Scope = "specific"
)

var (
	// ErrNotFound is returned when no coupon has the requested code or ID.
	ErrNotFound = errors.New("coupon not found")
	// ErrUsageExhausted is returned by DecrementUsage when the total usage
	// counter is already zero.
	ErrUsageExhausted = errors.New("coupon usage limit exhausted")
	// ErrDuplicateCode is returned when creating a coupon whose code is taken.
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// Condition is an exact (product, package, period) tuple a cart line must match.
type Condition struct {
	ProductID    string `json:"productId"`
	PackageName  string `json:"packageName"`
	PeriodMonths int    `json:"period"`
}

// Matches reports whether the line equals the tuple on all three fields.
func (c Condition) Matches(l cart.Line) bool {
	return l.ProductID == c.ProductID &&
		l.PackageName == c.PackageName &&
		l.PeriodMonths == c.PeriodMonths
}

// Coupon is a promotional code with its discount terms and eligibility rules.
type Coupon struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Type     Type            `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	ApplyFor Scope           `json:"applyFor"`
	// MaxDiscount caps percentage coupons. Zero means no cap is configured,
	// which makes a percentage coupon worthless.
	MaxDiscount      decimal.Decimal `json:"maxDiscount"`
	MinTotalPrice    decimal.Decimal `json:"minTotalPrice"`
	ExpireDate       *time.Time      `json:"expireDate,omitempty"`
	TotalUsageLimit  int             `json:"totalUsageLimit"`
	UserUsageLimit   *int            `json:"userUsageLimit,omitempty"`
	AllowedEmails    []string        `json:"allowedEmails"`
	SpecificProducts []Condition     `json:"specificProducts"`
	RequiredProducts []Condition     `json:"requiredProducts"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Repository is the read/redeem side used by the Evaluator.
type Repository interface {
	// FindByCode returns ErrNotFound when no coupon has the code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// DecrementUsage atomically decrements TotalUsageLimit if it is positive
	// and returns the updated coupon, or ErrUsageExhausted.
	DecrementUsage(ctx context.Context, id string) (*Coupon, error)
}

// Store adds the administrative operations.
type Store interface {
	Repository
	List(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) (*Coupon, error)
}
