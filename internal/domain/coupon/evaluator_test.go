package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/events"
)

type mockCouponRepo struct {
	coupon       *Coupon
	err          error
	decrementErr error
	decremented  string
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*Coupon, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.coupon == nil {
		return nil, ErrNotFound
	}
	c := *m.coupon
	return &c, nil
}

func (m *mockCouponRepo) DecrementUsage(_ context.Context, id string) (*Coupon, error) {
	m.decremented = id
	if m.decrementErr != nil {
		return nil, m.decrementErr
	}
	c := *m.coupon
	c.TotalUsageLimit--
	return &c, nil
}

type mockPublisher struct {
	events []events.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, evs ...events.Event) error {
	m.events = append(m.events, evs...)
	return m.err
}

func intPtr(v int) *int { return &v }

func newTestEvaluator(t *testing.T, repo Repository, now time.Time, opts ...Option) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(repo, opts...)
	require.NoError(t, err)
	e.now = func() time.Time { return now }
	return e
}

func TestEvaluator_Evaluate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	vps := cart.Line{ProductID: "vps", PackageName: "Basic", PeriodMonths: 12}
	ssl := cart.Line{ProductID: "ssl", PackageName: "DV", PeriodMonths: 12}

	base := func() *Coupon {
		return &Coupon{
			ID:              "c1",
			Code:            "SAVE20",
			Type:            TypeFixed,
			Amount:          decimal.NewFromInt(20),
			ApplyFor:        ScopeAll,
			ExpireDate:      &future,
			TotalUsageLimit: 5,
		}
	}

	tests := []struct {
		name      string
		coupon    func() *Coupon
		lines     []cart.Line
		total     int64
		email     string
		want      Status
		reason    Reason
		shortfall int64
	}{
		{
			name:   "unknown code is not applicable",
			coupon: func() *Coupon { return nil },
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusNotApplicable,
			reason: ReasonNotFound,
		},
		{
			name:   "all checks pass",
			coupon: base,
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusAccept,
		},
		{
			name: "no expire date never expires",
			coupon: func() *Coupon {
				c := base()
				c.ExpireDate = nil
				return c
			},
			lines: []cart.Line{vps},
			total: 100,
			want:  StatusAccept,
		},
		{
			name: "expired",
			coupon: func() *Coupon {
				c := base()
				c.ExpireDate = &past
				return c
			},
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusReject,
			reason: ReasonExpired,
		},
		{
			name: "usage limit zero rejects even when everything else passes",
			coupon: func() *Coupon {
				c := base()
				c.TotalUsageLimit = 0
				return c
			},
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusReject,
			reason: ReasonUsageExhausted,
		},
		{
			name: "expiry is checked before usage",
			coupon: func() *Coupon {
				c := base()
				c.ExpireDate = &past
				c.TotalUsageLimit = 0
				return c
			},
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusReject,
			reason: ReasonExpired,
		},
		{
			name: "per-user limit zero",
			coupon: func() *Coupon {
				c := base()
				c.UserUsageLimit = intPtr(0)
				return c
			},
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusReject,
			reason: ReasonUserLimit,
		},
		{
			name: "per-user limit positive",
			coupon: func() *Coupon {
				c := base()
				c.UserUsageLimit = intPtr(2)
				return c
			},
			lines: []cart.Line{vps},
			total: 100,
			want:  StatusAccept,
		},
		{
			name: "below minimum total reports shortfall",
			coupon: func() *Coupon {
				c := base()
				c.MinTotalPrice = decimal.NewFromInt(200)
				return c
			},
			lines:     []cart.Line{vps},
			total:     100,
			want:      StatusReject,
			reason:    ReasonMinTotal,
			shortfall: 100,
		},
		{
			name: "exactly minimum total",
			coupon: func() *Coupon {
				c := base()
				c.MinTotalPrice = decimal.NewFromInt(100)
				return c
			},
			lines: []cart.Line{vps},
			total: 100,
			want:  StatusAccept,
		},
		{
			name: "email not in allow list",
			coupon: func() *Coupon {
				c := base()
				c.AllowedEmails = []string{"vip@example.com"}
				return c
			},
			lines:  []cart.Line{vps},
			total:  100,
			email:  "other@example.com",
			want:   StatusReject,
			reason: ReasonEmailNotAllowed,
		},
		{
			name: "email in allow list ignores case",
			coupon: func() *Coupon {
				c := base()
				c.AllowedEmails = []string{"vip@example.com"}
				return c
			},
			lines: []cart.Line{vps},
			total: 100,
			email: "VIP@example.com",
			want:  StatusAccept,
		},
		{
			name: "specific products missing",
			coupon: func() *Coupon {
				c := base()
				c.ApplyFor = ScopeSpecific
				c.SpecificProducts = []Condition{{ProductID: "ssl", PackageName: "DV", PeriodMonths: 12}}
				return c
			},
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusReject,
			reason: ReasonSpecificProducts,
		},
		{
			name: "specific products require exact period",
			coupon: func() *Coupon {
				c := base()
				c.ApplyFor = ScopeSpecific
				c.SpecificProducts = []Condition{{ProductID: "vps", PackageName: "Basic", PeriodMonths: 24}}
				return c
			},
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusReject,
			reason: ReasonSpecificProducts,
		},
		{
			name: "specific products ignored when scope is all",
			coupon: func() *Coupon {
				c := base()
				c.SpecificProducts = []Condition{{ProductID: "ssl", PackageName: "DV", PeriodMonths: 12}}
				return c
			},
			lines: []cart.Line{vps},
			total: 100,
			want:  StatusAccept,
		},
		{
			name: "required products missing",
			coupon: func() *Coupon {
				c := base()
				c.RequiredProducts = []Condition{
					{ProductID: "vps", PackageName: "Basic", PeriodMonths: 12},
					{ProductID: "ssl", PackageName: "DV", PeriodMonths: 12},
				}
				return c
			},
			lines:  []cart.Line{vps},
			total:  100,
			want:   StatusReject,
			reason: ReasonRequiredProducts,
		},
		{
			name: "required products present",
			coupon: func() *Coupon {
				c := base()
				c.ApplyFor = ScopeSpecific
				c.SpecificProducts = []Condition{{ProductID: "vps", PackageName: "Basic", PeriodMonths: 12}}
				c.RequiredProducts = []Condition{{ProductID: "ssl", PackageName: "DV", PeriodMonths: 12}}
				return c
			},
			lines: []cart.Line{vps, ssl},
			total: 100,
			want:  StatusAccept,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEvaluator(t, &mockCouponRepo{coupon: tt.coupon()}, fixedNow)

			res, err := e.Evaluate(context.Background(), Request{
				Code:       "SAVE20",
				Lines:      tt.lines,
				TotalPrice: decimal.NewFromInt(tt.total),
				Email:      tt.email,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.reason, res.Reason)
			assert.NotEmpty(t, res.Message)
			assert.True(t, decimal.NewFromInt(tt.shortfall).Equal(res.Shortfall),
				"shortfall: want %d, got %s", tt.shortfall, res.Shortfall)
			if tt.want == StatusAccept {
				require.NotNil(t, res.Coupon)
				assert.Equal(t, "c1", res.Coupon.ID)
			}
		})
	}
}

func TestEvaluator_EvaluateRepoError(t *testing.T) {
	e := newTestEvaluator(t, &mockCouponRepo{err: errors.New("connection refused")}, time.Now())

	res, err := e.Evaluate(context.Background(), Request{Code: "X"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "find coupon")
}

func TestEvaluator_Redeem(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	valid := &Coupon{
		ID:              "c1",
		Code:            "SAVE20",
		Type:            TypeFixed,
		Amount:          decimal.NewFromInt(20),
		ApplyFor:        ScopeAll,
		TotalUsageLimit: 3,
	}

	t.Run("accepted coupon is decremented and published", func(t *testing.T) {
		repo := &mockCouponRepo{coupon: valid}
		pub := &mockPublisher{}
		e := newTestEvaluator(t, repo, now, WithPublisher(pub))

		res, err := e.Redeem(context.Background(), Request{Code: "SAVE20", TotalPrice: decimal.NewFromInt(100)})
		require.NoError(t, err)
		assert.Equal(t, StatusAccept, res.Status)
		assert.Equal(t, "c1", repo.decremented)
		assert.Equal(t, 2, res.Coupon.TotalUsageLimit)

		require.Len(t, pub.events, 1)
		assert.Equal(t, events.TypeCouponRedeemed, pub.events[0].Type)
		assert.Equal(t, "SAVE20", pub.events[0].Key)
		assert.Equal(t, now, pub.events[0].OccurredAt)
	})

	t.Run("rejected coupon is not decremented", func(t *testing.T) {
		exhausted := *valid
		exhausted.TotalUsageLimit = 0
		repo := &mockCouponRepo{coupon: &exhausted}
		pub := &mockPublisher{}
		e := newTestEvaluator(t, repo, now, WithPublisher(pub))

		res, err := e.Redeem(context.Background(), Request{Code: "SAVE20"})
		require.NoError(t, err)
		assert.Equal(t, StatusReject, res.Status)
		assert.Equal(t, ReasonUsageExhausted, res.Reason)
		assert.Empty(t, repo.decremented)
		assert.Empty(t, pub.events)
	})

	t.Run("lost race becomes usage rejection", func(t *testing.T) {
		repo := &mockCouponRepo{coupon: valid, decrementErr: ErrUsageExhausted}
		e := newTestEvaluator(t, repo, now)

		res, err := e.Redeem(context.Background(), Request{Code: "SAVE20"})
		require.NoError(t, err)
		assert.Equal(t, StatusReject, res.Status)
		assert.Equal(t, ReasonUsageExhausted, res.Reason)
	})

	t.Run("decrement failure is an error", func(t *testing.T) {
		repo := &mockCouponRepo{coupon: valid, decrementErr: errors.New("timeout")}
		e := newTestEvaluator(t, repo, now)

		_, err := e.Redeem(context.Background(), Request{Code: "SAVE20"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decrement usage")
	})

	t.Run("publish failure does not fail redemption", func(t *testing.T) {
		repo := &mockCouponRepo{coupon: valid}
		e := newTestEvaluator(t, repo, now, WithPublisher(&mockPublisher{err: errors.New("broker down")}))

		res, err := e.Redeem(context.Background(), Request{Code: "SAVE20"})
		require.NoError(t, err)
		assert.Equal(t, StatusAccept, res.Status)
	})
}
