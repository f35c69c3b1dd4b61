package pricing

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
)

// --- Mock implementations ---

type mockCatalog struct {
	products map[string]catalog.Product
	err      error
	calls    int
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockDomains struct {
	prices map[string]decimal.Decimal
	err    error
}

func (m *mockDomains) DomainPrice(_ context.Context, name string) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Zero, m.err
	}
	p, ok := m.prices[name]
	if !ok {
		return decimal.Zero, errors.Errorf("no price for %s", name)
	}
	return p, nil
}

type mockCoupons struct {
	result *coupon.Result
	err    error
	got    coupon.Request
}

func (m *mockCoupons) Evaluate(_ context.Context, req coupon.Request) (*coupon.Result, error) {
	m.got = req
	return m.result, m.err
}

// --- Helpers ---

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func period(months int, sale, base int64) catalog.BillingPeriod {
	return catalog.BillingPeriod{Months: months, SalePrice: d(sale), BasePrice: d(base)}
}

func testCatalog() *mockCatalog {
	return &mockCatalog{products: map[string]catalog.Product{
		"P1": {
			ID:   "P1",
			Name: "VPS",
			Packages: []catalog.Package{
				{Name: "Basic", Periods: []catalog.BillingPeriod{period(12, 100, 150)}},
			},
		},
	}}
}

func newTestEngine(t *testing.T, c catalog.Reader, dp DomainPricer, ce CouponEvaluator) *Engine {
	t.Helper()
	e, err := NewEngine(c, dp, ce)
	require.NoError(t, err)
	return e
}

func acceptFixed(amount int64) *mockCoupons {
	return &mockCoupons{result: &coupon.Result{
		Status:  coupon.StatusAccept,
		Message: "coupon can be used",
		Coupon:  &coupon.Coupon{ID: "c1", Code: "SAVE", Type: coupon.TypeFixed, Amount: d(amount)},
	}}
}

var p1Line = cart.Line{ProductID: "P1", PackageName: "Basic", PeriodMonths: 12}

// --- Tests ---

func TestEngine_Compute_SingleLine(t *testing.T) {
	e := newTestEngine(t, testCatalog(), &mockDomains{}, &mockCoupons{})

	got, err := e.Compute(context.Background(), Cart{Lines: []cart.Line{p1Line}})
	require.NoError(t, err)

	want := &Breakdown{
		TotalBasePrice:                   d(150),
		TotalSalePrice:                   d(100),
		TotalSaleByProduct:               d(50),
		TotalSaleWithoutPromo:            d(50),
		TotalPriceAfterCrossSaleAndPromo: d(100),
		VAT:                              d(10),
		TotalPriceIncludedVAT:            d(110),
		PromoStatus:                      coupon.StatusNotApplicable,
		PromoMessage:                     MessageNoCoupon,
		ItemSale:                         []ItemSale{},
		Subtotal:                         d(100),
	}
	opts := cmp.Options{decimalEqual, cmpopts.EquateEmpty(), cmpopts.IgnoreFields(Breakdown{}, "Lines", "Domains")}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "VPS", got.Lines[0].Name)
}

func TestEngine_Compute_Coupon(t *testing.T) {
	tests := []struct {
		name       string
		coupons    *mockCoupons
		wantTotal  int64
		wantVAT    int64
		wantIncl   int64
		wantPromo  int64
		wantStatus coupon.Status
	}{
		{
			name:       "fixed coupon accepted",
			coupons:    acceptFixed(20),
			wantTotal:  80,
			wantVAT:    8,
			wantIncl:   88,
			wantPromo:  20,
			wantStatus: coupon.StatusAccept,
		},
		{
			name:       "fixed coupon larger than total floors at zero",
			coupons:    acceptFixed(250),
			wantTotal:  0,
			wantVAT:    0,
			wantIncl:   0,
			wantPromo:  250,
			wantStatus: coupon.StatusAccept,
		},
		{
			name: "percentage coupon without cap gives nothing",
			coupons: &mockCoupons{result: &coupon.Result{
				Status: coupon.StatusAccept,
				Coupon: &coupon.Coupon{Type: coupon.TypePercentage, Amount: d(50)},
			}},
			wantTotal:  100,
			wantVAT:    10,
			wantIncl:   110,
			wantStatus: coupon.StatusAccept,
		},
		{
			name: "not applicable",
			coupons: &mockCoupons{result: &coupon.Result{
				Status: coupon.StatusNotApplicable,
				Reason: coupon.ReasonNotFound,
			}},
			wantTotal:  100,
			wantVAT:    10,
			wantIncl:   110,
			wantStatus: coupon.StatusNotApplicable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, testCatalog(), &mockDomains{}, tt.coupons)

			got, err := e.Compute(context.Background(), Cart{Lines: []cart.Line{p1Line}, CouponCode: "SAVE"})
			require.NoError(t, err)
			assert.True(t, d(tt.wantTotal).Equal(got.TotalPriceAfterCrossSaleAndPromo), "total %s", got.TotalPriceAfterCrossSaleAndPromo)
			assert.True(t, d(tt.wantVAT).Equal(got.VAT), "VAT %s", got.VAT)
			assert.True(t, d(tt.wantIncl).Equal(got.TotalPriceIncludedVAT), "incl %s", got.TotalPriceIncludedVAT)
			assert.True(t, d(tt.wantPromo).Equal(got.PromoSale), "promo %s", got.PromoSale)
			assert.Equal(t, tt.wantStatus, got.PromoStatus)
			if tt.wantStatus == coupon.StatusNotApplicable {
				assert.Equal(t, MessageNoCoupon, got.PromoMessage)
				assert.Nil(t, got.Coupon)
			}
			assert.True(t, d(50).Equal(got.TotalSaleWithoutPromo), "promo must not count towards sale without promo")
		})
	}
}

func TestEngine_Compute_CouponMinTotal(t *testing.T) {
	repo := &couponRepo{c: &coupon.Coupon{
		ID:              "c1",
		Code:            "BIG",
		Type:            coupon.TypeFixed,
		Amount:          d(20),
		ApplyFor:        coupon.ScopeAll,
		MinTotalPrice:   d(200),
		TotalUsageLimit: 10,
	}}
	ev, err := coupon.NewEvaluator(repo)
	require.NoError(t, err)
	e := newTestEngine(t, testCatalog(), &mockDomains{}, ev)

	got, err := e.Compute(context.Background(), Cart{Lines: []cart.Line{p1Line}, CouponCode: "BIG"})
	require.NoError(t, err)
	assert.Equal(t, coupon.StatusReject, got.PromoStatus)
	assert.Equal(t, coupon.ReasonMinTotal, got.PromoReason)
	assert.True(t, d(100).Equal(got.PromoShortfall), "shortfall %s", got.PromoShortfall)
	assert.Contains(t, got.PromoMessage, "100")
	assert.True(t, d(100).Equal(got.TotalPriceAfterCrossSaleAndPromo))
	assert.True(t, got.PromoSale.IsZero())
}

func TestEngine_Compute_CouponSeesTotalAfterCrossSell(t *testing.T) {
	cat := crossSellCatalog(catalog.CrossSellRule{
		Required: []catalog.RequiredCondition{{ProductID: "vps"}},
		Offers:   []catalog.OfferCondition{{ProductID: "ssl", DiscountPercentage: d(10)}},
	})
	coupons := &mockCoupons{result: &coupon.Result{Status: coupon.StatusNotApplicable}}
	e := newTestEngine(t, cat, &mockDomains{}, coupons)

	_, err := e.Compute(context.Background(), Cart{
		Lines:      []cart.Line{vpsBasic12, sslDV12},
		CouponCode: "X",
		Email:      "a@b.c",
	})
	require.NoError(t, err)
	assert.True(t, d(1450).Equal(coupons.got.TotalPrice), "coupon saw %s", coupons.got.TotalPrice)
	assert.Equal(t, "a@b.c", coupons.got.Email)
	assert.Len(t, coupons.got.Lines, 2)
}

func TestEngine_Compute_Domains(t *testing.T) {
	domains := &mockDomains{prices: map[string]decimal.Decimal{
		"example.com": d(300),
		"example.net": d(200),
	}}
	e := newTestEngine(t, testCatalog(), domains, &mockCoupons{})

	got, err := e.Compute(context.Background(), Cart{
		Lines: []cart.Line{p1Line},
		Domains: []cart.Domain{
			{Name: "example.com", Years: 2},
			{Name: "example.net", Years: 1},
		},
	})
	require.NoError(t, err)
	assert.True(t, d(950).Equal(got.TotalBasePrice), "base %s", got.TotalBasePrice)
	assert.True(t, d(100).Equal(got.TotalSalePrice), "domains do not count as sale price")
	assert.True(t, d(50).Equal(got.TotalSaleByProduct))
	assert.True(t, d(900).Equal(got.TotalPriceAfterCrossSaleAndPromo), "total %s", got.TotalPriceAfterCrossSaleAndPromo)
	assert.True(t, d(90).Equal(got.VAT))

	require.Len(t, got.Domains, 2)
	assert.Equal(t, "example.com", got.Domains[0].Name)
	assert.True(t, d(600).Equal(got.Domains[0].Total))
	assert.True(t, d(300).Equal(got.Domains[0].BuyPrice))
}

func TestEngine_Compute_DomainsOnly(t *testing.T) {
	cat := testCatalog()
	e := newTestEngine(t, cat, &mockDomains{prices: map[string]decimal.Decimal{"a.io": d(40)}}, &mockCoupons{})

	got, err := e.Compute(context.Background(), Cart{Domains: []cart.Domain{{Name: "a.io", Years: 3}}})
	require.NoError(t, err)
	assert.Zero(t, cat.calls, "catalog must not be queried without lines")
	assert.True(t, d(120).Equal(got.TotalPriceAfterCrossSaleAndPromo))
}

func TestEngine_Compute_EmptyCart(t *testing.T) {
	coupons := &mockCoupons{}
	e := newTestEngine(t, testCatalog(), &mockDomains{}, coupons)

	got, err := e.Compute(context.Background(), Cart{})
	require.NoError(t, err)

	for name, v := range map[string]decimal.Decimal{
		"totalBasePrice":         got.TotalBasePrice,
		"totalSalePrice":         got.TotalSalePrice,
		"afterCrossSaleAndPromo": got.TotalPriceAfterCrossSaleAndPromo,
		"VAT":                    got.VAT,
		"includedVAT":            got.TotalPriceIncludedVAT,
		"promoSale":              got.PromoSale,
	} {
		assert.True(t, v.IsZero(), "%s = %s", name, v)
	}
	assert.Equal(t, MessageNoCoupon, got.PromoMessage)
	assert.Equal(t, coupon.StatusNotApplicable, got.PromoStatus)
	assert.Empty(t, got.ItemSale)
	assert.Empty(t, coupons.got.Code, "coupon evaluated without a code")
}

func TestEngine_Compute_SumOfSalePrices(t *testing.T) {
	cat := &mockCatalog{products: map[string]catalog.Product{
		"a": {ID: "a", Packages: []catalog.Package{{Name: "S", Periods: []catalog.BillingPeriod{period(1, 11, 20), period(12, 99, 240)}}}},
		"b": {ID: "b", Packages: []catalog.Package{{Name: "M", Periods: []catalog.BillingPeriod{period(6, 57, 60)}}}},
	}}
	e := newTestEngine(t, cat, &mockDomains{prices: map[string]decimal.Decimal{"x.com": d(13)}}, &mockCoupons{})

	got, err := e.Compute(context.Background(), Cart{
		Lines: []cart.Line{
			{ProductID: "a", PackageName: "S", PeriodMonths: 1},
			{ProductID: "a", PackageName: "S", PeriodMonths: 12},
			{ProductID: "b", PackageName: "M", PeriodMonths: 6},
		},
		Domains: []cart.Domain{{Name: "x.com", Years: 2}},
	})
	require.NoError(t, err)
	assert.True(t, d(11+99+57+26).Equal(got.TotalPriceAfterCrossSaleAndPromo), "total %s", got.TotalPriceAfterCrossSaleAndPromo)
	assert.True(t, d(20+240+60+26).Equal(got.TotalBasePrice))
	assert.Empty(t, got.ItemSale)
}

func TestEngine_Compute_SkipsUnresolvedLines(t *testing.T) {
	e := newTestEngine(t, testCatalog(), &mockDomains{}, &mockCoupons{})

	got, err := e.Compute(context.Background(), Cart{Lines: []cart.Line{
		p1Line,
		{ProductID: "P1", PackageName: "Basic", PeriodMonths: 24},
		{ProductID: "P1", PackageName: "Pro", PeriodMonths: 12},
		{ProductID: "missing", PackageName: "Basic", PeriodMonths: 12},
	}})
	require.NoError(t, err)
	assert.True(t, d(100).Equal(got.TotalPriceAfterCrossSaleAndPromo))
	assert.Len(t, got.Lines, 1)
}

func TestEngine_Compute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		catalog *mockCatalog
		domains *mockDomains
		coupons *mockCoupons
		cart    Cart
		wantErr string
	}{
		{
			name:    "catalog failure",
			catalog: &mockCatalog{err: errors.New("db down")},
			domains: &mockDomains{},
			coupons: &mockCoupons{},
			cart:    Cart{Lines: []cart.Line{p1Line}},
			wantErr: "get products",
		},
		{
			name:    "domain pricing failure aborts",
			catalog: testCatalog(),
			domains: &mockDomains{err: errors.New("upstream 502")},
			coupons: &mockCoupons{},
			cart:    Cart{Lines: []cart.Line{p1Line}, Domains: []cart.Domain{{Name: "a.com", Years: 1}}},
			wantErr: "price domain",
		},
		{
			name:    "coupon lookup failure",
			catalog: testCatalog(),
			domains: &mockDomains{},
			coupons: &mockCoupons{err: errors.New("db down")},
			cart:    Cart{Lines: []cart.Line{p1Line}, CouponCode: "X"},
			wantErr: "evaluate coupon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.catalog, tt.domains, tt.coupons)

			got, err := e.Compute(context.Background(), tt.cart)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

type couponRepo struct {
	c *coupon.Coupon
}

func (r *couponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	if r.c == nil || r.c.Code != code {
		return nil, coupon.ErrNotFound
	}
	return r.c, nil
}

func (r *couponRepo) DecrementUsage(context.Context, string) (*coupon.Coupon, error) {
	return nil, errors.New("not implemented")
}
