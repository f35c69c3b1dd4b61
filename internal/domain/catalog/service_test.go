package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducts struct {
	byID map[string]Product
}

func (f *fakeProducts) GetByIDs(context.Context, []string) ([]Product, error) { return nil, nil }

func (f *fakeProducts) List(context.Context, Filter) ([]Product, error) { return nil, nil }

func (f *fakeProducts) ListByName(_ context.Context, name string) ([]Product, error) {
	var out []Product
	for _, p := range f.byID {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) Create(_ context.Context, p *Product) error {
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeProducts) Update(_ context.Context, p *Product) error {
	if _, ok := f.byID[p.ID]; !ok {
		return ErrNotFound
	}
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeProducts) Delete(ctx context.Context, id string) (*Product, error) {
	p, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	delete(f.byID, id)
	return p, nil
}

type fakeTypes struct {
	byID map[string]ProductType
}

func (f *fakeTypes) List(context.Context) ([]ProductType, error) { return nil, nil }

func (f *fakeTypes) GetByID(_ context.Context, id string) (*ProductType, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, ErrTypeNotFound
	}
	return &t, nil
}

func (f *fakeTypes) Create(_ context.Context, t *ProductType) error {
	f.byID[t.ID] = *t
	return nil
}

func (f *fakeTypes) Update(_ context.Context, t *ProductType) error {
	f.byID[t.ID] = *t
	return nil
}

func (f *fakeTypes) Delete(context.Context, string) (*ProductType, error) {
	return nil, ErrTypeNotFound
}

type fakeCrossSells struct {
	rules []CrossSellRule
}

func (f *fakeCrossSells) List(_ context.Context, productID string) ([]CrossSellRule, error) {
	var out []CrossSellRule
	for _, r := range f.rules {
		if productID == "" || r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeCrossSells) Create(_ context.Context, r *CrossSellRule) error {
	f.rules = append(f.rules, *r)
	return nil
}

func (f *fakeCrossSells) Update(context.Context, *CrossSellRule) error { return nil }

func (f *fakeCrossSells) Delete(context.Context, string) error { return nil }

func newTestService() (*Service, *fakeProducts, *fakeCrossSells) {
	products := &fakeProducts{byID: map[string]Product{}}
	types := &fakeTypes{byID: map[string]ProductType{"t-vps": {ID: "t-vps", Name: "vps"}}}
	crossSells := &fakeCrossSells{}
	return NewService(products, types, crossSells), products, crossSells
}

func period(months int, sale int64) BillingPeriod {
	return BillingPeriod{Months: months, SalePrice: decimal.NewFromInt(sale), BasePrice: decimal.NewFromInt(sale)}
}

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name      string
		product   Product
		wantField string
	}{
		{
			name: "Valid",
			product: Product{Name: "VPS", Packages: []Package{
				{Name: "Basic", Periods: []BillingPeriod{period(1, 100), period(12, 1000)}},
				{Name: "Pro", Periods: []BillingPeriod{period(1, 200)}},
			}},
		},
		{name: "BlankName", product: Product{Name: " "}, wantField: "name"},
		{
			name:      "UnnamedPackage",
			product:   Product{Name: "VPS", Packages: []Package{{}}},
			wantField: "packages[0].name",
		},
		{
			name: "DuplicatePackage",
			product: Product{Name: "VPS", Packages: []Package{
				{Name: "Basic"}, {Name: "Basic"},
			}},
			wantField: "packages[1].name",
		},
		{
			name: "DuplicatePeriod",
			product: Product{Name: "VPS", Packages: []Package{
				{Name: "Basic", Periods: []BillingPeriod{period(1, 100), period(1, 90)}},
			}},
			wantField: "packages[0].periods[1]",
		},
		{
			name: "ZeroPeriod",
			product: Product{Name: "VPS", Packages: []Package{
				{Name: "Basic", Periods: []BillingPeriod{period(0, 100)}},
			}},
			wantField: "packages[0].periods[0]",
		},
		{
			name: "NegativePrice",
			product: Product{Name: "VPS", Packages: []Package{
				{Name: "Basic", Periods: []BillingPeriod{period(1, -1)}},
			}},
			wantField: "packages[0].periods[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProduct(&tt.product)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidateCrossSell(t *testing.T) {
	valid := func() *CrossSellRule {
		return &CrossSellRule{
			ProductID: "vps",
			Required:  []RequiredCondition{{ProductID: "vps"}},
			Offers:    []OfferCondition{{ProductID: "ssl", DiscountPercentage: decimal.NewFromInt(20)}},
		}
	}

	tests := []struct {
		name      string
		mutate    func(r *CrossSellRule)
		wantField string
	}{
		{name: "Valid", mutate: func(*CrossSellRule) {}},
		{name: "NoOwner", mutate: func(r *CrossSellRule) { r.ProductID = "" }, wantField: "productId"},
		{name: "NoRequired", mutate: func(r *CrossSellRule) { r.Required = nil }, wantField: "option"},
		{name: "NoOffers", mutate: func(r *CrossSellRule) { r.Offers = nil }, wantField: "crossSellOption"},
		{
			name:      "DiscountOver100",
			mutate:    func(r *CrossSellRule) { r.Offers[0].DiscountPercentage = decimal.NewFromInt(101) },
			wantField: "crossSellOption[0].discount",
		},
		{
			name:      "RequiredWithoutProduct",
			mutate:    func(r *CrossSellRule) { r.Required[0].ProductID = "" },
			wantField: "option[0].productId",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)

			err := ValidateCrossSell(r)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestService_CreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("AssignsID", func(t *testing.T) {
		svc, products, _ := newTestService()
		p := &Product{Name: " VPS ", TypeID: "t-vps"}

		require.NoError(t, svc.CreateProduct(ctx, p))
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "VPS", p.Name)
		assert.Contains(t, products.byID, p.ID)
	})

	t.Run("UnknownType", func(t *testing.T) {
		svc, products, _ := newTestService()

		err := svc.CreateProduct(ctx, &Product{Name: "VPS", TypeID: "t-missing"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "productType", verr.Field)
		assert.Empty(t, products.byID)
	})
}

func TestService_DuplicateProduct(t *testing.T) {
	ctx := context.Background()
	svc, products, crossSells := newTestService()

	src := Product{
		ID:       "vps",
		Name:     "VPS",
		Packages: []Package{{Name: "Basic", Periods: []BillingPeriod{period(1, 100)}}},
		CrossSells: []CrossSellRule{{
			ID:        "rule-1",
			ProductID: "vps",
			Required:  []RequiredCondition{{ProductID: "vps"}},
			Offers:    []OfferCondition{{ProductID: "ssl", DiscountPercentage: decimal.NewFromInt(10)}},
		}},
	}
	products.byID[src.ID] = src

	dup, err := svc.DuplicateProduct(ctx, "vps")
	require.NoError(t, err)

	assert.NotEqual(t, "vps", dup.ID)
	assert.Equal(t, "VPS (copy)", dup.Name)
	assert.Equal(t, src.Packages, dup.Packages)
	require.Len(t, crossSells.rules, 1)
	assert.Equal(t, dup.ID, crossSells.rules[0].ProductID)
	assert.NotEqual(t, "rule-1", crossSells.rules[0].ID)

	// Editing the copy must not leak into the source.
	dup.Packages[0].Periods[0].Months = 3
	assert.Equal(t, 1, products.byID["vps"].Packages[0].Periods[0].Months)

	_, err = svc.DuplicateProduct(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_AddPackage(t *testing.T) {
	ctx := context.Background()
	svc, products, _ := newTestService()
	products.byID["vps"] = Product{
		ID:       "vps",
		Name:     "VPS",
		Packages: []Package{{Name: "Basic", Periods: []BillingPeriod{period(1, 100)}}},
	}

	p, err := svc.AddPackage(ctx, "vps", Package{Name: "Pro", Periods: []BillingPeriod{period(1, 200)}})
	require.NoError(t, err)
	assert.Len(t, p.Packages, 2)
	assert.Len(t, products.byID["vps"].Packages, 2)

	_, err = svc.AddPackage(ctx, "vps", Package{Name: "Pro"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, products.byID["vps"].Packages, 2)
}

func TestService_UpSell(t *testing.T) {
	ctx := context.Background()
	svc, products, _ := newTestService()
	products.byID["a"] = Product{ID: "a", Name: "VPS"}
	products.byID["b"] = Product{ID: "b", Name: "VPS"}
	products.byID["c"] = Product{ID: "c", Name: "SSL"}

	got, err := svc.UpSell(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, p := range got {
		assert.Equal(t, "VPS", p.Name)
	}
}

func TestService_CreateType(t *testing.T) {
	svc, _, _ := newTestService()

	typ := &ProductType{Name: "  ssl "}
	require.NoError(t, svc.CreateType(context.Background(), typ))
	assert.Equal(t, "ssl", typ.Name)
	assert.NotEmpty(t, typ.ID)

	var verr *ValidationError
	require.ErrorAs(t, svc.CreateType(context.Background(), &ProductType{}), &verr)
}
