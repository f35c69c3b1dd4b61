package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ValidationError describes a malformed catalog document.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Service encapsulates catalog administration: validation, duplication and
// package management on top of the repositories.
type Service struct {
	products   Repository
	types      TypeRepository
	crossSells CrossSellRepository
}

// NewService creates a catalog Service.
func NewService(products Repository, types TypeRepository, crossSells CrossSellRepository) *Service {
	return &Service{
		products:   products,
		types:      types,
		crossSells: crossSells,
	}
}

// Products exposes the product repository for plain reads.
func (s *Service) Products() Repository { return s.products }

// Types exposes the product type repository.
func (s *Service) Types() TypeRepository { return s.types }

// CrossSells exposes the cross-sell repository.
func (s *Service) CrossSells() CrossSellRepository { return s.crossSells }

// CreateProduct validates and persists a new product.
func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	p.ID = uuid.New().String()
	if err := ValidateProduct(p); err != nil {
		return err
	}
	if err := s.checkType(ctx, p.TypeID); err != nil {
		return err
	}
	return s.products.Create(ctx, p)
}

// UpdateProduct validates and replaces an existing product.
func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	if err := ValidateProduct(p); err != nil {
		return err
	}
	if err := s.checkType(ctx, p.TypeID); err != nil {
		return err
	}
	return s.products.Update(ctx, p)
}

// DuplicateProduct copies a product, its packages and its cross-sell rules
// under a fresh identifier.
func (s *Service) DuplicateProduct(ctx context.Context, id string) (*Product, error) {
	src, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := &Product{
		ID:       uuid.New().String(),
		Name:     src.Name + " (copy)",
		TypeID:   src.TypeID,
		Packages: clonePackages(src.Packages),
	}
	if err := s.products.Create(ctx, dup); err != nil {
		return nil, errors.Wrap(err, "create duplicate")
	}

	for _, r := range src.CrossSells {
		rule := CrossSellRule{
			ProductID: dup.ID,
			Required:  append([]RequiredCondition(nil), r.Required...),
			Offers:    append([]OfferCondition(nil), r.Offers...),
			IsUpSell:  r.IsUpSell,
		}
		if err := s.CreateCrossSell(ctx, &rule); err != nil {
			return nil, errors.Wrap(err, "copy cross-sell")
		}
		dup.CrossSells = append(dup.CrossSells, rule)
	}
	return dup, nil
}

// AddPackage appends a package (variant) to an existing product.
func (s *Service) AddPackage(ctx context.Context, productID string, pkg Package) (*Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	p.Packages = append(p.Packages, pkg)
	if err := ValidateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// UpSell returns the products sharing the name of the given product.
func (s *Service) UpSell(ctx context.Context, productID string) ([]Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.products.ListByName(ctx, p.Name)
}

// CreateCrossSell validates and persists a cross-sell rule.
func (s *Service) CreateCrossSell(ctx context.Context, r *CrossSellRule) error {
	r.ID = uuid.New().String()
	if err := ValidateCrossSell(r); err != nil {
		return err
	}
	return s.crossSells.Create(ctx, r)
}

// UpdateCrossSell validates and replaces a cross-sell rule.
func (s *Service) UpdateCrossSell(ctx context.Context, r *CrossSellRule) error {
	if err := ValidateCrossSell(r); err != nil {
		return err
	}
	return s.crossSells.Update(ctx, r)
}

// CreateType validates and persists a product type.
func (s *Service) CreateType(ctx context.Context, t *ProductType) error {
	t.ID = uuid.New().String()
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	return s.types.Create(ctx, t)
}

// UpdateType validates and replaces a product type.
func (s *Service) UpdateType(ctx context.Context, t *ProductType) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	return s.types.Update(ctx, t)
}

func (s *Service) checkType(ctx context.Context, typeID string) error {
	if typeID == "" {
		return nil
	}
	if _, err := s.types.GetByID(ctx, typeID); err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			return &ValidationError{Field: "productType", Reason: "unknown product type " + typeID}
		}
		return errors.Wrap(err, "get product type")
	}
	return nil
}

// ValidateProduct enforces package name and period uniqueness.
func ValidateProduct(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}

	names := make(map[string]struct{}, len(p.Packages))
	for i, pkg := range p.Packages {
		field := fmt.Sprintf("packages[%d]", i)
		if pkg.Name == "" {
			return &ValidationError{Field: field + ".name", Reason: "required"}
		}
		if _, dup := names[pkg.Name]; dup {
			return &ValidationError{Field: field + ".name", Reason: "duplicate package " + pkg.Name}
		}
		names[pkg.Name] = struct{}{}

		months := make(map[int]struct{}, len(pkg.Periods))
		for j, bp := range pkg.Periods {
			pf := fmt.Sprintf("%s.periods[%d]", field, j)
			if bp.Months <= 0 {
				return &ValidationError{Field: pf, Reason: "period must be greater than 0"}
			}
			if _, dup := months[bp.Months]; dup {
				return &ValidationError{Field: pf, Reason: fmt.Sprintf("duplicate period %d", bp.Months)}
			}
			if bp.SalePrice.IsNegative() || bp.BasePrice.IsNegative() {
				return &ValidationError{Field: pf, Reason: "prices must not be negative"}
			}
			months[bp.Months] = struct{}{}
		}
	}
	return nil
}

// ValidateCrossSell checks that a rule names its owner, at least one
// required product and at least one offer.
func ValidateCrossSell(r *CrossSellRule) error {
	switch {
	case r.ProductID == "":
		return &ValidationError{Field: "productId", Reason: "required"}
	case len(r.Required) == 0:
		return &ValidationError{Field: "option", Reason: "at least one required product"}
	case len(r.Offers) == 0:
		return &ValidationError{Field: "crossSellOption", Reason: "at least one cross-sell product"}
	}
	for i, o := range r.Offers {
		if o.ProductID == "" {
			return &ValidationError{Field: fmt.Sprintf("crossSellOption[%d].productId", i), Reason: "required"}
		}
		if o.DiscountPercentage.IsNegative() || o.DiscountPercentage.GreaterThan(hundred) {
			return &ValidationError{Field: fmt.Sprintf("crossSellOption[%d].discount", i), Reason: "must be within 0..100"}
		}
	}
	for i, q := range r.Required {
		if q.ProductID == "" {
			return &ValidationError{Field: fmt.Sprintf("option[%d].productId", i), Reason: "required"}
		}
	}
	return nil
}

func clonePackages(src []Package) []Package {
	out := make([]Package, len(src))
	for i, pkg := range src {
		out[i] = Package{
			Name:    pkg.Name,
			Periods: append([]BillingPeriod(nil), pkg.Periods...),
		}
	}
	return out
}
