package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
)

// catalogFile is the layout of the seed document.
type catalogFile struct {
	Types      []catalog.ProductType   `json:"types"`
	Products   []catalog.Product       `json:"products"`
	CrossSells []catalog.CrossSellRule `json:"crossSells"`
}

func main() {
	var (
		databaseURL  string
		catalogPath  string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogPath, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to print a hash for (or STORE_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for admin key hashing (or STORE_APIKEYPEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("STORE_SEED_ADMIN_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_APIKEYPEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if adminKey != "" {
		slog.Info("admin key hash, add it to STORE_ADMINKEYHASHES",
			slog.String("hash", handler.HashAPIKey([]byte(apiKeyPepper), adminKey)),
		)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogPath string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	cat, err := readCatalog(catalogPath)
	if err != nil {
		return err
	}

	if err := seedTypes(ctx, postgres.NewProductTypeRepository(pool), cat.Types); err != nil {
		return errors.Wrap(err, "seed product types")
	}
	if err := seedProducts(ctx, postgres.NewProductRepository(pool), cat.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCrossSells(ctx, postgres.NewCrossSellRepository(pool), cat.CrossSells); err != nil {
		return errors.Wrap(err, "seed cross-sells")
	}
	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func readCatalog(path string) (*catalogFile, error) {
	slog.Info("reading catalog file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}

	var cat catalogFile
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return &cat, nil
}

// Seeding is idempotent: every record is updated in place and created only
// when its ID is unknown.

func seedTypes(ctx context.Context, repo catalog.TypeRepository, types []catalog.ProductType) error {
	slog.Info("upserting product types", slog.Int("count", len(types)))

	for i := range types {
		t := &types[i]
		err := repo.Update(ctx, t)
		if errors.Is(err, catalog.ErrTypeNotFound) {
			err = repo.Create(ctx, t)
		}
		if err != nil {
			return errors.Wrapf(err, "upsert product type %s", t.ID)
		}

		slog.Info("upserted product type", slog.String("id", t.ID), slog.String("name", t.Name))
	}

	return nil
}

func seedProducts(ctx context.Context, repo catalog.Repository, products []catalog.Product) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for i := range products {
		p := &products[i]
		if err := catalog.ValidateProduct(p); err != nil {
			return errors.Wrapf(err, "validate product %s", p.ID)
		}

		err := repo.Update(ctx, p)
		if errors.Is(err, catalog.ErrNotFound) {
			err = repo.Create(ctx, p)
		}
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int("packages", len(p.Packages)),
		)
	}

	return nil
}

func seedCrossSells(ctx context.Context, repo catalog.CrossSellRepository, rules []catalog.CrossSellRule) error {
	slog.Info("upserting cross-sell rules", slog.Int("count", len(rules)))

	for i := range rules {
		r := &rules[i]
		if err := catalog.ValidateCrossSell(r); err != nil {
			return errors.Wrapf(err, "validate cross-sell %s", r.ID)
		}

		err := repo.Update(ctx, r)
		if errors.Is(err, catalog.ErrCrossSellNotFound) {
			err = repo.Create(ctx, r)
		}
		if err != nil {
			return errors.Wrapf(err, "upsert cross-sell %s", r.ID)
		}

		slog.Info("upserted cross-sell", slog.String("id", r.ID), slog.String("product_id", r.ProductID))
	}

	return nil
}

func seedCoupons(ctx context.Context, store coupon.Store) error {
	slog.Info("seeding sample coupons")

	expire := time.Now().AddDate(1, 0, 0).UTC().Truncate(24 * time.Hour)
	coupons := []coupon.Coupon{
		{
			ID:              "6a3f1c2e-5b7d-4e10-9c1a-000000000001",
			Code:            "WELCOME50",
			Type:            coupon.TypeFixed,
			Amount:          decimal.NewFromInt(50_000),
			ApplyFor:        coupon.ScopeAll,
			MinTotalPrice:   decimal.NewFromInt(200_000),
			ExpireDate:      &expire,
			TotalUsageLimit: 1000,
		},
		{
			ID:              "6a3f1c2e-5b7d-4e10-9c1a-000000000002",
			Code:            "VPS20",
			Type:            coupon.TypePercentage,
			Amount:          decimal.NewFromInt(20),
			ApplyFor:        coupon.ScopeSpecific,
			MaxDiscount:     decimal.NewFromInt(300_000),
			ExpireDate:      &expire,
			TotalUsageLimit: 500,
			SpecificProducts: []coupon.Condition{
				{ProductID: "0b9d7a52-7a0e-4c36-8f1e-3f1d2a1b0001", PackageName: "Pro", PeriodMonths: 12},
			},
		},
	}

	for i := range coupons {
		c := &coupons[i]
		if err := coupon.Validate(c); err != nil {
			return errors.Wrapf(err, "validate coupon %s", c.Code)
		}

		existing, err := store.FindByCode(ctx, c.Code)
		switch {
		case err == nil:
			c.ID = existing.ID
			if err := store.Update(ctx, c); err != nil {
				return errors.Wrapf(err, "update coupon %s", c.Code)
			}
		case errors.Is(err, coupon.ErrNotFound):
			if err := store.Create(ctx, c); err != nil {
				return errors.Wrapf(err, "create coupon %s", c.Code)
			}
		default:
			return errors.Wrapf(err, "find coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("type", string(c.Type)))
	}

	return nil
}
