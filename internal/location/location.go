// Package location serves province, district and ward lookups from the
// hosting API through a cache.
package location

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cache"
)

const namespace = "locations"

// DefaultTTL is how long a lookup stays cached. Administrative divisions
// change rarely.
const DefaultTTL = 24 * time.Hour

// Source fetches location lists from upstream.
type Source interface {
	Provinces(ctx context.Context) (jx.Raw, error)
	Districts(ctx context.Context, province string) (jx.Raw, error)
	Wards(ctx context.Context, province, district string) (jx.Raw, error)
}

// Cache stores raw responses.
type Cache interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
}

// Service is a cache-aside reader over Source. Cache failures degrade to
// upstream reads.
type Service struct {
	src   Source
	cache Cache
	ttl   time.Duration
}

// NewService creates a Service. A non-positive ttl selects DefaultTTL.
func NewService(src Source, c Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{src: src, cache: c, ttl: ttl}
}

// Provinces lists provinces.
func (s *Service) Provinces(ctx context.Context) (jx.Raw, error) {
	return s.cached(ctx, "provinces", func(ctx context.Context) (jx.Raw, error) {
		return s.src.Provinces(ctx)
	})
}

// Districts lists the districts of province.
func (s *Service) Districts(ctx context.Context, province string) (jx.Raw, error) {
	return s.cached(ctx, "districts:"+province, func(ctx context.Context) (jx.Raw, error) {
		return s.src.Districts(ctx, province)
	})
}

// Wards lists the wards of a district.
func (s *Service) Wards(ctx context.Context, province, district string) (jx.Raw, error) {
	return s.cached(ctx, "wards:"+province+":"+district, func(ctx context.Context) (jx.Raw, error) {
		return s.src.Wards(ctx, province, district)
	})
}

func (s *Service) cached(ctx context.Context, key string, fetch func(context.Context) (jx.Raw, error)) (jx.Raw, error) {
	lg := zctx.From(ctx)

	data, err := s.cache.Get(ctx, namespace, key)
	switch {
	case err == nil:
		return jx.Raw(data), nil
	case !errors.Is(err, cache.ErrMiss):
		lg.Warn("Location cache read failed", zap.String("key", key), zap.Error(err))
	}

	raw, err := fetch(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", key)
	}
	if err := s.cache.Set(ctx, namespace, key, raw, s.ttl); err != nil {
		lg.Warn("Location cache write failed", zap.String("key", key), zap.Error(err))
	}
	return raw, nil
}
