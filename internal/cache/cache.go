package cache

import (
	"context"
	"time"

	"inventra/backend/internal/domain"
)

type ProductLookupCache interface {
	Get(ctx context.Context, key string) (*domain.Product, bool, error)
	Set(ctx context.Context, key string, value *domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopProductLookupCache struct{}

func (NoopProductLookupCache) Get(_ context.Context, _ string) (*domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopProductLookupCache) Set(_ context.Context, _ string, _ *domain.Product, _ time.Duration) error {
	return nil
}

func (NoopProductLookupCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
