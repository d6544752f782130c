package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/cache"
	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

const lookupLimit = 5

// priceDriftTolerance is the maximum difference between a stored unit price
// and a receipt price before the stored price is overwritten. The receipt is
// treated as the source of truth for price drift.
var priceDriftTolerance = decimal.New(1, -2)

type Matcher struct {
	repo  store.Repository
	cache cache.ProductLookupCache
	ttl   time.Duration
}

func NewMatcher(repo store.Repository, lookupCache cache.ProductLookupCache, ttl time.Duration) *Matcher {
	if lookupCache == nil {
		lookupCache = cache.NoopProductLookupCache{}
	}
	return &Matcher{repo: repo, cache: lookupCache, ttl: ttl}
}

// Match resolves an item name to a catalog product. Unknown names create a
// new product with a generated SKU, no category, and a zero-quantity stock
// record; isNew reports that path. For known products, a parsed price
// differing from the stored price by more than 0.01 overwrites it.
func (m *Matcher) Match(ctx context.Context, name string, parsedPrice decimal.Decimal) (*domain.Product, bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, false, store.ErrInvalidInput
	}

	key := cacheKey(trimmed)
	if cached, ok, err := m.cache.Get(ctx, key); err != nil {
		log.Printf("[catalog] WARN lookup cache get failed: %v", err)
	} else if ok {
		return m.reconcilePrice(ctx, cached, parsedPrice, key)
	}

	candidates, err := m.repo.FindProductsByName(ctx, trimmed, lookupLimit)
	if err != nil {
		return nil, false, fmt.Errorf("find products: %w", err)
	}

	if len(candidates) > 0 {
		best := candidates[0]
		for _, candidate := range candidates {
			if strings.EqualFold(candidate.Name, trimmed) {
				best = candidate
				break
			}
		}
		if err := m.cache.Set(ctx, key, &best, m.ttl); err != nil {
			log.Printf("[catalog] WARN lookup cache set failed: %v", err)
		}
		return m.reconcilePrice(ctx, &best, parsedPrice, key)
	}

	product, err := m.repo.CreateProduct(ctx, domain.Product{
		Name:      trimmed,
		SKU:       xid.NewSKU(),
		UnitPrice: parsedPrice,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create product: %w", err)
	}
	if err := m.repo.UpsertStock(ctx, domain.StockRecord{ProductID: product.ID}); err != nil {
		return nil, false, fmt.Errorf("create stock record: %w", err)
	}
	if err := m.cache.Set(ctx, key, product, m.ttl); err != nil {
		log.Printf("[catalog] WARN lookup cache set failed: %v", err)
	}

	log.Printf("[catalog] created product %s (%s)", product.ID, product.Name)
	return product, true, nil
}

func (m *Matcher) reconcilePrice(ctx context.Context, product *domain.Product, parsedPrice decimal.Decimal, key string) (*domain.Product, bool, error) {
	if product.UnitPrice.Sub(parsedPrice).Abs().GreaterThan(priceDriftTolerance) {
		if err := m.repo.UpdateProductPrice(ctx, product.ID, parsedPrice); err != nil {
			return nil, false, fmt.Errorf("update product price: %w", err)
		}
		updated := *product
		updated.UnitPrice = parsedPrice
		if err := m.cache.Set(ctx, key, &updated, m.ttl); err != nil {
			log.Printf("[catalog] WARN lookup cache set failed: %v", err)
		}
		log.Printf("[catalog] price drift on %s: %s -> %s", product.ID, product.UnitPrice, parsedPrice)
		return &updated, false, nil
	}
	return product, false, nil
}

func cacheKey(name string) string {
	return "catalog:lookup:" + strings.ToLower(name)
}
