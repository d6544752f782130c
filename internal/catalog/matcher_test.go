package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/store/memory"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestMatchPrefersExactNameOverSubstring(t *testing.T) {
	repo := memory.NewSeeded()
	matcher := NewMatcher(repo, nil, time.Minute)

	product, isNew, err := matcher.Match(context.Background(), "Widget", dec(t, "5.00"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if isNew {
		t.Fatalf("expected existing product, got isNew")
	}
	// Both "Blue Widget" and "Widget" contain the query; the exact
	// case-insensitive name wins.
	if product.Name != "Widget" {
		t.Fatalf("expected exact match Widget, got %q", product.Name)
	}
}

func TestMatchFallsBackToFirstCandidate(t *testing.T) {
	repo := memory.NewSeeded()
	matcher := NewMatcher(repo, nil, time.Minute)

	product, isNew, err := matcher.Match(context.Background(), "widg", dec(t, "4.25"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if isNew {
		t.Fatalf("expected existing product, got isNew")
	}
	if product.Name != "Blue Widget" {
		t.Fatalf("expected first candidate Blue Widget, got %q", product.Name)
	}
}

func TestMatchCreatesUnknownProductWithZeroStock(t *testing.T) {
	repo := memory.NewSeeded()
	matcher := NewMatcher(repo, nil, time.Minute)
	ctx := context.Background()

	product, isNew, err := matcher.Match(ctx, "Dragonfruit", dec(t, "7.80"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !isNew {
		t.Fatalf("expected new product")
	}
	if product.ID == "" || product.SKU == "" {
		t.Fatalf("expected generated id and sku, got %+v", product)
	}
	if product.CategoryID != nil {
		t.Fatalf("expected nil category for scanned product")
	}
	if !product.UnitPrice.Equal(dec(t, "7.80")) {
		t.Fatalf("expected parsed price on new product, got %s", product.UnitPrice)
	}

	stock, err := repo.GetStock(ctx, product.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.QuantityOnHand != 0 || stock.QuantityAvailable != 0 || stock.QuantityReserved != 0 {
		t.Fatalf("expected zero-quantity stock record, got %+v", stock)
	}
}

func TestMatchUpdatesPriceOnDrift(t *testing.T) {
	repo := memory.NewSeeded()
	matcher := NewMatcher(repo, nil, time.Minute)
	ctx := context.Background()

	product, _, err := matcher.Match(ctx, "Widget", dec(t, "5.75"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !product.UnitPrice.Equal(dec(t, "5.75")) {
		t.Fatalf("expected drifted price on returned product, got %s", product.UnitPrice)
	}

	stored, err := repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !stored.UnitPrice.Equal(dec(t, "5.75")) {
		t.Fatalf("expected stored price 5.75, got %s", stored.UnitPrice)
	}
}

func TestMatchToleratesSmallPriceDifference(t *testing.T) {
	repo := memory.NewSeeded()
	matcher := NewMatcher(repo, nil, time.Minute)
	ctx := context.Background()

	// A difference of exactly 0.01 stays within tolerance.
	product, _, err := matcher.Match(ctx, "Widget", dec(t, "5.01"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	stored, err := repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !stored.UnitPrice.Equal(dec(t, "5.00")) {
		t.Fatalf("expected stored price untouched at 5.00, got %s", stored.UnitPrice)
	}
}

func TestMatchRejectsEmptyName(t *testing.T) {
	repo := memory.NewSeeded()
	matcher := NewMatcher(repo, nil, time.Minute)

	if _, _, err := matcher.Match(context.Background(), "   ", dec(t, "1.00")); err == nil {
		t.Fatalf("expected error for blank name")
	}
}
