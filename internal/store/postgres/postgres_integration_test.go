package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/domain"
)

func TestProductLifecycleRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("INVENTRA_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set INVENTRA_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	name := fmt.Sprintf("Integration Widget %d", stamp)

	price, _ := decimal.NewFromString("4.25")
	created, err := s.CreateProduct(ctx, domain.Product{Name: name, UnitPrice: price})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_movements WHERE product_id = $1`, created.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_stock WHERE product_id = $1`, created.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, created.ID)
	})

	matches, err := s.FindProductsByName(ctx, fmt.Sprintf("widget %d", stamp), 5)
	if err != nil {
		t.Fatalf("find products: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != created.ID {
		t.Fatalf("expected case-insensitive match for created product, got %v", matches)
	}

	newPrice, _ := decimal.NewFromString("4.75")
	if err := s.UpdateProductPrice(ctx, created.ID, newPrice); err != nil {
		t.Fatalf("update price: %v", err)
	}
	got, err := s.GetProduct(ctx, created.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !got.UnitPrice.Equal(newPrice) {
		t.Fatalf("expected price 4.75, got %s", got.UnitPrice)
	}

	now := time.Now().UTC()
	if err := s.UpsertStock(ctx, domain.StockRecord{ProductID: created.ID, QuantityOnHand: 7, QuantityAvailable: 7, LastRestockDate: &now}); err != nil {
		t.Fatalf("upsert stock: %v", err)
	}
	stock, err := s.GetStock(ctx, created.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.QuantityOnHand != 7 || stock.LastRestockDate == nil {
		t.Fatalf("unexpected stock record %+v", stock)
	}

	if err := s.CreateMovement(ctx, domain.StockMovement{
		ProductID:      created.ID,
		MovementType:   domain.MovementInbound,
		QuantityChange: 7,
		QuantityAfter:  7,
		ReferenceType:  "receipt_scan",
		ReferenceID:    "rcpt-test",
	}); err != nil {
		t.Fatalf("create movement: %v", err)
	}
	movements, err := s.ListMovements(ctx, created.ID, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 || movements[0].QuantityAfter != 7 {
		t.Fatalf("unexpected movements %v", movements)
	}
}
