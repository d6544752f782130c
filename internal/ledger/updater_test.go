package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store/memory"
)

func seedProduct(t *testing.T, repo *memory.Store, qty int) string {
	t.Helper()
	ctx := context.Background()
	price, _ := decimal.NewFromString("3.50")
	product, err := repo.CreateProduct(ctx, domain.Product{Name: "Test Beans", UnitPrice: price})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := repo.UpsertStock(ctx, domain.StockRecord{
		ProductID:         product.ID,
		QuantityOnHand:    qty,
		QuantityAvailable: qty,
	}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return product.ID
}

func TestApplyMovementInbound(t *testing.T) {
	repo := memory.New()
	productID := seedProduct(t, repo, 10)
	updater := NewUpdater(repo)
	ctx := context.Background()

	price, _ := decimal.NewFromString("2.00")
	movement, err := updater.ApplyMovement(ctx, MovementRequest{
		ProductID:     productID,
		Quantity:      5,
		UnitPrice:     price,
		MovementType:  domain.MovementInbound,
		ReferenceType: "receipt_scan",
		ReferenceID:   "rcpt-1",
		Notes:         "OCR processed inbound - Updated stock",
	})
	if err != nil {
		t.Fatalf("apply movement: %v", err)
	}
	if movement.QuantityChange != 5 || movement.QuantityAfter != 15 {
		t.Fatalf("unexpected movement %+v", movement)
	}

	stock, err := repo.GetStock(ctx, productID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.QuantityOnHand != 15 || stock.QuantityAvailable != 15 {
		t.Fatalf("unexpected stock %+v", stock)
	}
	if stock.LastRestockDate == nil {
		t.Fatalf("expected last restock date to be set")
	}
}

func TestApplyMovementOutboundClampsAtZero(t *testing.T) {
	repo := memory.New()
	productID := seedProduct(t, repo, 3)
	updater := NewUpdater(repo)
	ctx := context.Background()

	price, _ := decimal.NewFromString("2.00")
	movement, err := updater.ApplyMovement(ctx, MovementRequest{
		ProductID:    productID,
		Quantity:     10,
		UnitPrice:    price,
		MovementType: domain.MovementOutbound,
	})
	if err != nil {
		t.Fatalf("apply movement: %v", err)
	}
	// The delta is recorded as requested even though the stock floor is 0.
	if movement.QuantityChange != -10 {
		t.Fatalf("expected quantity change -10, got %d", movement.QuantityChange)
	}
	if movement.QuantityAfter != 0 {
		t.Fatalf("expected clamped quantity after 0, got %d", movement.QuantityAfter)
	}

	stock, err := repo.GetStock(ctx, productID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.QuantityOnHand != 0 || stock.QuantityAvailable != 0 {
		t.Fatalf("expected stock clamped at zero, got %+v", stock)
	}
}

func TestApplyMovementMissingStockDefaultsToZero(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	price, _ := decimal.NewFromString("1.25")
	product, err := repo.CreateProduct(ctx, domain.Product{Name: "No Stock Yet", UnitPrice: price})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	updater := NewUpdater(repo)
	movement, err := updater.ApplyMovement(ctx, MovementRequest{
		ProductID:    product.ID,
		Quantity:     4,
		UnitPrice:    price,
		MovementType: domain.MovementInbound,
	})
	if err != nil {
		t.Fatalf("apply movement: %v", err)
	}
	if movement.QuantityAfter != 4 {
		t.Fatalf("expected quantity after 4 from zero base, got %d", movement.QuantityAfter)
	}
}

func TestInboundWritesPurchaseLineOutboundDoesNot(t *testing.T) {
	repo := memory.New()
	productID := seedProduct(t, repo, 10)
	updater := NewUpdater(repo)
	ctx := context.Background()

	price, _ := decimal.NewFromString("2.50")
	if _, err := updater.ApplyMovement(ctx, MovementRequest{
		ProductID:    productID,
		Quantity:     3,
		UnitPrice:    price,
		MovementType: domain.MovementInbound,
	}); err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if _, err := updater.ApplyMovement(ctx, MovementRequest{
		ProductID:    productID,
		Quantity:     2,
		UnitPrice:    price,
		MovementType: domain.MovementOutbound,
	}); err != nil {
		t.Fatalf("outbound: %v", err)
	}

	movements, err := repo.ListMovements(ctx, productID, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}

	if got := repo.PurchaseTransactionCount(); got != 1 {
		t.Fatalf("expected exactly 1 purchase line (inbound only), got %d", got)
	}
}

func TestApplyMovementRejectsInvalidRequest(t *testing.T) {
	repo := memory.New()
	updater := NewUpdater(repo)
	ctx := context.Background()

	if _, err := updater.ApplyMovement(ctx, MovementRequest{ProductID: "p", Quantity: 0, MovementType: domain.MovementInbound}); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
	if _, err := updater.ApplyMovement(ctx, MovementRequest{ProductID: "p", Quantity: 1, MovementType: "sideways"}); err == nil {
		t.Fatalf("expected error for unknown movement type")
	}
}
