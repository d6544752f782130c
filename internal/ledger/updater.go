package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

type MovementRequest struct {
	ProductID     string
	Quantity      int
	UnitPrice     decimal.Decimal
	MovementType  string
	ReferenceType string
	ReferenceID   string
	Notes         string
}

type Updater struct {
	repo store.Repository
}

func NewUpdater(repo store.Repository) *Updater {
	return &Updater{repo: repo}
}

// ApplyMovement applies a quantity delta to a product's stock record and
// appends a movement entry. On-hand and available quantities are clamped at
// zero; the reserved quantity is never touched. The stock write and the
// movement append are two separate writes, not one transaction.
func (u *Updater) ApplyMovement(ctx context.Context, req MovementRequest) (*domain.StockMovement, error) {
	if req.ProductID == "" || req.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}
	if req.MovementType != domain.MovementInbound && req.MovementType != domain.MovementOutbound {
		return nil, store.ErrInvalidInput
	}

	delta := req.Quantity
	if req.MovementType == domain.MovementOutbound {
		delta = -req.Quantity
	}

	record, err := u.repo.GetStock(ctx, req.ProductID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get stock: %w", err)
		}
		record = &domain.StockRecord{ProductID: req.ProductID}
	}

	now := time.Now().UTC()
	record.QuantityOnHand = clamp(record.QuantityOnHand + delta)
	record.QuantityAvailable = clamp(record.QuantityAvailable + delta)
	record.LastRestockDate = &now

	if err := u.repo.UpsertStock(ctx, *record); err != nil {
		return nil, fmt.Errorf("upsert stock: %w", err)
	}

	movement := domain.StockMovement{
		ID:             xid.New("mov"),
		ProductID:      req.ProductID,
		MovementType:   req.MovementType,
		QuantityChange: delta,
		QuantityAfter:  record.QuantityOnHand,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		Notes:          req.Notes,
		CreatedAt:      now,
	}
	if err := u.repo.CreateMovement(ctx, movement); err != nil {
		return nil, fmt.Errorf("create movement: %w", err)
	}

	// Only inbound movements record a purchase line. Outbound movements
	// have no counterpart record.
	if req.MovementType == domain.MovementInbound {
		tx := domain.PurchaseTransaction{
			ID:              xid.New("ptx"),
			ProductID:       req.ProductID,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			LineTotal:       req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
			TransactionDate: now,
		}
		if err := u.repo.CreatePurchaseTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("create purchase transaction: %w", err)
		}
	}

	return &movement, nil
}

func clamp(qty int) int {
	if qty < 0 {
		return 0
	}
	return qty
}
