package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	// FindProductsByName matches case-insensitively on a substring of the
	// product name, ordered by name, capped at limit.
	FindProductsByName(ctx context.Context, pattern string, limit int) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProductPrice(ctx context.Context, productID string, price decimal.Decimal) error
	GetStock(ctx context.Context, productID string) (*domain.StockRecord, error)
	UpsertStock(ctx context.Context, record domain.StockRecord) error
	CreateMovement(ctx context.Context, movement domain.StockMovement) error
	ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)
	CreatePurchaseTransaction(ctx context.Context, tx domain.PurchaseTransaction) error
	CreateReceipt(ctx context.Context, receipt domain.ReceiptRecord) error
	CreateExtraction(ctx context.Context, extraction domain.Extraction) error
	GetReceipt(ctx context.Context, receiptID string) (*domain.ReceiptRecord, error)
	ListReceiptHistory(ctx context.Context, limit int) ([]domain.ReceiptSummary, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
