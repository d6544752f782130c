package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         string          `json:"product_id"`
	Name       string          `json:"product_name"`
	SKU        string          `json:"sku"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CategoryID *string         `json:"category_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type StockRecord struct {
	ProductID         string     `json:"product_id"`
	QuantityOnHand    int        `json:"quantity_on_hand"`
	QuantityAvailable int        `json:"quantity_available"`
	QuantityReserved  int        `json:"quantity_reserved"`
	LastRestockDate   *time.Time `json:"last_restock_date,omitempty"`
}

// StockMovement is an append-only ledger entry. Rows are never updated or
// deleted after creation.
type StockMovement struct {
	ID             string    `json:"movement_id"`
	ProductID      string    `json:"product_id"`
	MovementType   string    `json:"movement_type"`
	QuantityChange int       `json:"quantity_change"`
	QuantityAfter  int       `json:"quantity_after"`
	ReferenceType  string    `json:"reference_type"`
	ReferenceID    string    `json:"reference_id"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

// PurchaseTransaction itemizes an inbound stock movement. Outbound movements
// have no transaction-line counterpart.
type PurchaseTransaction struct {
	ID              string          `json:"transaction_id"`
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
	TransactionDate time.Time       `json:"transaction_date"`
}

type LineItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

type ParsedReceipt struct {
	StoreName   string          `json:"store_name"`
	ReceiptDate string          `json:"receipt_date"`
	Items       []LineItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	RawText     string          `json:"raw_text"`
}

type ReceiptRecord struct {
	ID          string    `json:"receipt_id"`
	ImageURL    string    `json:"image_url,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ProcessedBy string    `json:"processed_by"`
}

type Extraction struct {
	ReceiptID       string        `json:"receipt_id"`
	Data            ParsedReceipt `json:"data"`
	ConfidenceScore float64       `json:"confidence_score"`
	ExtractedAt     time.Time     `json:"extracted_at"`
}

type ReceiptSummary struct {
	ReceiptID       string          `json:"receipt_id"`
	StoreName       string          `json:"store_name,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"`
	UploadedAt      time.Time       `json:"uploaded_at"`
	ItemCount       int             `json:"item_count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ConfidenceScore float64         `json:"confidence_score"`
}

type ProcessReceiptResponse struct {
	ReceiptID       string        `json:"receipt_id"`
	ReceiptType     string        `json:"receipt_type"`
	ImageURL        string        `json:"image_url,omitempty"`
	Parsed          ParsedReceipt `json:"parsed"`
	ConfidenceScore float64       `json:"confidence_score"`
}

type ConfirmReceiptRequest struct {
	ReceiptType string     `json:"receipt_type"`
	Items       []LineItem `json:"items"`
}

type ConfirmReceiptResponse struct {
	ReceiptID      string `json:"receipt_id"`
	ItemsProcessed int    `json:"items_processed"`
	NewProducts    int    `json:"new_products"`
	Message        string `json:"message"`
}

type InventoryItem struct {
	Product Product     `json:"product"`
	Stock   StockRecord `json:"stock"`
	Status  string      `json:"status"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	MovementInbound  = "inbound"
	MovementOutbound = "outbound"
)

const (
	StockStatusIn  = "in_stock"
	StockStatusLow = "low_stock"
	StockStatusOut = "out_of_stock"
)
