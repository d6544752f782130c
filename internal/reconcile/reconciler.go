package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"inventra/backend/internal/blob"
	"inventra/backend/internal/catalog"
	"inventra/backend/internal/domain"
	"inventra/backend/internal/ledger"
	"inventra/backend/internal/ocr"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

var (
	ErrExtractionFailed = errors.New("text extraction failed")
	ErrNoValidItems     = errors.New("no valid items to process")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Reconciler drives a receipt from image to inventory: extract text, parse,
// persist the receipt artifacts, and after user review apply each confirmed
// item to the catalog and stock ledger.
type Reconciler struct {
	repo     store.Repository
	engine   ocr.Engine
	matcher  *catalog.Matcher
	ledger   *ledger.Updater
	blobs    blob.Storage
	language string
}

func New(repo store.Repository, engine ocr.Engine, matcher *catalog.Matcher, updater *ledger.Updater, blobs blob.Storage, language string) *Reconciler {
	if language == "" {
		language = "eng"
	}
	return &Reconciler{
		repo:     repo,
		engine:   engine,
		matcher:  matcher,
		ledger:   updater,
		blobs:    blobs,
		language: language,
	}
}

// ProcessReceipt extracts and parses a receipt image and persists the
// receipt record plus its extraction. An OCR failure aborts with nothing
// saved; a storage upload failure degrades to an empty image URL. Zero
// parsed items is a valid outcome, surfaced for manual review.
func (r *Reconciler) ProcessReceipt(ctx context.Context, filename string, image []byte, receiptType string) (*domain.ProcessReceiptResponse, error) {
	if len(image) == 0 {
		return nil, store.ErrInvalidInput
	}
	if receiptType != domain.MovementInbound && receiptType != domain.MovementOutbound {
		return nil, store.ErrInvalidInput
	}

	result, err := r.engine.Recognize(ctx, image, r.language, func(percent int) {
		log.Printf("[reconcile] recognizing text: %d%%", percent)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	parsed := ocr.Parse(result.Text)

	imageURL := ""
	if r.blobs != nil {
		url, err := r.blobs.Upload(ctx, filename, image)
		if err != nil {
			// Tolerated: the receipt data is still worth saving.
			log.Printf("[reconcile] WARN image upload failed: %v", err)
		} else {
			imageURL = url
		}
	}

	actor, _ := ActorFromContext(ctx)
	receipt := domain.ReceiptRecord{
		ID:          xid.New("rcpt"),
		ImageURL:    imageURL,
		UploadedAt:  time.Now().UTC(),
		ProcessedBy: actor.Username,
	}
	if err := r.repo.CreateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("create receipt record: %w", err)
	}
	if err := r.repo.CreateExtraction(ctx, domain.Extraction{
		ReceiptID:       receipt.ID,
		Data:            parsed,
		ConfidenceScore: result.Confidence,
		ExtractedAt:     receipt.UploadedAt,
	}); err != nil {
		return nil, fmt.Errorf("create extraction record: %w", err)
	}

	log.Printf("[reconcile] processed receipt %s: %d items, total %s", receipt.ID, len(parsed.Items), parsed.TotalAmount)
	return &domain.ProcessReceiptResponse{
		ReceiptID:       receipt.ID,
		ReceiptType:     receiptType,
		ImageURL:        imageURL,
		Parsed:          parsed,
		ConfidenceScore: result.Confidence,
	}, nil
}

// ConfirmReceipt applies the user-reviewed item list against the catalog and
// stock ledger, one item at a time in list order. The raw parse is not
// consulted again; the reviewed values win. Items are not applied
// transactionally: a failure aborts the remainder and leaves earlier items
// applied.
func (r *Reconciler) ConfirmReceipt(ctx context.Context, receiptID string, req domain.ConfirmReceiptRequest) (*domain.ConfirmReceiptResponse, error) {
	if req.ReceiptType != domain.MovementInbound && req.ReceiptType != domain.MovementOutbound {
		return nil, store.ErrInvalidInput
	}
	if _, err := r.repo.GetReceipt(ctx, receiptID); err != nil {
		return nil, fmt.Errorf("lookup receipt: %w", err)
	}

	items := validItems(req.Items)
	if len(items) == 0 {
		return nil, ErrNoValidItems
	}

	applied := 0
	newProducts := 0
	for _, item := range items {
		product, isNew, err := r.matcher.Match(ctx, item.Name, item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("item %q after %d applied: %w", item.Name, applied, err)
		}
		if isNew {
			newProducts++
		}

		detail := "Updated stock"
		if isNew {
			detail = "New product"
		}
		_, err = r.ledger.ApplyMovement(ctx, ledger.MovementRequest{
			ProductID:     product.ID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			MovementType:  req.ReceiptType,
			ReferenceType: "receipt",
			ReferenceID:   receiptID,
			Notes:         fmt.Sprintf("OCR processed %s - %s", req.ReceiptType, detail),
		})
		if err != nil {
			return nil, fmt.Errorf("item %q after %d applied: %w", item.Name, applied, err)
		}
		applied++
	}

	log.Printf("[reconcile] confirmed receipt %s: %d items (%d new products)", receiptID, applied, newProducts)
	return &domain.ConfirmReceiptResponse{
		ReceiptID:      receiptID,
		ItemsProcessed: applied,
		NewProducts:    newProducts,
		Message:        fmt.Sprintf("Successfully processed %d items", applied),
	}, nil
}

func (r *Reconciler) History(ctx context.Context, limit int) ([]domain.ReceiptSummary, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return r.repo.ListReceiptHistory(ctx, limit)
}

func (r *Reconciler) Products(ctx context.Context) ([]domain.Product, error) {
	return r.repo.ListProducts(ctx)
}

func (r *Reconciler) Movements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if productID == "" {
		return nil, store.ErrInvalidInput
	}
	if _, err := r.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return r.repo.ListMovements(ctx, productID, limit)
}

const lowStockThreshold = 10

// Inventory lists all products with stock levels and a derived status:
// out_of_stock at zero available, low_stock below 10.
func (r *Reconciler) Inventory(ctx context.Context) ([]domain.InventoryItem, error) {
	products, err := r.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]domain.InventoryItem, 0, len(products))
	for _, product := range products {
		record, err := r.repo.GetStock(ctx, product.ID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			record = &domain.StockRecord{ProductID: product.ID}
		}
		items = append(items, domain.InventoryItem{
			Product: product,
			Stock:   *record,
			Status:  stockStatus(record.QuantityAvailable),
		})
	}
	return items, nil
}

func stockStatus(available int) string {
	switch {
	case available == 0:
		return domain.StockStatusOut
	case available < lowStockThreshold:
		return domain.StockStatusLow
	default:
		return domain.StockStatusIn
	}
}

// validItems drops reviewed rows that cannot be processed: blank names,
// non-positive quantities, negative prices.
func validItems(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" || item.Quantity < 1 || item.UnitPrice.IsNegative() {
			continue
		}
		item.Name = name
		out = append(out, item)
	}
	return out
}
