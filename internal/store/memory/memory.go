package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	productsByID    map[string]domain.Product
	productOrder    []string
	stockByProduct  map[string]domain.StockRecord
	movements       []domain.StockMovement
	purchases       []domain.PurchaseTransaction
	receiptsByID    map[string]domain.ReceiptRecord
	receiptOrder    []string
	extractions     map[string]domain.Extraction
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		productsByID:    make(map[string]domain.Product),
		stockByProduct:  make(map[string]domain.StockRecord),
		movements:       make([]domain.StockMovement, 0, 128),
		purchases:       make([]domain.PurchaseTransaction, 0, 64),
		receiptsByID:    make(map[string]domain.ReceiptRecord),
		extractions:     make(map[string]domain.Extraction),
		usersByUsername: seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()

	now := time.Now().UTC()
	seed := []struct {
		name  string
		price string
		qty   int
	}{
		{"Arabica Coffee Beans 1kg", "18.50", 24},
		{"Whole Milk 1L", "2.10", 60},
		{"Blue Widget", "4.25", 15},
		{"Widget", "5.00", 8},
		{"Sourdough Bread", "6.75", 0},
		{"Olive Oil 500ml", "9.90", 42},
	}
	for _, p := range seed {
		price, _ := decimal.NewFromString(p.price)
		product := domain.Product{
			ID:        xid.New("prod"),
			Name:      p.name,
			SKU:       xid.NewSKU(),
			UnitPrice: price,
			CreatedAt: now,
		}
		s.productsByID[product.ID] = product
		s.productOrder = append(s.productOrder, product.ID)
		s.stockByProduct[product.ID] = domain.StockRecord{
			ProductID:         product.ID,
			QuantityOnHand:    p.qty,
			QuantityAvailable: p.qty,
		}
	}
	return s
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, s.productsByID[id])
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.productsByID[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) FindProductsByName(ctx context.Context, pattern string, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 5
	}
	needle := strings.ToLower(strings.TrimSpace(pattern))
	if needle == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Product, 0, limit)
	for _, p := range s.productsByID {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matches = append(matches, p)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.SKU == "" {
		product.SKU = xid.NewSKU()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.productsByID[product.ID] = product
	s.productOrder = append(s.productOrder, product.ID)
	return &product, nil
}

func (s *Store) UpdateProductPrice(ctx context.Context, productID string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.productsByID[productID]
	if !ok {
		return store.ErrNotFound
	}
	product.UnitPrice = price
	s.productsByID[productID] = product
	return nil
}

func (s *Store) GetStock(ctx context.Context, productID string) (*domain.StockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.stockByProduct[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &record, nil
}

func (s *Store) UpsertStock(ctx context.Context, record domain.StockRecord) error {
	if record.ProductID == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stockByProduct[record.ProductID] = record
	return nil
}

func (s *Store) CreateMovement(ctx context.Context, movement domain.StockMovement) error {
	if movement.ProductID == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	s.movements = append(s.movements, movement)
	return nil
}

func (s *Store) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockMovement, 0, limit)
	for i := len(s.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if s.movements[i].ProductID == productID {
			out = append(out, s.movements[i])
		}
	}
	return out, nil
}

func (s *Store) CreatePurchaseTransaction(ctx context.Context, tx domain.PurchaseTransaction) error {
	if tx.ProductID == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = xid.New("ptx")
	}
	if tx.TransactionDate.IsZero() {
		tx.TransactionDate = time.Now().UTC()
	}
	s.purchases = append(s.purchases, tx)
	return nil
}

// PurchaseTransactionCount reports how many purchase lines have been
// recorded. Only used by tests.
func (s *Store) PurchaseTransactionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.purchases)
}

func (s *Store) CreateReceipt(ctx context.Context, receipt domain.ReceiptRecord) error {
	if receipt.ID == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.receiptsByID[receipt.ID] = receipt
	s.receiptOrder = append(s.receiptOrder, receipt.ID)
	return nil
}

func (s *Store) CreateExtraction(ctx context.Context, extraction domain.Extraction) error {
	if extraction.ReceiptID == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.receiptsByID[extraction.ReceiptID]; !ok {
		return store.ErrNotFound
	}
	s.extractions[extraction.ReceiptID] = extraction
	return nil
}

func (s *Store) GetReceipt(ctx context.Context, receiptID string) (*domain.ReceiptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, ok := s.receiptsByID[receiptID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &receipt, nil
}

func (s *Store) ListReceiptHistory(ctx context.Context, limit int) ([]domain.ReceiptSummary, error) {
	if limit < 1 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ReceiptSummary, 0, limit)
	for i := len(s.receiptOrder) - 1; i >= 0 && len(out) < limit; i-- {
		receipt := s.receiptsByID[s.receiptOrder[i]]
		summary := domain.ReceiptSummary{
			ReceiptID:  receipt.ID,
			ImageURL:   receipt.ImageURL,
			UploadedAt: receipt.UploadedAt,
		}
		if extraction, ok := s.extractions[receipt.ID]; ok {
			summary.StoreName = extraction.Data.StoreName
			summary.ItemCount = len(extraction.Data.Items)
			summary.TotalAmount = extraction.Data.TotalAmount
			summary.ConfidenceScore = extraction.ConfidenceScore
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
