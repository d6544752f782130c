package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"inventra/backend/internal/domain"
	"inventra/backend/internal/store"
	"inventra/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, sku, unit_price::text, category_id, created_at
		FROM products
		ORDER BY product_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT product_id, product_name, sku, unit_price::text, category_id, created_at
		FROM products
		WHERE product_id = $1
	`, productID)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindProductsByName(ctx context.Context, pattern string, limit int) ([]domain.Product, error) {
	if pattern == "" {
		return nil, store.ErrInvalidInput
	}
	if limit < 1 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, sku, unit_price::text, category_id, created_at
		FROM products
		WHERE product_name ILIKE '%' || $1 || '%'
		ORDER BY product_name
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.SKU == "" {
		product.SKU = xid.NewSKU()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (product_id, product_name, sku, unit_price, category_id, created_at)
		VALUES ($1,$2,$3,$4::numeric,$5,$6)
	`, product.ID, product.Name, product.SKU, product.UnitPrice.String(), product.CategoryID, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProductPrice(ctx context.Context, productID string, price decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET unit_price = $2::numeric
		WHERE product_id = $1
	`, productID, price.String())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetStock(ctx context.Context, productID string) (*domain.StockRecord, error) {
	var record domain.StockRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT product_id, quantity_on_hand, quantity_available, quantity_reserved, last_restock_date
		FROM inventory_stock
		WHERE product_id = $1
	`, productID).Scan(&record.ProductID, &record.QuantityOnHand, &record.QuantityAvailable, &record.QuantityReserved, &record.LastRestockDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *Store) UpsertStock(ctx context.Context, record domain.StockRecord) error {
	if record.ProductID == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_stock (product_id, quantity_on_hand, quantity_available, quantity_reserved, last_restock_date)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (product_id) DO UPDATE
		SET quantity_on_hand = EXCLUDED.quantity_on_hand,
		    quantity_available = EXCLUDED.quantity_available,
		    quantity_reserved = EXCLUDED.quantity_reserved,
		    last_restock_date = EXCLUDED.last_restock_date
	`, record.ProductID, record.QuantityOnHand, record.QuantityAvailable, record.QuantityReserved, record.LastRestockDate)
	return err
}

func (s *Store) CreateMovement(ctx context.Context, movement domain.StockMovement) error {
	if movement.ProductID == "" {
		return store.ErrInvalidInput
	}
	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_movements (movement_id, product_id, movement_type, quantity_change, quantity_after, reference_type, reference_id, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, movement.ID, movement.ProductID, movement.MovementType, movement.QuantityChange, movement.QuantityAfter, movement.ReferenceType, movement.ReferenceID, movement.Notes, movement.CreatedAt)
	return err
}

func (s *Store) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT movement_id, product_id, movement_type, quantity_change, quantity_after, reference_type, reference_id, notes, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.MovementType, &m.QuantityChange, &m.QuantityAfter, &m.ReferenceType, &m.ReferenceID, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) CreatePurchaseTransaction(ctx context.Context, tx domain.PurchaseTransaction) error {
	if tx.ProductID == "" {
		return store.ErrInvalidInput
	}
	if tx.ID == "" {
		tx.ID = xid.New("ptx")
	}
	if tx.TransactionDate.IsZero() {
		tx.TransactionDate = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inbound_transactions (transaction_id, product_id, quantity, unit_price, line_total, transaction_date)
		VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6)
	`, tx.ID, tx.ProductID, tx.Quantity, tx.UnitPrice.String(), tx.LineTotal.String(), tx.TransactionDate)
	return err
}

func (s *Store) CreateReceipt(ctx context.Context, receipt domain.ReceiptRecord) error {
	if receipt.ID == "" {
		return store.ErrInvalidInput
	}
	if receipt.UploadedAt.IsZero() {
		receipt.UploadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipt_images (receipt_id, image_url, uploaded_at, processed_by)
		VALUES ($1,$2,$3,$4)
	`, receipt.ID, nullableString(receipt.ImageURL), receipt.UploadedAt, receipt.ProcessedBy)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) CreateExtraction(ctx context.Context, extraction domain.Extraction) error {
	if extraction.ReceiptID == "" {
		return store.ErrInvalidInput
	}
	if extraction.ExtractedAt.IsZero() {
		extraction.ExtractedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(extraction.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ocr_extracted_data (receipt_id, extracted_json, confidence_score, extracted_at)
		VALUES ($1,$2,$3,$4)
	`, extraction.ReceiptID, payload, extraction.ConfidenceScore, extraction.ExtractedAt)
	return err
}

func (s *Store) GetReceipt(ctx context.Context, receiptID string) (*domain.ReceiptRecord, error) {
	var receipt domain.ReceiptRecord
	var imageURL sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT receipt_id, image_url, uploaded_at, processed_by
		FROM receipt_images
		WHERE receipt_id = $1
	`, receiptID).Scan(&receipt.ID, &imageURL, &receipt.UploadedAt, &receipt.ProcessedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	receipt.ImageURL = imageURL.String
	receipt.UploadedAt = receipt.UploadedAt.UTC()
	return &receipt, nil
}

func (s *Store) ListReceiptHistory(ctx context.Context, limit int) ([]domain.ReceiptSummary, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.receipt_id, r.image_url, r.uploaded_at, e.extracted_json, e.confidence_score
		FROM receipt_images r
		LEFT JOIN ocr_extracted_data e ON e.receipt_id = r.receipt_id
		ORDER BY r.uploaded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.ReceiptSummary, 0, limit)
	for rows.Next() {
		var summary domain.ReceiptSummary
		var imageURL sql.NullString
		var payload []byte
		var confidence sql.NullFloat64
		if err := rows.Scan(&summary.ReceiptID, &imageURL, &summary.UploadedAt, &payload, &confidence); err != nil {
			return nil, err
		}
		summary.ImageURL = imageURL.String
		summary.UploadedAt = summary.UploadedAt.UTC()
		summary.ConfidenceScore = confidence.Float64
		if len(payload) > 0 {
			var parsed domain.ParsedReceipt
			if err := json.Unmarshal(payload, &parsed); err == nil {
				summary.StoreName = parsed.StoreName
				summary.ItemCount = len(parsed.Items)
				summary.TotalAmount = parsed.TotalAmount
			}
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var price string
	var categoryID sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &price, &categoryID, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, err
	}
	p.UnitPrice = parsed
	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
