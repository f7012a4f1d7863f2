package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// productStore implements the durable product repository over sqlite.
// Three collections share one schema: the primary products table, the
// offline queue and the failed-delivery queue, all keyed by unique_id.
type productStore struct {
	db *sql.DB
}

var productTables = []string{"products", "offline_products", "failed_products"}

// NewProductStore opens (and if needed creates) the product database
func NewProductStore(dbPath string) (repo.ProductRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, table := range productTables {
		_, err = db.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				unique_id TEXT PRIMARY KEY,
				channel_id INTEGER NOT NULL,
				message_id INTEGER NOT NULL,
				timestamp INTEGER NOT NULL,
				channel_name TEXT NOT NULL,
				name TEXT NOT NULL,
				short_description TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				images TEXT NOT NULL DEFAULT '[]',
				current_price REAL,
				old_price REAL,
				extraction_method TEXT NOT NULL
			)
		`, table))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s table: %w", table, err)
		}
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_products_channel ON products(channel_id)`)

	fmt.Printf("[Store] Product database ready: %s\n", dbPath)
	return &productStore{db: db}, nil
}

// Upsert inserts or replaces the product in the primary collection
func (s *productStore) Upsert(ctx context.Context, p *domain.Product) error {
	return s.upsertInto(ctx, "products", p)
}

// UpsertOffline inserts or replaces the product in the offline queue
func (s *productStore) UpsertOffline(ctx context.Context, p *domain.Product) error {
	return s.upsertInto(ctx, "offline_products", p)
}

// UpsertFailed inserts or replaces the product in the failed queue
func (s *productStore) UpsertFailed(ctx context.Context, p *domain.Product) error {
	return s.upsertInto(ctx, "failed_products", p)
}

func (s *productStore) upsertInto(ctx context.Context, table string, p *domain.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (unique_id, channel_id, message_id, timestamp, channel_name, name, short_description, description, images, current_price, old_price, extraction_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table),
		p.UniqueID,
		p.ChannelID,
		p.MessageID,
		p.Timestamp.Unix(),
		p.ChannelName,
		p.Name,
		p.ShortDescription,
		p.Description,
		string(images),
		p.Prices.CurrentPrice,
		p.Prices.OldPrice,
		string(p.Method),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	return nil
}

// Get returns the stored product, or nil when unknown
func (s *productStore) Get(ctx context.Context, uniqueID string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT unique_id, channel_id, message_id, timestamp, channel_name, name, short_description, description, images, current_price, old_price, extraction_method
		FROM products
		WHERE unique_id = ?
	`, uniqueID)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// List returns all products in the primary collection
func (s *productStore) List(ctx context.Context) ([]*domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unique_id, channel_id, message_id, timestamp, channel_name, name, short_description, description, images, current_price, old_price, extraction_method
		FROM products
		ORDER BY channel_id, message_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Close closes the database connection
func (s *productStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var timestamp int64
	var images string
	var method string
	err := row.Scan(
		&p.UniqueID,
		&p.ChannelID,
		&p.MessageID,
		&timestamp,
		&p.ChannelName,
		&p.Name,
		&p.ShortDescription,
		&p.Description,
		&images,
		&p.Prices.CurrentPrice,
		&p.Prices.OldPrice,
		&method,
	)
	if err != nil {
		return nil, err
	}

	p.Timestamp = time.Unix(timestamp, 0).UTC()
	p.Method = domain.ExtractionMethod(method)
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	return &p, nil
}
