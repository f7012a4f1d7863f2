package repo

import (
	"context"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
)

// ProductRepo is the durable product store interface.
// All three collections are keyed by the product's unique ID; upserting an
// existing ID replaces the stored record in place rather than duplicating it.
type ProductRepo interface {
	// Upsert inserts or replaces the product in the primary collection
	Upsert(ctx context.Context, p *domain.Product) error

	// Get returns the stored product, or nil when the ID is unknown
	Get(ctx context.Context, uniqueID string) (*domain.Product, error)

	// List returns all products in the primary collection
	List(ctx context.Context) ([]*domain.Product, error)

	// UpsertOffline records the product in the offline queue, used when no
	// backend is configured
	UpsertOffline(ctx context.Context, p *domain.Product) error

	// UpsertFailed records the product in the failed-delivery queue for
	// later inspection and operator re-run
	UpsertFailed(ctx context.Context, p *domain.Product) error

	Close() error
}
