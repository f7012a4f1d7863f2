package repo

import (
	"context"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
)

// BackendRepo submits products to the downstream commerce backend.
// The field mapping is the backend's contract; a nil error means the
// backend accepted the product.
type BackendRepo interface {
	SendProduct(ctx context.Context, p *domain.Product) error
}
