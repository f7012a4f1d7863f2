package usecase

import (
	"context"
	"fmt"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"
)

// DeliveryOutcome is the result of one delivery attempt
type DeliveryOutcome string

const (
	DeliverySent    DeliveryOutcome = "sent"
	DeliveryOffline DeliveryOutcome = "queued_offline"
	DeliveryFailed  DeliveryOutcome = "failed"
)

// Deliverer persists and delivers assembled products.
// The local upsert always happens before any network attempt, so a product
// is never lost to a delivery failure. Delivery failures are recorded in
// the failed queue and are not retried here; retry is an operator re-run.
type Deliverer struct {
	products repo.ProductRepo
	backend  repo.BackendRepo // nil when no backend endpoint is configured
}

// NewDeliverer creates a delivery engine. backend may be nil, in which
// case every product is queued offline.
func NewDeliverer(products repo.ProductRepo, backend repo.BackendRepo) *Deliverer {
	return &Deliverer{products: products, backend: backend}
}

// Deliver upserts the product locally and submits it to the backend.
// The local upserts run on a detached context: shutdown cancels further
// intake and the backend call, but an in-flight product always finishes
// its persist so already-materialized media references are not lost.
func (d *Deliverer) Deliver(ctx context.Context, p *domain.Product) (DeliveryOutcome, error) {
	persistCtx := context.WithoutCancel(ctx)

	if err := d.products.Upsert(persistCtx, p); err != nil {
		return DeliveryFailed, fmt.Errorf("persist product %s: %w", p.UniqueID, err)
	}

	if d.backend == nil {
		if err := d.products.UpsertOffline(persistCtx, p); err != nil {
			return DeliveryFailed, fmt.Errorf("queue offline %s: %w", p.UniqueID, err)
		}
		return DeliveryOffline, nil
	}

	if err := d.backend.SendProduct(ctx, p); err != nil {
		fmt.Printf("[Deliverer] Backend rejected %s: %v\n", p.UniqueID, err)
		if err := d.products.UpsertFailed(persistCtx, p); err != nil {
			return DeliveryFailed, fmt.Errorf("record failed delivery %s: %w", p.UniqueID, err)
		}
		return DeliveryFailed, nil
	}

	fmt.Printf("[Deliverer] Product sent: %s\n", truncate(p.Name, 50))
	return DeliverySent, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
