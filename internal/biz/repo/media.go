package repo

import (
	"context"
	"errors"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
)

// ErrUnsupportedMedia is returned for media kinds the store cannot
// materialize (unknown mime types etc.)
var ErrUnsupportedMedia = errors.New("unsupported media type")

// MediaStore materializes message media to local files.
// Materialize is idempotent by (channel_id, message_id, index): calling it
// again for an already-materialized item returns the existing path without
// re-downloading.
type MediaStore interface {
	Materialize(ctx context.Context, msg *domain.Message, index int) (string, error)
}
