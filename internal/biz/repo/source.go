package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
)

// ErrHistoryUnsupported is returned by sources that can only deliver live
// events (e.g. the Bot API, which has no history endpoint)
var ErrHistoryUnsupported = errors.New("message source does not support history fetch")

// RateLimitError signals the platform asked us to back off.
// Callers retry the same operation after RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// MessageSource is the channel message source interface.
// Implementations wrap the transport platform; the core only consumes
// abstract messages.
type MessageSource interface {
	// ResolveChannel resolves a channel ref (join link or @username) to a
	// channel entity
	ResolveChannel(ctx context.Context, ref string) (*domain.Channel, error)

	// JoinChannel joins the channel, or verifies existing membership
	JoinChannel(ctx context.Context, ch *domain.Channel) error

	// FetchHistory fetches up to limit messages with IDs strictly below
	// offsetID, in descending ID order. offsetID 0 means "from the newest".
	FetchHistory(ctx context.Context, ch *domain.Channel, offsetID int64, limit int) ([]domain.Message, error)

	// Subscribe streams new messages from the given channels until ctx is
	// cancelled
	Subscribe(ctx context.Context, channelIDs []int64) (<-chan domain.Message, error)
}
