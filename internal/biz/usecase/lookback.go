package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"
)

// LookbackCollector walks backward through a channel to find captionless
// media messages that precede a caption message
type LookbackCollector struct {
	source repo.MessageSource
	sleep  SleepFunc
}

// NewLookbackCollector creates a lookback collector over the given source
func NewLookbackCollector(source repo.MessageSource) *LookbackCollector {
	return &LookbackCollector{source: source, sleep: Sleep}
}

// Collect walks ids msg.ID-1 down to msg.ID-maxLookback, cache first with
// an external fetch fallback, and returns the contiguous run of media-only
// messages in chronological order. The walk stops at the first message
// with text, since that caption belongs to a different product. Rate
// limits from the source are retried in place; the walk never restarts
// from the top.
func (c *LookbackCollector) Collect(ctx context.Context, state *ChannelState, ch *domain.Channel, msg *domain.Message, maxLookback int) ([]domain.Message, error) {
	var collected []domain.Message
	fetched := false

	lowest := msg.ID - int64(maxLookback)
	if lowest < 1 {
		lowest = 1
	}

	for id := msg.ID - 1; id >= lowest; id-- {
		prev, ok := state.Get(id)
		if !ok && !fetched && c.source != nil {
			if err := c.fetchWindow(ctx, state, ch, msg.ID, maxLookback); err != nil {
				if errors.Is(err, repo.ErrHistoryUnsupported) {
					break
				}
				return nil, fmt.Errorf("lookback fetch: %w", err)
			}
			fetched = true
			prev, ok = state.Get(id)
		}
		if !ok {
			// Gap in the sequence (deleted message or beyond what the
			// source returned); keep walking
			continue
		}

		if prev.HasText() {
			break
		}
		if prev.HasMedia() {
			collected = append(collected, prev)
		}
	}

	// Walked newest-to-oldest; reverse so media comes back in original
	// chronological order
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected, nil
}

// fetchWindow pulls the lookback window from the source into the cache,
// sleeping through rate limits and resuming the same request
func (c *LookbackCollector) fetchWindow(ctx context.Context, state *ChannelState, ch *domain.Channel, offsetID int64, limit int) error {
	for {
		msgs, err := c.source.FetchHistory(ctx, ch, offsetID, limit)
		if err != nil {
			var rateErr *repo.RateLimitError
			if errors.As(err, &rateErr) {
				fmt.Printf("[Lookback] Rate limited, waiting %s\n", rateErr.RetryAfter)
				if err := c.sleep(ctx, rateErr.RetryAfter); err != nil {
					return err
				}
				continue
			}
			return err
		}
		for _, m := range msgs {
			state.Record(m)
		}
		return nil
	}
}
