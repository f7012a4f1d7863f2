package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"
)

// Assembler reconstructs products from messages: it combines the pending
// media buffer, lookback-collected media and the caption message's own
// media into one validated product
type Assembler struct {
	ai          *AIExtractor
	lookback    *LookbackCollector
	media       repo.MediaStore
	maxLookback int
}

// NewAssembler creates a product assembler
func NewAssembler(ai *AIExtractor, lookback *LookbackCollector, media repo.MediaStore, maxLookback int) *Assembler {
	return &Assembler{
		ai:          ai,
		lookback:    lookback,
		media:       media,
		maxLookback: maxLookback,
	}
}

// Assemble processes one message. Media-only messages are buffered and
// return nil; a caption message consumes the buffer, the lookback window
// and its own media to produce a product. Invalid products are discarded
// (nil, nil) with no persistence.
func (a *Assembler) Assemble(ctx context.Context, state *ChannelState, msg domain.Message, ch *domain.Channel) (*domain.Product, error) {
	uniqueID := msg.UniqueID()
	if state.IsProcessed(uniqueID) {
		return nil, nil
	}
	state.Record(msg)

	if !msg.HasText() {
		if msg.HasMedia() {
			state.PushPending(msg)
			fmt.Printf("[Assembler] Buffered media: %d pending in channel %d\n", state.PendingCount(), msg.ChannelID)
		}
		return nil, nil
	}

	state.MarkProcessed(uniqueID)

	fields, price, method := a.extractFields(ctx, msg.Text, ch.Name)
	product := &domain.Product{
		UniqueID:         uniqueID,
		ChannelID:        msg.ChannelID,
		MessageID:        msg.ID,
		Timestamp:        msg.Date,
		ChannelName:      ch.Name,
		Name:             fields.Name,
		ShortDescription: fields.ShortDescription,
		Description:      fields.Description,
		Prices:           price,
		Method:           method,
	}

	// 1. Buffered pending media, oldest first
	for _, pending := range state.DrainPending() {
		a.attach(ctx, state, product, pending)
	}

	// 2. Lookback-collected previous media, skipping anything already
	// folded into another product
	previous, err := a.lookback.Collect(ctx, state, ch, &msg, a.maxLookback)
	if err != nil {
		fmt.Printf("[Assembler] Lookback failed for %s: %v\n", uniqueID, err)
	}
	for _, prev := range previous {
		if !state.IsProcessed(prev.UniqueID()) {
			a.attach(ctx, state, product, prev)
		}
	}

	// 3. The caption message's own media
	if msg.HasMedia() {
		a.attach(ctx, state, product, msg)
	}

	if !product.IsValid() {
		fmt.Printf("[Assembler] Invalid product skipped: %q (%d images, price=%v)\n", product.Name, len(product.Images), product.Prices.CurrentPrice)
		return nil, nil
	}
	return product, nil
}

// extractFields runs the AI extractor and falls back to rule-based
// extraction whenever the AI yields nothing
func (a *Assembler) extractFields(ctx context.Context, text, channelName string) (TextFields, domain.ProductPrice, domain.ExtractionMethod) {
	if a.ai != nil {
		result, err := a.ai.Extract(ctx, text, channelName)
		if err != nil {
			fmt.Printf("[Assembler] AI extraction failed: %v\n", err)
		}
		if result != nil {
			fields := TextFields{
				Name:             result.Name,
				ShortDescription: result.ShortDescription,
				Description:      result.Description,
			}
			return fields, domain.PriceFromPair(result.CurrentPrice, result.OldPrice), domain.MethodAI
		}
	}
	return ExtractText(text), ExtractPrice(text), domain.MethodManual
}

// attach materializes one media message onto the product and marks the
// message processed so it can never be attached twice
func (a *Assembler) attach(ctx context.Context, state *ChannelState, product *domain.Product, msg domain.Message) {
	path, err := a.media.Materialize(ctx, &msg, len(product.Images))
	switch {
	case err == nil:
		product.Images = append(product.Images, path)
	case errors.Is(err, repo.ErrUnsupportedMedia):
		// Nothing to attach, but the message is still consumed
	default:
		fmt.Printf("[Assembler] Failed to materialize media %s: %v\n", msg.UniqueID(), err)
	}
	state.MarkProcessed(msg.UniqueID())
}
