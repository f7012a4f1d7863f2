package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"
)

// fakeMediaStore materializes to synthetic paths and records calls
type fakeMediaStore struct {
	calls []string
}

func (f *fakeMediaStore) Materialize(_ context.Context, msg *domain.Message, index int) (string, error) {
	if msg.Media == nil {
		return "", repo.ErrUnsupportedMedia
	}
	path := fmt.Sprintf("media/%s_%d.jpg", msg.UniqueID(), index)
	f.calls = append(f.calls, path)
	return path, nil
}

func newTestAssembler(source repo.MessageSource) (*Assembler, *fakeMediaStore) {
	store := &fakeMediaStore{}
	lookback := NewLookbackCollector(source)
	lookback.sleep = noSleep
	// No AI client: extraction always takes the rule-based path
	return NewAssembler(NewAIExtractor(nil, nil, nil), lookback, store, 20), store
}

func caption(id int64, text string) domain.Message {
	return domain.Message{ID: id, ChannelID: 42, Text: text}
}

func mediaOnly(id int64) domain.Message {
	return domain.Message{ID: id, ChannelID: 42, Media: media()}
}

func testChannel() *domain.Channel {
	return &domain.Channel{ID: 42, Name: "أدوات منزلية"}
}

func TestAssembler_MediaOnlyMessageBuffers(t *testing.T) {
	a, store := newTestAssembler(nil)
	state := NewChannelState(42)

	product, err := a.Assemble(context.Background(), state, mediaOnly(5), testChannel())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if product != nil {
		t.Error("Expected no product from a media-only message")
	}
	if state.PendingCount() != 1 {
		t.Errorf("Expected 1 buffered message, got %d", state.PendingCount())
	}
	if len(store.calls) != 0 {
		t.Error("Media-only messages must not be materialized yet")
	}
}

func TestAssembler_CaptionConsumesPendingBuffer(t *testing.T) {
	a, _ := newTestAssembler(nil)
	state := NewChannelState(42)

	if _, err := a.Assemble(context.Background(), state, mediaOnly(5), testChannel()); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Assemble(context.Background(), state, mediaOnly(6), testChannel()); err != nil {
		t.Fatal(err)
	}

	product, err := a.Assemble(context.Background(), state, caption(7, "Blender\nStrong\n150 جنيه"), testChannel())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if product == nil {
		t.Fatal("Expected a product")
	}
	if len(product.Images) != 2 {
		t.Errorf("Expected 2 images from the buffer, got %d", len(product.Images))
	}
	if state.PendingCount() != 0 {
		t.Error("Expected the buffer to be emptied")
	}
	if product.Name != "Blender" || *product.Prices.CurrentPrice != 150 {
		t.Errorf("Expected rule-based extraction, got %+v", product)
	}
	if product.Method != domain.MethodManual {
		t.Errorf("Expected manual extraction method, got %s", product.Method)
	}
}

func TestAssembler_LookbackSkipsProcessedMedia(t *testing.T) {
	a, _ := newTestAssembler(nil)
	state := NewChannelState(42)

	// Message 8 was already consumed by an earlier product
	state.Record(domain.Message{ID: 8, ChannelID: 42, Media: media()})
	state.MarkProcessed(domain.MessageUniqueID(42, 8))
	state.Record(domain.Message{ID: 9, ChannelID: 42, Media: media()})

	product, err := a.Assemble(context.Background(), state, caption(10, "Blender\n150 جنيه"), testChannel())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if product == nil {
		t.Fatal("Expected a product")
	}
	if len(product.Images) != 1 {
		t.Errorf("Expected only message 9 attached, got %d images", len(product.Images))
	}
}

func TestAssembler_OwnMediaAttachedLast(t *testing.T) {
	a, store := newTestAssembler(nil)
	state := NewChannelState(42)
	state.Record(domain.Message{ID: 9, ChannelID: 42, Media: media()})

	msg := domain.Message{ID: 10, ChannelID: 42, Text: "Blender\n150 جنيه", Media: media()}
	product, err := a.Assemble(context.Background(), state, msg, testChannel())
	if err != nil || product == nil {
		t.Fatalf("Assemble failed: %v product=%v", err, product)
	}
	if len(product.Images) != 2 {
		t.Fatalf("Expected 2 images, got %d", len(product.Images))
	}
	// The caption's own media comes after lookback media
	if store.calls[0] != "media/42_9_0.jpg" || store.calls[1] != "media/42_10_1.jpg" {
		t.Errorf("Expected lookback media first, own media last: %v", store.calls)
	}
}

func TestAssembler_InvalidProductDiscarded(t *testing.T) {
	a, _ := newTestAssembler(nil)
	state := NewChannelState(42)

	// Caption with a price but no media anywhere: invalid (no images)
	product, err := a.Assemble(context.Background(), state, caption(10, "Blender\n150 جنيه"), testChannel())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if product != nil {
		t.Errorf("Expected invalid product to be discarded, got %+v", product)
	}
}

func TestAssembler_ProcessedMessageIgnored(t *testing.T) {
	a, _ := newTestAssembler(nil)
	state := NewChannelState(42)
	state.MarkProcessed(domain.MessageUniqueID(42, 10))

	msg := domain.Message{ID: 10, ChannelID: 42, Text: "Blender\n150 جنيه", Media: media()}
	product, err := a.Assemble(context.Background(), state, msg, testChannel())
	if err != nil || product != nil {
		t.Errorf("Expected already-processed message to be skipped, got %v err=%v", product, err)
	}
}
