package usecase

import (
	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
)

// ChannelState holds the per-channel in-run state: the message cache for
// the lookback window, the pending media buffer and the processed set.
// Each instance is exclusively owned by the worker processing its channel,
// so no locking is needed.
type ChannelState struct {
	channelID int64
	cache     map[int64]domain.Message
	pending   []domain.Message
	processed map[string]bool
}

// NewChannelState creates empty state for one channel
func NewChannelState(channelID int64) *ChannelState {
	return &ChannelState{
		channelID: channelID,
		cache:     make(map[int64]domain.Message),
		processed: make(map[string]bool),
	}
}

// Record caches a message for lookback. Append-only for the run.
func (s *ChannelState) Record(msg domain.Message) {
	s.cache[msg.ID] = msg
}

// Has checks if a message is cached
func (s *ChannelState) Has(messageID int64) bool {
	_, ok := s.cache[messageID]
	return ok
}

// Get returns a cached message
func (s *ChannelState) Get(messageID int64) (domain.Message, bool) {
	msg, ok := s.cache[messageID]
	return msg, ok
}

// CacheSize returns the number of cached messages
func (s *ChannelState) CacheSize() int {
	return len(s.cache)
}

// PushPending buffers a media-only message until the next caption message
// arrives
func (s *ChannelState) PushPending(msg domain.Message) {
	s.pending = append(s.pending, msg)
}

// DrainPending returns the buffered media messages in arrival order and
// empties the buffer. The buffer is consumed by exactly one product
// assembly.
func (s *ChannelState) DrainPending() []domain.Message {
	drained := s.pending
	s.pending = nil
	return drained
}

// PendingCount returns the number of buffered media messages
func (s *ChannelState) PendingCount() int {
	return len(s.pending)
}

// MarkProcessed adds a message identity to the processed set. Once added
// the message is never processed again as a standalone unit, though it can
// still be read from the cache for lookback.
func (s *ChannelState) MarkProcessed(uniqueID string) {
	s.processed[uniqueID] = true
}

// IsProcessed checks the processed set
func (s *ChannelState) IsProcessed(uniqueID string) bool {
	return s.processed[uniqueID]
}
