package domain

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind is the kind of media attached to a message
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
)

// MediaRef describes the media payload of a message
type MediaRef struct {
	Kind     MediaKind
	MimeType string // set for documents and videos
	FileRef  string // transport-level handle used to materialize the bytes
}

// Message represents a channel message entity.
// Identity is (ChannelID, ID); the core only ever holds references
// plus cached copies for the lookback window.
type Message struct {
	ID        int64
	ChannelID int64
	Date      time.Time
	Text      string
	Media     *MediaRef
}

// HasText checks if the message carries a non-blank caption
func (m *Message) HasText() bool {
	return strings.TrimSpace(m.Text) != ""
}

// HasMedia checks if the message carries a media payload
func (m *Message) HasMedia() bool {
	return m.Media != nil
}

// UniqueID returns the message identity key
func (m *Message) UniqueID() string {
	return MessageUniqueID(m.ChannelID, m.ID)
}

// MessageUniqueID builds the identity key for a (channel, message) pair.
// Products derive their identity from the caption message's key, so the
// same message always maps to the same product.
func MessageUniqueID(channelID, messageID int64) string {
	return fmt.Sprintf("%d_%d", channelID, messageID)
}

// Channel represents a resolved channel entity
type Channel struct {
	ID    int64
	Ref   string // join link or @username, as configured
	Title string // platform title
	Name  string // configured display name, used as the product category
}
