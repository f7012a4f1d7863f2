package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"
	"github.com/anthropics/telegram-product-scraper/internal/biz/usecase"
)

var mimeExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"video/mp4":  "mp4",
}

// DownloadFunc fetches a message's media bytes into dest. Implemented by
// the transport adapter; may return *repo.RateLimitError.
type DownloadFunc func(ctx context.Context, msg *domain.Message, dest string) error

// mediaDir materializes media into a local directory.
// Filenames are keyed by (channel, message, index), so repeated runs find
// the existing file and skip the download.
type mediaDir struct {
	dir        string
	download   DownloadFunc
	maxRetries int
	sleep      usecase.SleepFunc
}

// NewMediaDir creates a media store rooted at dir
func NewMediaDir(dir string, download DownloadFunc, maxRetries int) (repo.MediaStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &mediaDir{dir: dir, download: download, maxRetries: maxRetries, sleep: usecase.Sleep}, nil
}

// Materialize resolves the message's media to a local file path
func (m *mediaDir) Materialize(ctx context.Context, msg *domain.Message, index int) (string, error) {
	ext, err := extensionFor(msg.Media)
	if err != nil {
		return "", err
	}

	path := filepath.Join(m.dir, fmt.Sprintf("product_%d_%d_%d.%s", msg.ChannelID, msg.ID, index, ext))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	for attempt := 0; attempt < m.maxRetries; attempt++ {
		err = m.download(ctx, msg, path)
		if err == nil {
			return path, nil
		}
		var rateErr *repo.RateLimitError
		if !errors.As(err, &rateErr) {
			return "", fmt.Errorf("download media %s: %w", msg.UniqueID(), err)
		}
		fmt.Printf("[Media] Rate limited downloading %s, waiting %s (attempt %d/%d)\n", msg.UniqueID(), rateErr.RetryAfter, attempt+1, m.maxRetries)
		if sleepErr := m.sleep(ctx, rateErr.RetryAfter); sleepErr != nil {
			return "", sleepErr
		}
	}
	return "", fmt.Errorf("download media %s: %w", msg.UniqueID(), err)
}

// extensionFor maps the media variant to a file extension
func extensionFor(media *domain.MediaRef) (string, error) {
	if media == nil {
		return "", repo.ErrUnsupportedMedia
	}
	switch media.Kind {
	case domain.MediaPhoto:
		return "jpg", nil
	case domain.MediaDocument, domain.MediaVideo:
		if ext, ok := mimeExtensions[media.MimeType]; ok {
			return ext, nil
		}
	}
	return "", repo.ErrUnsupportedMedia
}
