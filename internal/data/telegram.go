package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotSource is a MessageSource over the Telegram Bot API.
// The Bot API delivers live channel posts but has no history endpoint, so
// FetchHistory reports repo.ErrHistoryUnsupported; history and hybrid runs
// need a source with history access.
type BotSource struct {
	api  *tgbotapi.BotAPI
	http *http.Client
}

// NewBotSource authenticates the bot
func NewBotSource(token string) (*BotSource, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	fmt.Printf("[Telegram] Authorized as @%s\n", api.Self.UserName)
	return &BotSource{
		api:  api,
		http: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// ResolveChannel resolves a @username or t.me link to a channel entity
func (s *BotSource) ResolveChannel(ctx context.Context, ref string) (*domain.Channel, error) {
	chat, err := s.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: usernameFromRef(ref)},
	})
	if err != nil {
		return nil, wrapBotError(fmt.Errorf("resolve channel %s: %w", ref, err))
	}
	return &domain.Channel{ID: chat.ID, Ref: ref, Title: chat.Title}, nil
}

// JoinChannel verifies access. Bots cannot join channels themselves; they
// must be added as members, so this only confirms the channel is visible.
func (s *BotSource) JoinChannel(ctx context.Context, ch *domain.Channel) error {
	_, err := s.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: ch.ID},
	})
	if err != nil {
		return wrapBotError(fmt.Errorf("verify membership of %s: %w", ch.Ref, err))
	}
	return nil
}

// FetchHistory is not available over the Bot API
func (s *BotSource) FetchHistory(ctx context.Context, ch *domain.Channel, offsetID int64, limit int) ([]domain.Message, error) {
	return nil, repo.ErrHistoryUnsupported
}

// Subscribe streams channel posts for the given channels until ctx is
// cancelled
func (s *BotSource) Subscribe(ctx context.Context, channelIDs []int64) (<-chan domain.Message, error) {
	wanted := make(map[int64]bool, len(channelIDs))
	for _, id := range channelIDs {
		wanted[id] = true
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)

	out := make(chan domain.Message)
	go func() {
		defer close(out)
		defer s.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				post := update.ChannelPost
				if post == nil || !wanted[post.Chat.ID] {
					continue
				}
				select {
				case out <- convertMessage(post):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Download fetches a message's media bytes into dest. Satisfies
// data.DownloadFunc.
func (s *BotSource) Download(ctx context.Context, msg *domain.Message, dest string) error {
	if msg.Media == nil || msg.Media.FileRef == "" {
		return repo.ErrUnsupportedMedia
	}

	url, err := s.api.GetFileDirectURL(msg.Media.FileRef)
	if err != nil {
		return wrapBotError(fmt.Errorf("resolve file url: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}

	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(dest)
		return fmt.Errorf("write media: %w", err)
	}
	return nil
}

// convertMessage validates the platform message into the domain variant
func convertMessage(post *tgbotapi.Message) domain.Message {
	msg := domain.Message{
		ID:        int64(post.MessageID),
		ChannelID: post.Chat.ID,
		Date:      time.Unix(int64(post.Date), 0).UTC(),
		Text:      post.Text,
	}
	if msg.Text == "" {
		msg.Text = post.Caption
	}

	switch {
	case len(post.Photo) > 0:
		// The last size is the largest
		largest := post.Photo[len(post.Photo)-1]
		msg.Media = &domain.MediaRef{Kind: domain.MediaPhoto, FileRef: largest.FileID}
	case post.Document != nil:
		msg.Media = &domain.MediaRef{Kind: domain.MediaDocument, MimeType: post.Document.MimeType, FileRef: post.Document.FileID}
	case post.Video != nil:
		msg.Media = &domain.MediaRef{Kind: domain.MediaVideo, MimeType: "video/mp4", FileRef: post.Video.FileID}
	}
	return msg
}

// wrapBotError converts the platform's retry-after signal into the
// source-level rate limit error
func wrapBotError(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return &repo.RateLimitError{RetryAfter: time.Duration(tgErr.RetryAfter) * time.Second}
	}
	return err
}

func usernameFromRef(ref string) string {
	ref = strings.TrimPrefix(ref, "https://t.me/")
	ref = strings.TrimPrefix(ref, "t.me/")
	if !strings.HasPrefix(ref, "@") {
		ref = "@" + ref
	}
	return ref
}
