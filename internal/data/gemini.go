package data

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// Gemini's OpenAI-compatible endpoint
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	defaultRetryAfter = 30 * time.Second
	requestTimeout    = 60 * time.Second
)

// Gemini reports the mandated pause as "retryDelay: 39s" or
// "retry in 39.5s" inside the error message
var retryDelayRe = regexp.MustCompile(`retry(?:Delay:?| in)\s*(\d+(?:\.\d+)?)s`)

// GeminiClient calls the Gemini API through its OpenAI-compatible
// interface. One extraction call uses exactly one (key, model) pair; the
// rotation policy lives with the caller.
type GeminiClient struct {
	mu      sync.Mutex
	clients map[string]*openai.Client // per API key, built lazily
}

// NewGeminiClient creates a Gemini client
func NewGeminiClient() *GeminiClient {
	return &GeminiClient{clients: make(map[string]*openai.Client)}
}

// clientFor returns the cached client for the key, building it on first
// use. Safe for concurrent callers; the client itself is reusable.
func (c *GeminiClient) clientFor(apiKey string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[apiKey]; ok {
		return client
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = geminiBaseURL
	client := openai.NewClientWithConfig(config)
	c.clients[apiKey] = client
	return client
}

// GenerateContent issues one completion call and returns the raw response
// text. Service failures come back as *repo.AIError so the caller can
// rotate; anything unclassifiable is returned as-is.
func (c *GeminiClient) GenerateContent(ctx context.Context, apiKey, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.clientFor(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return "", &repo.AIError{Kind: repo.AITruncated, Err: fmt.Errorf("finish reason %s", choice.FinishReason)}
	}
	return choice.Message.Content, nil
}

// classifyError maps API failures onto the rotation taxonomy
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}
	return err
}

func classifyStatus(status int, message string, err error) error {
	switch {
	case status == 429:
		// An explicit retry-after signal means "wait and retry the same
		// pair"; a 429 without one is daily quota exhaustion
		if delay, ok := parseRetryDelay(message); ok {
			return &repo.AIError{Kind: repo.AIRateLimited, RetryAfter: delay, Err: err}
		}
		if isQuotaMessage(message) {
			return &repo.AIError{Kind: repo.AIQuotaExhausted, Err: err}
		}
		return &repo.AIError{Kind: repo.AIRateLimited, RetryAfter: defaultRetryAfter, Err: err}
	case status == 403:
		return &repo.AIError{Kind: repo.AIQuotaExhausted, Err: err}
	case status >= 500:
		return &repo.AIError{Kind: repo.AIUnavailable, Err: err}
	}
	return err
}

func isQuotaMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "daily limit")
}

// parseRetryDelay pulls the service-specified delay out of the error
// message
func parseRetryDelay(message string) (time.Duration, bool) {
	match := retryDelayRe.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
