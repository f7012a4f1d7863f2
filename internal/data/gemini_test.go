package data

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"

	openai "github.com/sashabaranov/go-openai"
)

func classify(t *testing.T, status int, message string) *repo.AIError {
	t.Helper()
	err := classifyError(&openai.APIError{HTTPStatusCode: status, Message: message})
	var aiErr *repo.AIError
	if !errors.As(err, &aiErr) {
		t.Fatalf("Expected *repo.AIError for status %d, got %T: %v", status, err, err)
	}
	return aiErr
}

func TestClassifyError_RateLimitWithDelay(t *testing.T) {
	aiErr := classify(t, 429, "Resource has been exhausted, retryDelay: 39s")
	if aiErr.Kind != repo.AIRateLimited {
		t.Errorf("Expected rate-limited, got kind %d", aiErr.Kind)
	}
	if aiErr.RetryAfter != 39*time.Second {
		t.Errorf("Expected retry after 39s, got %s", aiErr.RetryAfter)
	}
}

func TestClassifyError_QuotaWithoutDelay(t *testing.T) {
	aiErr := classify(t, 429, "You exceeded your current quota")
	if aiErr.Kind != repo.AIQuotaExhausted {
		t.Errorf("Expected quota exhaustion, got kind %d", aiErr.Kind)
	}
}

func TestClassifyError_PlainRateLimitDefaultsDelay(t *testing.T) {
	aiErr := classify(t, 429, "Too many requests")
	if aiErr.Kind != repo.AIRateLimited {
		t.Errorf("Expected rate-limited, got kind %d", aiErr.Kind)
	}
	if aiErr.RetryAfter != defaultRetryAfter {
		t.Errorf("Expected default retry delay, got %s", aiErr.RetryAfter)
	}
}

func TestClassifyError_Forbidden(t *testing.T) {
	aiErr := classify(t, 403, "API key lacks access")
	if aiErr.Kind != repo.AIQuotaExhausted {
		t.Errorf("Expected quota exhaustion for 403, got kind %d", aiErr.Kind)
	}
}

func TestClassifyError_ServerError(t *testing.T) {
	for _, status := range []int{500, 502, 503} {
		aiErr := classify(t, status, "The model is overloaded")
		if aiErr.Kind != repo.AIUnavailable {
			t.Errorf("Expected unavailable for %d, got kind %d", status, aiErr.Kind)
		}
	}
}

func TestClassifyError_OtherPassesThrough(t *testing.T) {
	plain := errors.New("connection refused")
	if got := classifyError(plain); got != plain {
		t.Errorf("Expected unclassifiable error unchanged, got %v", got)
	}

	badRequest := classifyError(&openai.APIError{HTTPStatusCode: 400, Message: "bad prompt"})
	var aiErr *repo.AIError
	if errors.As(badRequest, &aiErr) {
		t.Error("Expected 400 to stay unclassified (no rotation)")
	}
}

func TestParseRetryDelay(t *testing.T) {
	cases := []struct {
		message string
		want    time.Duration
		ok      bool
	}{
		{"retryDelay: 39s", 39 * time.Second, true},
		{"please retry in 2.5s", 2500 * time.Millisecond, true},
		{"no delay here", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseRetryDelay(tc.message)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseRetryDelay(%q) = %s,%v want %s,%v", tc.message, got, ok, tc.want, tc.ok)
		}
	}
}

// Channel workers share one GeminiClient, so the per-key cache must
// tolerate concurrent first use and hand back one client per key.
func TestGeminiClient_ConcurrentClientCache(t *testing.T) {
	c := NewGeminiClient()
	keys := []string{"k1", "k2", "k3"}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if c.clientFor(keys[(w+i)%len(keys)]) == nil {
					t.Error("Expected a client")
				}
			}
		}(w)
	}
	wg.Wait()

	for _, key := range keys {
		if c.clientFor(key) != c.clientFor(key) {
			t.Errorf("Expected one cached client for %s", key)
		}
	}
	if len(c.clients) != len(keys) {
		t.Errorf("Expected %d cached clients, got %d", len(keys), len(c.clients))
	}
}
