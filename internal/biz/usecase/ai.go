package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"
)

// unavailableBackoff is the fixed pause before rotating away from an
// overloaded model
const unavailableBackoff = 5 * time.Second

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// Extraction is the structured field set returned by the AI extractor
type Extraction struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description"`
	CurrentPrice     *float64 `json:"current_price"`
	OldPrice         *float64 `json:"old_price"`
}

// AIExtractor wraps the AI service with key/model rotation.
// It owns the rotation state for the run: quota exhaustion walks through
// models, then keys, and once every key is exhausted the extractor stays
// disabled and Extract returns nil without contacting the service.
type AIExtractor struct {
	client repo.AIClient
	state  *domain.RotationState
	sleep  SleepFunc
}

// NewAIExtractor creates an AI extractor over the given ordered keys and
// models. A nil client or empty key list yields a permanently disabled
// extractor, which callers handle by falling back to rule-based extraction.
func NewAIExtractor(client repo.AIClient, keys, models []string) *AIExtractor {
	return &AIExtractor{
		client: client,
		state:  domain.NewRotationState(keys, models),
		sleep:  Sleep,
	}
}

// Enabled reports whether the extractor can still issue calls
func (e *AIExtractor) Enabled() bool {
	return e.client != nil && !e.state.Disabled()
}

// Extract asks the AI service for structured product fields.
// A nil result with a nil error means "AI unavailable or unusable for this
// message, fall back to rule-based extraction". Rotation steps are bounded
// by keys x models so the loop always terminates.
func (e *AIExtractor) Extract(ctx context.Context, text, channelName string) (*Extraction, error) {
	if !e.Enabled() {
		return nil, nil
	}

	prompt := buildPrompt(text, channelName)
	budget := e.state.Budget()

	for steps := 0; steps < budget; {
		key, model, ok := e.state.Current()
		if !ok {
			return nil, nil
		}

		raw, err := e.client.GenerateContent(ctx, key, model, prompt)
		if err == nil {
			result := parseExtraction(raw)
			if result == nil {
				fmt.Printf("[AI] No JSON object in %s response, falling back\n", model)
			}
			return result, nil
		}

		var aiErr *repo.AIError
		if !errors.As(err, &aiErr) {
			// Network or protocol failure: abort this attempt, no rotation
			return nil, fmt.Errorf("ai extraction: %w", err)
		}

		switch aiErr.Kind {
		case repo.AIRateLimited:
			// Retry the same pair; does not consume the budget
			fmt.Printf("[AI] Rate limited on %s, waiting %s\n", model, aiErr.RetryAfter)
			if err := e.sleep(ctx, aiErr.RetryAfter+time.Second); err != nil {
				return nil, err
			}
		case repo.AIQuotaExhausted:
			fmt.Printf("[AI] Quota exhausted for %s, rotating\n", model)
			e.state.ExhaustModel()
			steps++
		case repo.AIUnavailable:
			fmt.Printf("[AI] %s unavailable, backing off and rotating\n", model)
			if err := e.sleep(ctx, unavailableBackoff); err != nil {
				return nil, err
			}
			e.state.SkipModel()
			steps++
		case repo.AITruncated:
			fmt.Printf("[AI] Truncated response from %s, rotating\n", model)
			e.state.SkipModel()
			steps++
		default:
			return nil, fmt.Errorf("ai extraction: %w", aiErr)
		}
	}

	if e.state.Disabled() {
		fmt.Println("[AI] All credentials exhausted, extractor disabled for this run")
	}
	return nil, nil
}

// parseExtraction recovers the JSON object embedded in the model's
// free-text response. Returns nil when no well-formed object is found.
func parseExtraction(raw string) *Extraction {
	match := jsonObjectRe.FindString(raw)
	if match == "" {
		return nil
	}
	var result Extraction
	if err := json.Unmarshal([]byte(match), &result); err != nil {
		return nil
	}
	return &result
}

// buildPrompt builds the fixed Arabic extraction prompt
func buildPrompt(text, channelName string) string {
	return fmt.Sprintf(`أنت خبير في استخراج بيانات المنتجات من رسائل القنوات.
استخرج المعلومات التالية من النص بدقة:

النص:
%s

القناة: %s

استخرج التالي بصيغة JSON:
{
    "name": "اسم المنتج (السطر الأول عادة)",
    "short_description": "وصف قصير (السطر الثاني إذا وُجد)",
    "description": "الوصف الكامل (باقي النص)",
    "current_price": رقم السعر الحالي أو null,
    "old_price": السعر القديم إذا وُجد أو null
}

ملاحظات مهمة:
- السعر يكون بصيغة رقمية فقط (مثال: 150 أو 150.5)
- تجاهل الإيموجي والرموز
- إذا كان هناك سعرين، الأقل هو current_price والأعلى old_price
- إذا كان سعر واحد فقط، ضعه في current_price واترك old_price null
- قد يكون السعر مكتوب: "150 جنيه" أو "بسعر 150" أو "السعر: 150 ج"
- امسح أي ذكر لكلمة "اسم المنتج" من الاسم

أرجع JSON فقط بدون أي نص إضافي.`, text, channelName)
}
