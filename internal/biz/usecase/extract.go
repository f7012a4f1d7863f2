package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
)

// TextFields holds the rule-extracted text fields of a product
type TextFields struct {
	Name             string
	ShortDescription string
	Description      string
}

const (
	minPrice = 1
	maxPrice = 100000
)

var (
	// Currency patterns for Egyptian Arabic listings, tried in order.
	// The last pattern matches a bare "ج" suffix not followed by another
	// letter (so it does not fire inside "جنيه", which the first pattern
	// already covers).
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:جنيه|ج\.م|LE)`),
		regexp.MustCompile(`السعر[:\s]+(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`بسعر[:\s]+(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`بـ\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ج(?:[^\p{L}\p{N}_]|$)`),
	}

	decimalCommaRe  = regexp.MustCompile(`(\d+),(\d+)`)
	nonAllowedRe    = regexp.MustCompile(`[^\x{0600}-\x{06FF}a-zA-Z0-9\s.,:+\-/]`)
	priceContextRe  = regexp.MustCompile(`السعر.*?(\d+(?:\.\d+)?)`)
	bareNumberRe    = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
	nameBoilerplate = regexp.MustCompile(`(?i)اسم المنتج`)
)

// ExtractText splits free-form caption text into name, short description
// and description: first non-blank line is the name, second the short
// description, everything after that the description.
func ExtractText(text string) TextFields {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	switch len(lines) {
	case 0:
		return TextFields{}
	case 1:
		return TextFields{Name: cleanName(lines[0])}
	case 2:
		return TextFields{Name: cleanName(lines[0]), ShortDescription: lines[1]}
	default:
		return TextFields{
			Name:             cleanName(lines[0]),
			ShortDescription: lines[1],
			Description:      strings.Join(lines[2:], "\n"),
		}
	}
}

func cleanName(name string) string {
	return strings.TrimSpace(nameBoilerplate.ReplaceAllString(name, ""))
}

// ExtractPrice extracts price information from free-form text.
// Three deterministic tiers: currency patterns over normalized and
// emoji-stripped text, then a number following the price keyword, then the
// first in-range standalone number. With multiple distinct matches the
// minimum becomes the current price and the maximum the old price (see
// domain.PriceFromPair for the policy note).
func ExtractPrice(text string) domain.ProductPrice {
	normalized := decimalCommaRe.ReplaceAllString(text, "$1.$2")
	cleaned := nonAllowedRe.ReplaceAllString(normalized, " ")

	prices := findAllPrices(normalized, cleaned)
	if len(prices) > 0 {
		low, high := minMax(prices)
		if len(prices) > 1 {
			return domain.PriceFromPair(&low, &high)
		}
		return domain.ProductPrice{CurrentPrice: &low}
	}

	if p, ok := contextualPrice(cleaned); ok {
		return domain.ProductPrice{CurrentPrice: &p}
	}

	if p, ok := firstValidNumber(cleaned); ok {
		return domain.ProductPrice{CurrentPrice: &p}
	}

	return domain.ProductPrice{}
}

func findAllPrices(texts ...string) map[float64]bool {
	prices := make(map[float64]bool)
	for _, text := range texts {
		for _, pattern := range pricePatterns {
			for _, match := range pattern.FindAllStringSubmatch(text, -1) {
				if v, ok := parsePrice(match[1]); ok {
					prices[v] = true
				}
			}
		}
	}
	return prices
}

func contextualPrice(text string) (float64, bool) {
	match := priceContextRe.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	return parsePrice(match[1])
}

func firstValidNumber(text string) (float64, bool) {
	for _, match := range bareNumberRe.FindAllStringSubmatch(text, -1) {
		if v, ok := parsePrice(match[1]); ok {
			return v, true
		}
	}
	return 0, false
}

func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < minPrice || v > maxPrice {
		return 0, false
	}
	return v, true
}

func minMax(values map[float64]bool) (low, high float64) {
	first := true
	for v := range values {
		if first {
			low, high = v, v
			first = false
			continue
		}
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}
