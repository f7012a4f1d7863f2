package repo

import (
	"context"
	"fmt"
	"time"
)

// AIErrorKind classifies AI service failures for the rotation state machine
type AIErrorKind int

const (
	// AIRateLimited means "retry the same key/model after RetryAfter"
	AIRateLimited AIErrorKind = iota
	// AIQuotaExhausted means the daily quota for the key/model is gone
	AIQuotaExhausted
	// AIUnavailable means the service is overloaded; rotate after a short
	// backoff without permanently writing the model off
	AIUnavailable
	// AITruncated means the response was cut short; the model's output
	// capacity is insufficient for the payload, rotate
	AITruncated
)

// AIError is a classified AI service error
type AIError struct {
	Kind       AIErrorKind
	RetryAfter time.Duration // set for AIRateLimited
	Err        error
}

func (e *AIError) Error() string {
	switch e.Kind {
	case AIRateLimited:
		return fmt.Sprintf("ai rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	case AIQuotaExhausted:
		return fmt.Sprintf("ai quota exhausted: %v", e.Err)
	case AIUnavailable:
		return fmt.Sprintf("ai service unavailable: %v", e.Err)
	case AITruncated:
		return fmt.Sprintf("ai response truncated: %v", e.Err)
	}
	return fmt.Sprintf("ai error: %v", e.Err)
}

func (e *AIError) Unwrap() error {
	return e.Err
}

// AIClient is the AI service interface. GenerateContent issues one
// completion call with the given credential and model and returns the raw
// free-text response. Failures that should drive rotation are returned as
// *AIError; anything else aborts the extraction attempt.
type AIClient interface {
	GenerateContent(ctx context.Context, apiKey, model, prompt string) (string, error)
}
