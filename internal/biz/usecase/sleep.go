package usecase

import (
	"context"
	"time"
)

// SleepFunc suspends for the given duration or until ctx is cancelled.
// Injected so rate-limit and backoff paths are unit-testable without real
// delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
