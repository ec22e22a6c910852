package referral

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted is returned by Retry when every attempt failed with
// a retryable error.
var ErrAttemptsExhausted = errors.New("attempts exhausted")

// Policy bounds Retry.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Retryable decides whether err warrants another attempt. Nil means never.
	Retryable func(err error) bool
}

// Retry calls op until it succeeds, fails with a non-retryable error, ctx
// is done, or MaxAttempts is reached. attempt starts at 1. On exhaustion the
// returned error wraps both ErrAttemptsExhausted and the last error.
func Retry(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = op(ctx, attempt)
		if last == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(last) {
			return last
		}
		if attempt < p.MaxAttempts && p.Backoff > 0 {
			t := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return errors.Join(ErrAttemptsExhausted, last)
}
