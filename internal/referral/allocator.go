package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membershipPortal/internal/logging"
	"membershipPortal/internal/metrics"
	"membershipPortal/models"
	"membershipPortal/repository"
)

// DefaultMaxAttempts bounds allocation when no limit is configured.
const DefaultMaxAttempts = 10

// ErrCodeSpaceExhausted means every generated code collided.
var ErrCodeSpaceExhausted = errors.New("referral code space exhausted")

// SaveFunc persists a record carrying code. It must return an error
// satisfying IsCodeCollision when code is already taken.
type SaveFunc func(ctx context.Context, code string) error

// Allocator hands out unique referral codes by letting the store's unique
// constraint arbitrate and retrying on collision.
type Allocator struct {
	Length      int
	MaxAttempts int
	Backoff     time.Duration
	// Generate defaults to GenerateCode.
	Generate func(length int) (string, error)
}

func NewAllocator(length, maxAttempts int, backoff time.Duration) *Allocator {
	if length < 1 {
		length = DefaultCodeLength
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{Length: length, MaxAttempts: maxAttempts, Backoff: backoff, Generate: GenerateCode}
}

// IsCodeCollision reports whether err is a unique violation on the
// referral code column.
func IsCodeCollision(err error) bool {
	return repository.IsDuplicateOn(err, models.FieldReferralCode)
}

// Assign generates codes and offers them to save until one is accepted.
// Collisions are retried with a fresh code; any other error is returned
// at once. When all attempts collide the error wraps
// ErrCodeSpaceExhausted and the last collision.
func (a *Allocator) Assign(ctx context.Context, save SaveFunc) (string, error) {
	gen := a.Generate
	if gen == nil {
		gen = GenerateCode
	}
	log := logging.FromContext(ctx)

	var code string
	policy := Policy{
		MaxAttempts: a.MaxAttempts,
		Backoff:     a.Backoff,
		Retryable:   IsCodeCollision,
	}
	err := Retry(ctx, policy, func(ctx context.Context, attempt int) error {
		c, err := gen(a.Length)
		if err != nil {
			return err
		}
		metrics.ReferralCodeAttempt()
		if err := save(ctx, c); err != nil {
			if IsCodeCollision(err) {
				metrics.ReferralCodeCollision()
				log.Debug().Int("attempt", attempt).Msg("referral code collision")
			}
			return err
		}
		code = c
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAttemptsExhausted) {
			return "", fmt.Errorf("%w after %d attempts: %w", ErrCodeSpaceExhausted, a.MaxAttempts, err)
		}
		return "", err
	}
	return code, nil
}
