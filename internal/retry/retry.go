// Package retry provides bounded retry with exponential backoff for
// idempotent request attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes one retry budget. Retries is the number of attempts
// after the first; delays double from BaseDelay up to MaxDelay.
// Retryable decides which failures are worth another attempt; a nil
// Retryable retries everything.
type Policy struct {
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Retryable func(error) bool
}

// Do runs op under the policy. Waiting respects ctx; a cancelled
// context surfaces the context error. Non-retryable failures return
// immediately.
func (p Policy) Do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	var bo backoff.BackOff = backoff.WithMaxRetries(b, uint64(p.Retries))
	bo = backoff.WithContext(bo, ctx)

	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}
