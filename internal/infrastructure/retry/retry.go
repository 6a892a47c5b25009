// Package retry runs startup operations against remote services with
// exponential backoff.
//
// The engine itself never retries within a cycle; transport connections
// are the only thing retried, and only until the service first answers.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nerrad567/irrigation-core/internal/infrastructure/config"
)

// Policy describes how often and how long to retry.
type Policy struct {
	// Initial is the first delay between attempts.
	Initial time.Duration

	// Max caps the delay between attempts.
	Max time.Duration

	// MaxAttempts is the total number of attempts. Zero retries until the
	// context is cancelled.
	MaxAttempts int
}

// FromReconnect builds a Policy from the MQTT reconnect settings, which
// also govern the other startup connections.
func FromReconnect(cfg config.MQTTReconnectConfig) Policy {
	return Policy{
		Initial:     time.Duration(cfg.InitialDelay) * time.Second,
		Max:         time.Duration(cfg.MaxDelay) * time.Second,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// Notify is called after each failed attempt with the error and the wait
// before the next attempt.
type Notify func(err error, next time.Duration)

// Permanent marks err so Do stops retrying and returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, the policy is exhausted, op returns a
// Permanent error, or ctx is cancelled.
//
// Parameters:
//   - ctx: Cancels waiting between attempts
//   - p: Retry policy
//   - op: Operation to attempt; receives ctx
//   - notify: Optional callback after each failure
//
// Returns:
//   - error: nil on success, otherwise the last error from op (or ctx.Err())
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, notify Notify) error {
	bo := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		bo.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		bo.MaxInterval = p.Max
	}
	// Attempts and ctx bound the loop, not wall time.
	bo.MaxElapsedTime = 0

	var b backoff.BackOff = bo
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		return op(ctx)
	}, b, func(err error, next time.Duration) {
		if notify != nil {
			notify(err, next)
		}
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
