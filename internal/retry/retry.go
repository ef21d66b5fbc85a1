// Package retry runs operations under the pipeline's exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const multiplier = 2

// Policy bounds how often and how patiently an operation is retried.
// Waits double from Backoff: Backoff, 2*Backoff, 4*Backoff, ...
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// Permanent marks err as not worth retrying. Do returns the unwrapped error.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a Permanent error, the policy's attempts
// are used up, or ctx is done. notify, if set, is called before every wait.
// When ctx ends the wait, the returned error joins the last failure with ctx.Err().
func Do(ctx context.Context, policy Policy, op func() error, notify func(err error, wait time.Duration)) error {
	var lastErr error

	operation := func() error {
		lastErr = op()

		return lastErr
	}

	err := backoff.RetryNotify(operation, policy.backOff(ctx), notify)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) && lastErr != nil && !errors.Is(lastErr, ctx.Err()) {
		return errors.Join(lastErr, err)
	}

	return err
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = max(p.Backoff, 0)
	exponential.Multiplier = multiplier
	exponential.RandomizationFactor = 0
	exponential.MaxInterval = max(exponential.MaxInterval, p.Backoff)
	exponential.MaxElapsedTime = 0
	exponential.Reset()

	retries := uint64(max(p.Attempts, 1) - 1) //nolint:gosec

	return backoff.WithContext(backoff.WithMaxRetries(exponential, retries), ctx)
}
