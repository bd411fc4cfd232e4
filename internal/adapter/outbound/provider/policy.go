// Package provider implements the outbound clients for generation
// providers, each driven by an explicit retry policy.
package provider

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
)

// Policy describes the retry discipline for one provider.
type Policy struct {
	// MaxAttempts is the total attempt budget, first call included.
	MaxAttempts int
	// Backoff holds the waits between attempts; the last entry repeats
	// if there are more retries than entries.
	Backoff []time.Duration
	// AttemptTimeout bounds a single request independently of the
	// overall retry budget. Zero disables it.
	AttemptTimeout time.Duration
	// RetryableStatus reports whether an HTTP status is worth retrying.
	RetryableStatus func(int) bool
}

// DefaultRetryableStatus retries 5xx and 429; all other 4xx are terminal.
func DefaultRetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// DefaultPolicy is the shared discipline for chat/image providers:
// three attempts with 1s and 2s waits between them.
func DefaultPolicy(attemptTimeout time.Duration) Policy {
	return Policy{
		MaxAttempts:     3,
		Backoff:         []time.Duration{time.Second, 2 * time.Second},
		AttemptTimeout:  attemptTimeout,
		RetryableStatus: DefaultRetryableStatus,
	}
}

// Do runs fn under the policy. Cancellation is honored both before each
// attempt and during one; a cancelled call fails fast with a cancelled
// error rather than a provider error. Transient failures are retried up
// to the attempt budget; the last failure is returned verbatim.
func (p Policy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return apperrors.Cancelled(operation)
		}

		attemptCtx := ctx
		cancel := func() {}
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		if apperrors.IsCancelled(err) && ctx.Err() != nil {
			return apperrors.Cancelled(operation)
		}
		lastErr = err
		if !apperrors.IsRetryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		if err := p.wait(ctx, attempt); err != nil {
			return apperrors.Cancelled(operation)
		}
	}
	return lastErr
}

// wait sleeps for the backoff of the given attempt, aborting on
// cancellation.
func (p Policy) wait(ctx context.Context, attempt int) error {
	if len(p.Backoff) == 0 {
		return ctx.Err()
	}
	idx := attempt
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	timer := time.NewTimer(p.Backoff[idx])
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
