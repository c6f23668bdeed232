package automation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/kuitang/quoteform-e2e/internal/errs"
)

// Condition is a poll predicate. Returning an ElementNotFound error means
// "not yet"; any other error aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// Waiter polls conditions with a fixed ceiling and cadence.
type Waiter struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Until polls cond until it reports true, returns a non-recoverable error, or
// the ceiling elapses. On timeout the error has code errs.Timeout and wraps the
// last recoverable error seen, if any.
func (w Waiter) Until(ctx context.Context, what string, cond Condition) error {
	return PollUntil(ctx, w.Timeout, w.Interval, what, cond)
}

// PollUntil is Waiter.Until without a Waiter. Polls run every interval; the
// last one runs at the deadline, so a wait never gives up before timeout.
func PollUntil(ctx context.Context, timeout, interval time.Duration, what string, cond Condition) error {
	if timeout <= 0 {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("wait for %s: timeout must be positive", what))
	}
	if interval <= 0 {
		interval = timeout / 10
	}

	deadline := time.Now().Add(timeout)
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow() // first poll runs immediately; later ones wait a full interval
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.Internal, fmt.Sprintf("wait for %s", what), err)
		}
		ok, err := cond(ctx)
		switch {
		case err == nil && ok:
			return nil
		case err != nil && !IsNotFound(err):
			return err
		case err != nil:
			lastErr = err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			msg := fmt.Sprintf("wait for %s: not satisfied within %s", what, timeout)
			if lastErr != nil {
				return errs.Wrap(errs.Timeout, msg, lastErr)
			}
			return errs.New(errs.Timeout, msg)
		}

		timer := time.NewTimer(min(limiter.Reserve().Delay(), remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errs.Wrap(errs.Internal, fmt.Sprintf("wait for %s", what), ctx.Err())
		case <-timer.C:
		}
	}
}
