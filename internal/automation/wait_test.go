package automation_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/automation/automationtest"
	"github.com/kuitang/quoteform-e2e/internal/errs"
)

func TestPollUntil_ReturnsOnceConditionHolds(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	err := automation.PollUntil(context.Background(), time.Second, 5*time.Millisecond, "third call", func(ctx context.Context) (bool, error) {
		return calls.Add(1) >= 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollUntil_TimesOutWithTimeoutCode(t *testing.T) {
	t.Parallel()
	start := time.Now()
	err := automation.PollUntil(context.Background(), 60*time.Millisecond, 10*time.Millisecond, "never", func(ctx context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.Equal(t, errs.Timeout, errs.CodeOf(err))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollUntil_LastPollRunsAtDeadline(t *testing.T) {
	t.Parallel()
	const timeout = 200 * time.Millisecond
	for _, interval := range []time.Duration{timeout, 80 * time.Millisecond} {
		t.Run(interval.String(), func(t *testing.T) {
			t.Parallel()
			start := time.Now()
			err := automation.PollUntil(context.Background(), timeout, interval, "late condition", func(ctx context.Context) (bool, error) {
				return time.Since(start) >= timeout*9/10, nil
			})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, time.Since(start), timeout*9/10)
		})
	}
}

func TestPollUntil_IntervalEqualToTimeoutWaitsFullCeiling(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	start := time.Now()
	err := automation.PollUntil(context.Background(), 100*time.Millisecond, 100*time.Millisecond, "never", func(ctx context.Context) (bool, error) {
		calls.Add(1)
		return false, nil
	})
	assert.Equal(t, errs.Timeout, errs.CodeOf(err))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPollUntil_TreatsNotFoundAsNotYet(t *testing.T) {
	t.Parallel()
	page := automationtest.NewPage()
	browser := &automationtest.Browser{Page: page}

	var calls atomic.Int32
	err := automation.PollUntil(context.Background(), time.Second, 5*time.Millisecond, "late element", func(ctx context.Context) (bool, error) {
		if calls.Add(1) == 3 {
			page.Add("late")
		}
		_, err := browser.FindElement(ctx, automation.ByID, "late")
		return err == nil, err
	})
	require.NoError(t, err)
}

func TestPollUntil_TimeoutWrapsLastNotFound(t *testing.T) {
	t.Parallel()
	browser := &automationtest.Browser{Page: automationtest.NewPage()}
	err := automation.PollUntil(context.Background(), 40*time.Millisecond, 5*time.Millisecond, "missing", func(ctx context.Context) (bool, error) {
		_, err := browser.FindElement(ctx, automation.ByID, "missing")
		return false, err
	})
	require.Error(t, err)
	assert.Equal(t, errs.Timeout, errs.CodeOf(err))
	assert.True(t, errs.Is(err, errs.ElementNotFound))
}

func TestPollUntil_OtherErrorsAbortImmediately(t *testing.T) {
	t.Parallel()
	boom := errors.New("browser crashed")
	var calls atomic.Int32
	err := automation.PollUntil(context.Background(), time.Second, 5*time.Millisecond, "crash", func(ctx context.Context) (bool, error) {
		calls.Add(1)
		return false, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollUntil_ParentCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := automation.PollUntil(ctx, time.Second, 5*time.Millisecond, "cancelled", func(ctx context.Context) (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, errs.Timeout, errs.CodeOf(err))
}

func TestPollUntil_RejectsNonPositiveTimeout(t *testing.T) {
	t.Parallel()
	err := automation.Waiter{}.Until(context.Background(), "nothing", func(ctx context.Context) (bool, error) {
		return true, nil
	})
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}
