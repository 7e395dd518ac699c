package protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPoller_TimeoutAccounting verifies the loop times out on the first sleep
// that pushes the accumulated wait past the timeout.
func TestPoller_TimeoutAccounting(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		period     time.Duration
		timeout    time.Duration
		wantPolls  int
		wantWaited time.Duration
	}{
		{"exact multiple", 50 * time.Millisecond, 200 * time.Millisecond, 5, 250 * time.Millisecond},
		{"not a multiple", 30 * time.Millisecond, 100 * time.Millisecond, 4, 120 * time.Millisecond},
		{"zero timeout", 10 * time.Millisecond, 0, 1, 10 * time.Millisecond},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newPoller(&virtualClock{}, tc.period, tc.timeout)

			var state pollState
			for state == pollPending {
				state = p.wait(context.Background())
			}

			assert.Equal(t, pollTimedOut, state)
			assert.Equal(t, tc.wantPolls, p.polls)
			assert.Equal(t, tc.wantWaited, p.waited)
			assert.Greater(t, p.waited, tc.timeout)
			assert.LessOrEqual(t, p.waited, tc.timeout+tc.period)
		})
	}
}

// TestPoller_NoTimeout verifies a negative timeout never times out.
func TestPoller_NoTimeout(t *testing.T) {
	t.Parallel()

	p := newPoller(&virtualClock{}, time.Hour, NoTimeout)

	for range 1000 {
		require.Equal(t, pollPending, p.wait(context.Background()))
	}

	assert.Equal(t, 1000, p.polls)
}

// TestPoller_CancellationBeatsTimeout cancels the context during the sleep
// that also exhausts the timeout; the poller must report an interruption.
func TestPoller_CancellationBeatsTimeout(t *testing.T) {
	t.Parallel()

	var (
		cause       = errors.New("worker stopped")
		ctx, cancel = context.WithCancelCause(context.Background())
		clock       = &virtualClock{onSleep: func(time.Duration) { cancel(cause) }}
		p           = newPoller(clock, 10*time.Millisecond, 0)
	)

	assert.Equal(t, pollInterrupted, p.wait(ctx))
	require.ErrorIs(t, p.cause, cause)
}

// TestPoller_SleepError verifies a failing sleep interrupts without counting a poll.
func TestPoller_SleepError(t *testing.T) {
	t.Parallel()

	failure := errors.New("clock broken")
	p := newPoller(SleeperFunc(func(context.Context, time.Duration) error {
		return failure
	}), time.Millisecond, NoTimeout)

	assert.Equal(t, pollInterrupted, p.wait(context.Background()))
	assert.Zero(t, p.polls)
	require.ErrorIs(t, p.cause, failure)
}

// TestTimerSleeper checks real sleeping and prompt cancellation.
func TestTimerSleeper(t *testing.T) {
	t.Parallel()

	t.Run("sleeps", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		require.NoError(t, TimerSleeper{}.Sleep(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("cancelled while sleeping", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("shutdown")
		ctx, cancel := context.WithCancelCause(context.Background())

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel(cause)
		}()

		start := time.Now()
		err := TimerSleeper{}.Sleep(ctx, time.Minute)
		require.ErrorIs(t, err, cause)
		assert.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("already cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.ErrorIs(t, TimerSleeper{}.Sleep(ctx, time.Minute), context.Canceled)
	})
}
