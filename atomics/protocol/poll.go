package protocol

import (
	"context"
	"time"
)

// NoTimeout disables the timeout of a waiting policy. Any negative timeout
// has the same effect.
const NoTimeout time.Duration = -1

type pollState int

const (
	pollPending pollState = iota
	pollTimedOut
	pollInterrupted
)

// poller drives the sleep between rounds of a waiting protocol.
//
// The wait is accounted as the sum of completed sleeps, so a loop may overshoot
// its timeout by at most one check period.
type poller struct {
	sleeper Sleeper
	period  time.Duration
	timeout time.Duration

	polls  int
	waited time.Duration
	cause  error
}

func newPoller(sleeper Sleeper, period, timeout time.Duration) *poller {
	return &poller{
		sleeper: sleeper,
		period:  period,
		timeout: timeout,
	}
}

// wait sleeps one period and reports the resulting state.
// Cancellation observed during or right after the sleep wins over a timeout.
func (p *poller) wait(ctx context.Context) pollState {
	if err := p.sleeper.Sleep(ctx, p.period); err != nil {
		p.cause = err
		return pollInterrupted
	}

	p.polls++
	p.waited += p.period

	if ctx.Err() != nil {
		p.cause = context.Cause(ctx)
		return pollInterrupted
	}

	if p.timeout >= 0 && p.waited > p.timeout {
		return pollTimedOut
	}

	return pollPending
}
