package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oshokin/xk6-atomics/atomics/store"
)

// AwaitTarget is one condition Await waits for.
type AwaitTarget struct {
	// Value is the reading text to match; ignored when Absent is set.
	Value string
	// Absent matches a cell that has been removed from the store.
	Absent bool
	// Discard removes the cell from the store once this target matches.
	Discard bool
	// Label is an opaque name reported back to the caller.
	Label string
}

// AwaitPolicy configures Await.
type AwaitPolicy struct {
	// Targets are tried in order; the first match wins.
	Targets     []AwaitTarget
	CheckPeriod time.Duration
	// Timeout bounds the accumulated wait; negative waits forever.
	Timeout time.Duration
}

type awaitTarget struct {
	reading store.Reading
	absent  bool
	discard bool
}

// Validate checks the policy for a cell of the given kind.
func (p AwaitPolicy) Validate(kind store.Kind) error {
	_, err := p.compile(kind)

	return err
}

func (p AwaitPolicy) compile(kind store.Kind) ([]awaitTarget, error) {
	if len(p.Targets) == 0 {
		return nil, nil
	}

	if p.CheckPeriod <= 0 {
		return nil, checkPeriodError(p.CheckPeriod)
	}

	var (
		targets    = make([]awaitTarget, 0, len(p.Targets))
		sawAbsence bool
	)

	for i, t := range p.Targets {
		if t.Absent {
			if sawAbsence {
				return nil, fmt.Errorf("%w: %w: target %d", ErrInvalidPolicy, ErrMultipleAbsentTargets, i)
			}

			sawAbsence = true

			targets = append(targets, awaitTarget{absent: true, discard: t.Discard})

			continue
		}

		reading, err := store.ParseReading(kind, t.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: target %d: %w", ErrInvalidTargetValue, i, err)
		}

		targets = append(targets, awaitTarget{reading: reading, discard: t.Discard})
	}

	return targets, nil
}

// AwaitResult is the outcome of Await.
type AwaitResult struct {
	Route Route
	// Index is the position of the matched target; only set with RouteMatched.
	Index  int
	Target AwaitTarget
	// Reading is the last reading observed; zero when the cell was absent.
	Reading store.Reading
	// Discarded reports whether the cell was removed after the match.
	Discarded bool
	Polls     int
	Waited    time.Duration
	// Cause is the cancellation cause when Route is RouteInterrupted.
	Cause error
}

// Await polls the cell behind h until its reading matches one of the policy
// targets.
//
// Every round, the first included, looks h.ID up in the store, so a cell
// removed by another worker is observed as absent even if h still holds it. An
// absent cell only matches the absent target; otherwise targets are compared
// by typed value in the order given. Without targets Await returns
// RouteDefault immediately.
func (c *Coordinator) Await(ctx context.Context, h Handle, policy AwaitPolicy) (AwaitResult, error) {
	if err := h.validate(); err != nil {
		return AwaitResult{}, err
	}

	targets, err := policy.compile(h.Kind)
	if err != nil {
		return AwaitResult{}, err
	}

	if len(targets) == 0 {
		return AwaitResult{Route: RouteDefault}, nil
	}

	var (
		p       = newPoller(c.sleeper, policy.CheckPeriod, policy.Timeout)
		reading store.Reading
	)

	for {
		current, _, err := c.store.Get(h.ID, h.Kind)
		if err != nil {
			return AwaitResult{Polls: p.polls, Waited: p.waited}, err
		}

		present := current != nil
		if present {
			reading = current.Load()
		} else {
			reading = store.Reading{}
		}

		if idx, ok := matchTarget(targets, reading, present); ok {
			result := AwaitResult{
				Route:   RouteMatched,
				Index:   idx,
				Target:  policy.Targets[idx],
				Reading: reading,
				Polls:   p.polls,
				Waited:  p.waited,
			}

			if targets[idx].discard && present {
				result.Discarded = c.store.RemoveValue(h.ID, current)
				if !result.Discarded {
					c.logger.DebugContext(ctx, "Atomic value was already removed or replaced",
						slog.String("id", h.ID))
				}
			}

			c.logger.DebugContext(ctx, "Atomic value matched",
				slog.String("id", h.ID),
				slog.Int("target", idx),
				slog.String("reading", reading.String()),
				slog.Bool("discarded", result.Discarded))

			return result, nil
		}

		switch p.wait(ctx) {
		case pollTimedOut:
			c.logger.WarnContext(ctx, "Timed out awaiting atomic value",
				slog.String("id", h.ID),
				slog.String("reading", reading.String()),
				slog.Duration("waited", p.waited))

			return AwaitResult{Route: RouteTimeout, Reading: reading, Polls: p.polls, Waited: p.waited}, nil
		case pollInterrupted:
			c.logger.WarnContext(ctx, "Interrupted awaiting atomic value",
				slog.String("id", h.ID),
				slog.Any("cause", p.cause))

			return AwaitResult{
				Route:   RouteInterrupted,
				Reading: reading,
				Polls:   p.polls,
				Waited:  p.waited,
				Cause:   p.cause,
			}, nil
		case pollPending:
		}
	}
}

// matchTarget returns the index of the first target matching the observation.
func matchTarget(targets []awaitTarget, reading store.Reading, present bool) (int, bool) {
	for i, t := range targets {
		if t.absent != !present {
			continue
		}

		if t.absent || t.reading.Equal(reading) {
			return i, true
		}
	}

	return 0, false
}
