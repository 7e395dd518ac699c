package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oshokin/xk6-atomics/atomics/store"
)

// FailureAction selects what CompareAndRetry does when no transition applies.
type FailureAction int

const (
	// FailureSkip reports RouteSkip.
	FailureSkip FailureAction = iota + 1
	// FailureError reports RouteError.
	FailureError
	// FailureRetry sleeps and tries the transitions again.
	FailureRetry
)

// String returns the action name.
func (a FailureAction) String() string {
	switch a {
	case FailureSkip:
		return "skip"
	case FailureError:
		return "error"
	case FailureRetry:
		return "retry"
	default:
		return fmt.Sprintf("FailureAction(%d)", int(a))
	}
}

// ParseFailureAction parses an action name.
func ParseFailureAction(name string) (FailureAction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "skip":
		return FailureSkip, nil
	case "error":
		return FailureError, nil
	case "retry", "loop":
		return FailureRetry, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFailureAction, name)
	}
}

// Transition is one compare-and-set attempt.
type Transition struct {
	Expected string
	New      string
	// Label is an opaque name reported back to the caller.
	Label string
}

// CompareAndSetPolicy configures CompareAndRetry.
type CompareAndSetPolicy struct {
	// Transitions are tried in order; at most one is applied per round.
	Transitions []Transition
	OnFailure   FailureAction
	// CheckPeriod is the delay between rounds with FailureRetry.
	CheckPeriod time.Duration
	// Timeout bounds the accumulated wait with FailureRetry; negative retries forever.
	Timeout time.Duration
}

type transition struct {
	expected store.Reading
	next     store.Reading
}

// Validate checks the policy for a cell of the given kind.
func (p CompareAndSetPolicy) Validate(kind store.Kind) error {
	_, err := p.compile(kind)

	return err
}

func (p CompareAndSetPolicy) compile(kind store.Kind) ([]transition, error) {
	switch p.OnFailure {
	case FailureSkip, FailureError:
	case FailureRetry:
		if p.CheckPeriod <= 0 {
			return nil, checkPeriodError(p.CheckPeriod)
		}
	default:
		return nil, fmt.Errorf("%w: %w: %s", ErrInvalidPolicy, ErrUnknownFailureAction, p.OnFailure)
	}

	transitions := make([]transition, 0, len(p.Transitions))

	for i, t := range p.Transitions {
		expected, err := store.ParseReading(kind, t.Expected)
		if err != nil {
			return nil, fmt.Errorf("%w: transition %d expected: %w", ErrInvalidTransitionValue, i, err)
		}

		next, err := store.ParseReading(kind, t.New)
		if err != nil {
			return nil, fmt.Errorf("%w: transition %d new: %w", ErrInvalidTransitionValue, i, err)
		}

		transitions = append(transitions, transition{expected: expected, next: next})
	}

	return transitions, nil
}

// CompareAndSetResult is the outcome of CompareAndRetry.
type CompareAndSetResult struct {
	Route Route
	// Index is the position of the applied transition; only set with RouteMatched.
	Index      int
	Transition Transition
	// Previous and Current are the readings before and after the applied
	// transition. On failure Current holds the last reading observed.
	Previous store.Reading
	Current  store.Reading
	Polls    int
	Waited   time.Duration
	// Cause is the cancellation cause when Route is RouteInterrupted.
	Cause error
}

// CompareAndRetry tries the policy transitions in order against the cell
// behind h and stops at the first one that applies.
//
// Every round looks h.ID up in the store, so a transition is never applied to
// a cell that was removed after Acquire. A removed cell counts as a failed
// round and, with FailureRetry, a re-created cell is picked up. Without
// transitions CompareAndRetry returns RouteDefault.
func (c *Coordinator) CompareAndRetry(
	ctx context.Context,
	h Handle,
	policy CompareAndSetPolicy,
) (CompareAndSetResult, error) {
	if err := h.validate(); err != nil {
		return CompareAndSetResult{}, err
	}

	transitions, err := policy.compile(h.Kind)
	if err != nil {
		return CompareAndSetResult{}, err
	}

	if len(transitions) == 0 {
		return CompareAndSetResult{Route: RouteDefault}, nil
	}

	p := newPoller(c.sleeper, policy.CheckPeriod, policy.Timeout)

	for {
		var last store.Reading

		current, _, err := c.store.Get(h.ID, h.Kind)
		if err != nil {
			return CompareAndSetResult{Polls: p.polls, Waited: p.waited}, err
		}

		if current != nil {
			for i, t := range transitions {
				ok, err := current.CompareAndSet(t.expected, t.next)
				if err != nil {
					return CompareAndSetResult{Polls: p.polls, Waited: p.waited}, err
				}

				if ok {
					c.logger.DebugContext(ctx, "Atomic value transition applied",
						slog.String("id", h.ID),
						slog.Int("transition", i),
						slog.String("from", t.expected.String()),
						slog.String("to", t.next.String()))

					return CompareAndSetResult{
						Route:      RouteMatched,
						Index:      i,
						Transition: policy.Transitions[i],
						Previous:   t.expected,
						Current:    t.next,
						Polls:      p.polls,
						Waited:     p.waited,
					}, nil
				}
			}

			last = current.Load()
		}

		switch policy.OnFailure {
		case FailureSkip:
			return CompareAndSetResult{Route: RouteSkip, Current: last}, nil
		case FailureError:
			return CompareAndSetResult{Route: RouteError, Current: last}, nil
		case FailureRetry:
		}

		switch p.wait(ctx) {
		case pollTimedOut:
			c.logger.WarnContext(ctx, "Timed out retrying atomic value transition",
				slog.String("id", h.ID),
				slog.String("reading", last.String()),
				slog.Duration("waited", p.waited))

			return CompareAndSetResult{Route: RouteTimeout, Current: last, Polls: p.polls, Waited: p.waited}, nil
		case pollInterrupted:
			c.logger.WarnContext(ctx, "Interrupted retrying atomic value transition",
				slog.String("id", h.ID),
				slog.Any("cause", p.cause))

			return CompareAndSetResult{
				Route:   RouteInterrupted,
				Current: last,
				Polls:   p.polls,
				Waited:  p.waited,
				Cause:   p.cause,
			}, nil
		case pollPending:
		}
	}
}
