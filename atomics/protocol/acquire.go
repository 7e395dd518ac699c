package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oshokin/xk6-atomics/atomics/store"
)

// AbsentAction selects what Acquire does when the identifier is absent.
type AbsentAction int

const (
	// AbsentInitialise creates the cell from the initial value.
	AbsentInitialise AbsentAction = iota + 1
	// AbsentContinue reports RouteContinue.
	AbsentContinue
	// AbsentError reports RouteError.
	AbsentError
	// AbsentWait polls until another worker creates the cell.
	AbsentWait
)

// String returns the action name.
func (a AbsentAction) String() string {
	switch a {
	case AbsentInitialise:
		return "initialise"
	case AbsentContinue:
		return "continue"
	case AbsentError:
		return "error"
	case AbsentWait:
		return "wait"
	default:
		return fmt.Sprintf("AbsentAction(%d)", int(a))
	}
}

// ParseAbsentAction parses an action name. Both spellings of initialise are accepted.
func ParseAbsentAction(name string) (AbsentAction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "initialise", "initialize", "init":
		return AbsentInitialise, nil
	case "continue":
		return AbsentContinue, nil
	case "error":
		return AbsentError, nil
	case "wait":
		return AbsentWait, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAbsentAction, name)
	}
}

// AcquirePolicy configures Acquire.
type AcquirePolicy struct {
	// OnAbsent selects the behavior when the identifier is absent.
	OnAbsent AbsentAction
	// InitialValue is the text the cell is created from with AbsentInitialise.
	InitialValue string
	// CheckPeriod is the delay between lookups with AbsentWait.
	CheckPeriod time.Duration
	// Timeout bounds the accumulated wait with AbsentWait; negative waits forever.
	Timeout time.Duration
}

// Validate checks the policy for a cell of the given kind.
func (p AcquirePolicy) Validate(kind store.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %w: %s", ErrInvalidPolicy, store.ErrUnknownKind, kind)
	}

	switch p.OnAbsent {
	case AbsentInitialise:
		if _, err := store.ParseReading(kind, p.InitialValue); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidInitialValue, err)
		}
	case AbsentWait:
		if p.CheckPeriod <= 0 {
			return checkPeriodError(p.CheckPeriod)
		}
	case AbsentContinue, AbsentError:
	default:
		return fmt.Errorf("%w: %w: %s", ErrInvalidPolicy, ErrUnknownAbsentAction, p.OnAbsent)
	}

	return nil
}

// AcquireResult is the outcome of Acquire.
type AcquireResult struct {
	Route Route
	// Handle is only set when Route is RouteFound.
	Handle Handle
	// Created reports whether this call created the cell.
	Created bool
	Polls   int
	Waited  time.Duration
	// Cause is the cancellation cause when Route is RouteInterrupted.
	Cause error
}

// Acquire resolves id to a cell of the given kind according to policy.
//
// The returned error is non-nil only for configuration errors and type
// mismatches; absence, timeouts and interruptions are reported as routes.
func (c *Coordinator) Acquire(
	ctx context.Context,
	id string,
	kind store.Kind,
	policy AcquirePolicy,
) (AcquireResult, error) {
	if err := policy.Validate(kind); err != nil {
		return AcquireResult{}, err
	}

	switch policy.OnAbsent {
	case AbsentInitialise:
		v, created, err := c.store.GetOrCreate(id, kind, policy.InitialValue)
		if err != nil {
			return AcquireResult{}, err
		}

		c.logger.DebugContext(ctx, "Atomic value acquired",
			slog.String("id", id),
			slog.Bool("created", created))

		return AcquireResult{
			Route:   RouteFound,
			Handle:  Handle{ID: id, Kind: kind, Value: v},
			Created: created,
		}, nil
	case AbsentWait:
		return c.waitForCreation(ctx, id, kind, policy)
	default:
		v, ok, err := c.store.Get(id, kind)
		if err != nil {
			return AcquireResult{}, err
		}

		if ok {
			return AcquireResult{Route: RouteFound, Handle: Handle{ID: id, Kind: kind, Value: v}}, nil
		}

		if policy.OnAbsent == AbsentError {
			return AcquireResult{Route: RouteError}, nil
		}

		return AcquireResult{Route: RouteContinue}, nil
	}
}

func (c *Coordinator) waitForCreation(
	ctx context.Context,
	id string,
	kind store.Kind,
	policy AcquirePolicy,
) (AcquireResult, error) {
	p := newPoller(c.sleeper, policy.CheckPeriod, policy.Timeout)

	for {
		v, ok, err := c.store.Get(id, kind)
		if err != nil {
			return AcquireResult{Polls: p.polls, Waited: p.waited}, err
		}

		if ok {
			c.logger.DebugContext(ctx, "Atomic value appeared",
				slog.String("id", id),
				slog.Int("polls", p.polls),
				slog.Duration("waited", p.waited))

			return AcquireResult{
				Route:  RouteFound,
				Handle: Handle{ID: id, Kind: kind, Value: v},
				Polls:  p.polls,
				Waited: p.waited,
			}, nil
		}

		switch p.wait(ctx) {
		case pollTimedOut:
			c.logger.WarnContext(ctx, "Timed out waiting for atomic value creation",
				slog.String("id", id),
				slog.Duration("waited", p.waited))

			return AcquireResult{Route: RouteTimeout, Polls: p.polls, Waited: p.waited}, nil
		case pollInterrupted:
			c.logger.WarnContext(ctx, "Interrupted waiting for atomic value creation",
				slog.String("id", id),
				slog.Any("cause", p.cause))

			return AcquireResult{Route: RouteInterrupted, Polls: p.polls, Waited: p.waited, Cause: p.cause}, nil
		case pollPending:
		}
	}
}
