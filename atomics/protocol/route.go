package protocol

import "fmt"

// Route is the outcome of a protocol call.
type Route int

const (
	// RouteFound means Acquire resolved the identifier to a cell.
	RouteFound Route = iota + 1
	// RouteMatched means Await matched a target or CompareAndRetry applied a transition.
	RouteMatched
	// RouteContinue means the cell was absent and the policy asked to carry on.
	RouteContinue
	// RouteError means the policy asked to treat the outcome as an error.
	RouteError
	// RouteTimeout means the accumulated wait exceeded the timeout.
	RouteTimeout
	// RouteInterrupted means the context was cancelled while waiting.
	RouteInterrupted
	// RouteSkip means no transition applied and the policy asked to skip.
	RouteSkip
	// RouteDefault means there was nothing to wait for or apply.
	RouteDefault
)

// String returns the lower-case route name.
func (r Route) String() string {
	switch r {
	case RouteFound:
		return "found"
	case RouteMatched:
		return "matched"
	case RouteContinue:
		return "continue"
	case RouteError:
		return "error"
	case RouteTimeout:
		return "timeout"
	case RouteInterrupted:
		return "interrupted"
	case RouteSkip:
		return "skip"
	case RouteDefault:
		return "default"
	default:
		return fmt.Sprintf("Route(%d)", int(r))
	}
}

// Stage names the protocol that produced a route.
type Stage int

const (
	// StageAcquire is the Acquire protocol.
	StageAcquire Stage = iota + 1
	// StageAwait is the Await protocol.
	StageAwait
	// StageCompareAndSet is the CompareAndRetry protocol.
	StageCompareAndSet
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageAcquire:
		return "acquire"
	case StageAwait:
		return "await"
	case StageCompareAndSet:
		return "compareAndSet"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// ErrorCode identifies an error outcome for adapters that route failed work
// to an error destination.
type ErrorCode string

const (
	// CodeNoSuchAtomic is reported when the cell is absent and the policy is AbsentError.
	CodeNoSuchAtomic ErrorCode = "NSA1"
	// CodeNoSuchAtomicWaitTimeout is reported when waiting for creation timed out.
	CodeNoSuchAtomicWaitTimeout ErrorCode = "NSA2"
	// CodeNoSuchAtomicWaitInterrupted is reported when waiting for creation was interrupted.
	CodeNoSuchAtomicWaitInterrupted ErrorCode = "NSA3"
	// CodeAwaitInterrupted is reported when Await was interrupted.
	CodeAwaitInterrupted ErrorCode = "AWA4"
	// CodeCompareAndSetInterrupted is reported when CompareAndRetry was interrupted.
	CodeCompareAndSetInterrupted ErrorCode = "CAS5"
)

// Description returns a human-readable description of the code.
func (c ErrorCode) Description() string {
	switch c {
	case CodeNoSuchAtomic:
		return "No such Atomic Value"
	case CodeNoSuchAtomicWaitTimeout:
		return "Timeout reached when waiting for Atomic Value creation"
	case CodeNoSuchAtomicWaitInterrupted:
		return "Thread interrupted whilst waiting for Atomic Value creation"
	case CodeAwaitInterrupted:
		return "Thread interrupted whilst waiting for Atomic Value"
	case CodeCompareAndSetInterrupted:
		return "Thread interrupted whilst waiting to CAS Atomic Value"
	default:
		return ""
	}
}

// ErrorCode returns the error code attached to r when produced by stage.
// Routes that carry no code report false.
func (r Route) ErrorCode(stage Stage) (ErrorCode, bool) {
	switch stage {
	case StageAcquire:
		switch r {
		case RouteError:
			return CodeNoSuchAtomic, true
		case RouteTimeout:
			return CodeNoSuchAtomicWaitTimeout, true
		case RouteInterrupted:
			return CodeNoSuchAtomicWaitInterrupted, true
		}
	case StageAwait:
		if r == RouteInterrupted {
			return CodeAwaitInterrupted, true
		}
	case StageCompareAndSet:
		if r == RouteInterrupted {
			return CodeCompareAndSetInterrupted, true
		}
	}

	return "", false
}
