package protocol

import "errors"

var (
	// ErrInvalidPolicy is returned when a protocol policy is malformed.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrUnknownAbsentAction is returned for an AbsentAction outside the known set.
	ErrUnknownAbsentAction = errors.New("unknown on-absent action")

	// ErrUnknownFailureAction is returned for a FailureAction outside the known set.
	ErrUnknownFailureAction = errors.New("unknown on-failure action")

	// ErrInvalidCheckPeriod is returned when a waiting policy has a non-positive check period.
	ErrInvalidCheckPeriod = errors.New("check period must be positive")

	// ErrInvalidTargetValue is returned when an await target does not parse as the cell kind.
	ErrInvalidTargetValue = errors.New("invalid await target value")

	// ErrMultipleAbsentTargets is returned when more than one await target matches absence.
	ErrMultipleAbsentTargets = errors.New("at most one absent target is allowed")

	// ErrInvalidTransitionValue is returned when a transition does not parse as the cell kind.
	ErrInvalidTransitionValue = errors.New("invalid transition value")

	// ErrInvalidHandle is returned when a handle carries no cell or a cell of another kind.
	ErrInvalidHandle = errors.New("invalid handle")
)
