package store

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when an identifier is accessed with a kind
	// other than the one it was created with.
	ErrTypeMismatch = errors.New("atomic type mismatch")
	// ErrInvalidInitialValue is returned when the initial value text of a new
	// cell cannot be parsed as the requested kind.
	ErrInvalidInitialValue = errors.New("invalid initial value")
	// ErrInvalidValue is returned when a value text cannot be parsed as a kind.
	ErrInvalidValue = errors.New("invalid atomic value")
	// ErrUnknownKind is returned when a kind name is not recognized.
	ErrUnknownKind = errors.New("unknown atomic kind")
	// ErrUnknownShardHash is returned when a shard hash name is not recognized.
	ErrUnknownShardHash = errors.New("unknown shard hash")
	// ErrNilValue is returned when a nil Value is handed to the store.
	ErrNilValue = errors.New("atomic value is nil")
)

// TypeMismatchError reports an access to an identifier with the wrong kind.
type TypeMismatchError struct {
	// ID is the identifier of the cell.
	ID string
	// Requested is the kind the caller asked for.
	Requested Kind
	// Actual is the kind the cell was created with.
	Actual Kind
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: requested %s but found %s for id %q", ErrTypeMismatch, e.Requested, e.Actual, e.ID)
}

// Unwrap lets errors.Is match ErrTypeMismatch.
func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// InvalidValueError reports value text that cannot be parsed as a kind.
type InvalidValueError struct {
	// ID is the identifier the value was meant for, empty when not bound to a cell.
	ID string
	// Kind is the kind the text was parsed as.
	Kind Kind
	// Text is the offending input.
	Text string
	// Sentinel classifies the failure (ErrInvalidValue, ErrInvalidInitialValue, ...).
	Sentinel error
	// Err is the underlying parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("%s: %q is not a valid %s", e.sentinel(), e.Text, e.Kind)
	if e.ID != "" {
		msg += fmt.Sprintf(" for id %q", e.ID)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes the sentinel, ErrInvalidValue and the parse error to errors.Is/As.
func (e *InvalidValueError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.sentinel() != ErrInvalidValue {
		errs = append(errs, ErrInvalidValue)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

func (e *InvalidValueError) sentinel() error {
	if e.Sentinel == nil {
		return ErrInvalidValue
	}

	return e.Sentinel
}
