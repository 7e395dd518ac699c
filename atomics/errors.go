package atomics

import (
	"errors"

	"github.com/oshokin/xk6-atomics/atomics/protocol"
	"github.com/oshokin/xk6-atomics/atomics/store"
)

var (
	// ErrOptionsInvalid is returned when a JS options object cannot be parsed.
	ErrOptionsInvalid = errors.New("invalid options")

	// ErrOptionsConflict is returned when openAtomics() is called with options
	// that differ from the ones the shared store was created with.
	ErrOptionsConflict = errors.New("atomics already opened with different options")

	// ErrNotOpen is returned when a method is called before openAtomics().
	ErrNotOpen = errors.New("atomics is not open")
)

var _ error = (*Error)(nil)

// ErrorName represents the name of an error.
type ErrorName string

const (
	// DatabaseNotOpenError is emitted when the store is used before openAtomics().
	DatabaseNotOpenError ErrorName = "DatabaseNotOpenError"

	// InvalidOptionsError is emitted for malformed options or policies.
	InvalidOptionsError ErrorName = "InvalidOptionsError"

	// OptionsConflictError is emitted when openAtomics() options differ from the first call.
	OptionsConflictError ErrorName = "OptionsConflictError"

	// InvalidValueError is emitted when a value text does not parse as the cell kind.
	InvalidValueError ErrorName = "InvalidValueError"

	// TypeMismatchError is emitted when an identifier is used with another kind.
	TypeMismatchError ErrorName = "TypeMismatchError"

	// UnknownKindError is emitted for a kind name outside boolean and integer.
	UnknownKindError ErrorName = "UnknownKindError"
)

// Error represents a custom error emitted by the atomics module.
type Error struct {
	// Name contains one of the strings associated with an error name.
	Name ErrorName `json:"name"`

	// Message represents message or description associated with the given error name.
	Message string `json:"message"`
}

// NewError returns a new Error instance.
func NewError(name ErrorName, message string) *Error {
	return &Error{
		Name:    name,
		Message: message,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Name) + ": " + e.Message
}

// classifyError downgrades internal Go errors to structured errors for JS.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var atomicsErr *Error
	if errors.As(err, &atomicsErr) {
		return atomicsErr
	}

	switch {
	case errors.Is(err, ErrNotOpen):
		return NewError(DatabaseNotOpenError, err.Error())
	case errors.Is(err, ErrOptionsConflict):
		return NewError(OptionsConflictError, err.Error())
	case errors.Is(err, store.ErrTypeMismatch),
		errors.Is(err, protocol.ErrInvalidHandle):
		return NewError(TypeMismatchError, err.Error())
	case errors.Is(err, store.ErrUnknownKind):
		return NewError(UnknownKindError, err.Error())
	case errors.Is(err, store.ErrInvalidValue),
		errors.Is(err, protocol.ErrInvalidTargetValue),
		errors.Is(err, protocol.ErrInvalidTransitionValue):
		return NewError(InvalidValueError, err.Error())
	case errors.Is(err, ErrOptionsInvalid),
		errors.Is(err, protocol.ErrInvalidPolicy),
		errors.Is(err, protocol.ErrUnknownAbsentAction),
		errors.Is(err, protocol.ErrUnknownFailureAction):
		return NewError(InvalidOptionsError, err.Error())
	}

	return err
}
