package store

import (
	"fmt"
	"sync/atomic"
)

// Value is an atomic cell. It is a closed union: the only implementations are
// *BoolValue and *IntValue, so consumers can switch over them exhaustively.
type Value interface {
	// Kind returns the fixed kind of the cell.
	Kind() Kind
	// Load atomically reads the current payload.
	Load() Reading
	// CompareAndSet atomically installs next if the current payload equals expected.
	// Readings of a different kind fail with ErrTypeMismatch and leave the cell untouched.
	CompareAndSet(expected, next Reading) (bool, error)

	sealed()
}

// Compile-time interface assertions.
var (
	_ Value = (*BoolValue)(nil)
	_ Value = (*IntValue)(nil)
)

// BoolValue is a Boolean cell.
type BoolValue struct {
	v atomic.Bool
}

// NewBoolValue returns a Boolean cell holding initial.
func NewBoolValue(initial bool) *BoolValue {
	b := new(BoolValue)
	b.v.Store(initial)

	return b
}

// Kind implements Value.
func (*BoolValue) Kind() Kind {
	return KindBoolean
}

// Load implements Value.
func (b *BoolValue) Load() Reading {
	return BoolReading(b.v.Load())
}

// CompareAndSet implements Value.
func (b *BoolValue) CompareAndSet(expected, next Reading) (bool, error) {
	oldValue, okOld := expected.Bool()
	newValue, okNew := next.Bool()

	if !okOld || !okNew {
		return false, readingKindError(KindBoolean, expected, next)
	}

	return b.v.CompareAndSwap(oldValue, newValue), nil
}

func (*BoolValue) sealed() {}

// IntValue is an Integer cell.
type IntValue struct {
	v atomic.Int32
}

// NewIntValue returns an Integer cell holding initial.
func NewIntValue(initial int32) *IntValue {
	i := new(IntValue)
	i.v.Store(initial)

	return i
}

// Kind implements Value.
func (*IntValue) Kind() Kind {
	return KindInteger
}

// Load implements Value.
func (i *IntValue) Load() Reading {
	return IntReading(i.v.Load())
}

// CompareAndSet implements Value.
func (i *IntValue) CompareAndSet(expected, next Reading) (bool, error) {
	oldValue, okOld := expected.Int()
	newValue, okNew := next.Int()

	if !okOld || !okNew {
		return false, readingKindError(KindInteger, expected, next)
	}

	return i.v.CompareAndSwap(oldValue, newValue), nil
}

func (*IntValue) sealed() {}

// NewValue constructs a cell holding the given reading.
func NewValue(initial Reading) (Value, error) {
	switch initial.Kind() {
	case KindBoolean:
		b, _ := initial.Bool()
		return NewBoolValue(b), nil
	case KindInteger:
		i, _ := initial.Int()
		return NewIntValue(i), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, initial.Kind())
	}
}

// readingKindError builds the error for a compare-and-set with mismatching readings.
func readingKindError(cell Kind, expected, next Reading) error {
	actual := expected.Kind()
	if actual == cell {
		actual = next.Kind()
	}

	return fmt.Errorf("%w: %s cell cannot compare-and-set %s readings", ErrTypeMismatch, cell, actual)
}
