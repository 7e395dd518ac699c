package store

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBoolValue_CompareAndSet checks that CAS succeeds only when the current
// payload equals the expected one and installs the new payload.
func TestBoolValue_CompareAndSet(t *testing.T) {
	t.Parallel()

	v := NewBoolValue(true)

	swapped, err := v.CompareAndSet(BoolReading(false), BoolReading(true))
	require.NoError(t, err)
	assert.False(t, swapped, "current is true, expected false must fail")
	assert.True(t, v.Load().Equal(BoolReading(true)))

	swapped, err = v.CompareAndSet(BoolReading(true), BoolReading(false))
	require.NoError(t, err)
	assert.True(t, swapped)
	assert.True(t, v.Load().Equal(BoolReading(false)))
}

// TestIntValue_CompareAndSet checks CAS on integer cells.
func TestIntValue_CompareAndSet(t *testing.T) {
	t.Parallel()

	v := NewIntValue(1)

	swapped, err := v.CompareAndSet(IntReading(2), IntReading(3))
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = v.CompareAndSet(IntReading(1), IntReading(-7))
	require.NoError(t, err)
	assert.True(t, swapped)
	assert.True(t, v.Load().Equal(IntReading(-7)))
}

// TestValue_CompareAndSetRejectsOtherKinds verifies readings of another kind
// never touch the cell.
func TestValue_CompareAndSetRejectsOtherKinds(t *testing.T) {
	t.Parallel()

	i := NewIntValue(1)

	swapped, err := i.CompareAndSet(BoolReading(true), IntReading(2))
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.False(t, swapped)

	_, err = i.CompareAndSet(IntReading(1), BoolReading(false))
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.True(t, i.Load().Equal(IntReading(1)), "cell must be untouched")

	b := NewBoolValue(false)
	_, err = b.CompareAndSet(IntReading(0), BoolReading(true))
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.True(t, b.Load().Equal(BoolReading(false)))
}

// TestValue_CompareAndSetSingleWinner races many goroutines on the same
// expected value: exactly one may win.
func TestValue_CompareAndSetSingleWinner(t *testing.T) {
	t.Parallel()

	const contenders = 64

	var (
		v       = NewIntValue(0)
		winners atomic.Int32
		start   = make(chan struct{})
		wg      sync.WaitGroup
	)

	for i := range contenders {
		wg.Add(1)

		go func(next int32) {
			defer wg.Done()

			<-start

			swapped, err := v.CompareAndSet(IntReading(0), IntReading(next))
			assert.NoError(t, err)

			if swapped {
				winners.Add(1)
			}
		}(int32(i + 1))
	}

	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load(), "exactly one CAS must win")

	final, _ := v.Load().Int()
	assert.NotZero(t, final)
}

// TestNewValue builds cells from readings and rejects the zero Reading.
func TestNewValue(t *testing.T) {
	t.Parallel()

	v, err := NewValue(BoolReading(true))
	require.NoError(t, err)
	require.IsType(t, &BoolValue{}, v)
	assert.Equal(t, KindBoolean, v.Kind())

	v, err = NewValue(IntReading(5))
	require.NoError(t, err)
	require.IsType(t, &IntValue{}, v)
	assert.True(t, v.Load().Equal(IntReading(5)))

	_, err = NewValue(Reading{})
	require.ErrorIs(t, err, ErrUnknownKind)
}
