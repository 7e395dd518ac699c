package store

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseReading covers the accepted text forms for both kinds and the
// rejection of malformed or out-of-range input.
func TestParseReading(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		kind    Kind
		text    string
		want    Reading
		wantErr bool
	}{
		{name: "true lower", kind: KindBoolean, text: "true", want: BoolReading(true)},
		{name: "true title", kind: KindBoolean, text: "True", want: BoolReading(true)},
		{name: "false upper", kind: KindBoolean, text: "FALSE", want: BoolReading(false)},
		{name: "bool from number", kind: KindBoolean, text: "1", wantErr: true},
		{name: "bool empty", kind: KindBoolean, text: "", wantErr: true},
		{name: "int zero", kind: KindInteger, text: "0", want: IntReading(0)},
		{name: "int plus sign", kind: KindInteger, text: "+5", want: IntReading(5)},
		{name: "int min", kind: KindInteger, text: "-2147483648", want: IntReading(-2147483648)},
		{name: "int overflow", kind: KindInteger, text: "2147483648", wantErr: true},
		{name: "int garbage", kind: KindInteger, text: "abc", wantErr: true},
		{name: "int from bool", kind: KindInteger, text: "true", wantErr: true},
		{name: "unknown kind", kind: Kind(9), text: "1", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseReading(tc.kind, tc.text)
			if tc.wantErr {
				require.Error(t, err)

				var invalid *InvalidValueError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tc.text, invalid.Text)

				return
			}

			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

// TestReadingEqualIsTyped verifies that equality compares payloads, not text,
// and never matches across kinds.
func TestReadingEqualIsTyped(t *testing.T) {
	t.Parallel()

	upper, err := ParseReading(KindBoolean, "True")
	require.NoError(t, err)

	lower, err := ParseReading(KindBoolean, "true")
	require.NoError(t, err)

	assert.True(t, upper.Equal(lower))
	assert.Equal(t, "true", upper.String())

	assert.False(t, IntReading(1).Equal(BoolReading(true)))
	assert.False(t, IntReading(0).Equal(Reading{}))
	assert.True(t, Reading{}.Equal(Reading{}))
}

// TestReadingAccessors checks typed accessors and Any.
func TestReadingAccessors(t *testing.T) {
	t.Parallel()

	r := IntReading(42)

	v, ok := r.Int()
	require.True(t, ok)
	assert.EqualValues(t, 42, v)

	_, ok = r.Bool()
	assert.False(t, ok)

	assert.Equal(t, int32(42), r.Any())
	assert.Equal(t, true, BoolReading(true).Any())
	assert.Nil(t, Reading{}.Any())
	assert.Equal(t, strconv.Itoa(42), r.String())
}
