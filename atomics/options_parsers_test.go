package atomics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/xk6-atomics/atomics/protocol"
)

func TestParseDurationValue(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   any
		want    time.Duration
		wantErr bool
	}{
		{"int64 millis", int64(250), 250 * time.Millisecond, false},
		{"int millis", 5, 5 * time.Millisecond, false},
		{"whole float millis", float64(100), 100 * time.Millisecond, false},
		{"fractional float", 1.5, 0, true},
		{"duration string", "2s", 2 * time.Second, false},
		{"bad string", "soon", 0, true},
		{"negative millis", int64(-5), 0, true},
		{"negative string", "-1s", 0, true},
		{"unsupported type", true, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseDurationValue(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTimeoutValue(t *testing.T) {
	t.Parallel()

	for _, disabled := range []any{nil, int64(-1), float64(-1), "none", " NONE "} {
		got, err := parseTimeoutValue(disabled)
		require.NoError(t, err)
		assert.Equal(t, protocol.NoTimeout, got)
	}

	got, err := parseTimeoutValue(int64(0))
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = parseTimeoutValue("1m")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, got)

	_, err = parseTimeoutValue(int64(-2))
	require.Error(t, err)
}

func TestParseCheckPeriodValue(t *testing.T) {
	t.Parallel()

	got, err := parseCheckPeriodValue(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckPeriod, got)

	got, err = parseCheckPeriodValue(int64(20))
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, got)

	_, err = parseCheckPeriodValue(int64(0))
	require.Error(t, err)
}

func TestFormatValueText(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{"nil", nil, "", false},
		{"string", "True", "True", false},
		{"bool", false, "false", false},
		{"int64", int64(-3), "-3", false},
		{"whole float", float64(42), "42", false},
		{"fractional float", 0.5, "", true},
		{"unsupported", []int{1}, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := formatValueText(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAcquireOptionsPolicy(t *testing.T) {
	t.Parallel()

	var nilOptions *AcquireOptions

	policy, err := nilOptions.acquirePolicy()
	require.NoError(t, err)
	assert.Equal(t, protocol.AbsentContinue, policy.OnAbsent)
	assert.Equal(t, protocol.NoTimeout, policy.Timeout)

	policy, err = (&AcquireOptions{
		OnAbsent:     "wait",
		CheckPeriod:  "50ms",
		Timeout:      int64(5000),
		InitialValue: int64(1),
	}).acquirePolicy()
	require.NoError(t, err)
	assert.Equal(t, protocol.AbsentWait, policy.OnAbsent)
	assert.Equal(t, 50*time.Millisecond, policy.CheckPeriod)
	assert.Equal(t, 5*time.Second, policy.Timeout)
	assert.Equal(t, "1", policy.InitialValue)

	_, err = (&AcquireOptions{OnAbsent: "sometimes"}).acquirePolicy()
	require.ErrorIs(t, err, protocol.ErrUnknownAbsentAction)
}

func TestCompareAndRetryOptionsPolicy(t *testing.T) {
	t.Parallel()

	policy, err := (&CompareAndRetryOptions{
		Transitions: []TransitionOptions{{Expected: true, New: false, Label: "lower"}},
		OnFailure:   "retry",
		CheckPeriod: int64(10),
	}).compareAndSetPolicy()
	require.NoError(t, err)
	assert.Equal(t, protocol.FailureRetry, policy.OnFailure)
	assert.Equal(t, []protocol.Transition{{Expected: "true", New: "false", Label: "lower"}}, policy.Transitions)

	policy, err = (&CompareAndRetryOptions{}).compareAndSetPolicy()
	require.NoError(t, err)
	assert.Equal(t, protocol.FailureError, policy.OnFailure)
	assert.Empty(t, policy.Transitions)
}

func TestOptionsEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, Options{ShardCount: 3}.Equal(Options{ShardCount: 3}))
	assert.False(t, Options{ShardCount: 3}.Equal(Options{ShardCount: 4}))
	assert.True(t, Options{}.Equal(Options{ShardCount: -1}), "non-positive counts both select the default")
	assert.True(t, Options{}.Equal(Options{ShardHash: "xxhash"}), "an empty hash selects xxhash")
	assert.True(t, Options{ShardHash: "fnv"}.Equal(Options{ShardHash: "FNV1a"}))
	assert.False(t, Options{ShardHash: "fnv"}.Equal(Options{}))
	assert.False(t, Options{ShardHash: "md5"}.Equal(Options{ShardHash: "md5"}), "unknown hashes never match")
}
