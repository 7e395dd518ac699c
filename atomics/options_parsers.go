package atomics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/xk6-atomics/atomics/protocol"
)

// parseDurationValue parses a duration value that can be
// either a number (milliseconds) or a string like "1s".
// Caller is responsible for wrapping the error, if it's used in JS code.
func parseDurationValue(v any) (time.Duration, error) {
	switch x := v.(type) {
	case int:
		return durationFromMillis(int64(x))
	case int32:
		return durationFromMillis(int64(x))
	case int64:
		return durationFromMillis(x)
	case uint32:
		return durationFromMillis(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("duration too large: %d", x)
		}

		return durationFromMillis(int64(x))
	case float64:
		if math.Trunc(x) != x {
			return 0, fmt.Errorf("duration must be whole milliseconds: %f", x)
		}

		return durationFromMillis(int64(x))
	case string:
		duration, err := time.ParseDuration(x)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string %q: %w", x, err)
		}

		if duration < 0 {
			return 0, fmt.Errorf("negative duration: %s", x)
		}

		return duration, nil
	default:
		return 0, fmt.Errorf("unsupported duration type: %T", x)
	}
}

// durationFromMillis converts milliseconds to a time.Duration and returns an error if invalid.
func durationFromMillis(ms int64) (time.Duration, error) {
	if ms < 0 {
		return 0, fmt.Errorf("negative duration: %d", ms)
	}

	maxMillis := math.MaxInt64 / int64(time.Millisecond)
	if ms > maxMillis {
		return 0, fmt.Errorf("duration too large: %dms", ms)
	}

	return time.Duration(ms) * time.Millisecond, nil
}

// parseCheckPeriodValue parses a check period, falling back to the default
// when the value is missing.
func parseCheckPeriodValue(v any) (time.Duration, error) {
	if v == nil {
		return DefaultCheckPeriod, nil
	}

	period, err := parseDurationValue(v)
	if err != nil {
		return 0, err
	}

	if period <= 0 {
		return 0, fmt.Errorf("check period must be positive, got %s", period)
	}

	return period, nil
}

// parseTimeoutValue parses a timeout. A missing value, -1 and "none" disable
// the timeout.
func parseTimeoutValue(v any) (time.Duration, error) {
	switch x := v.(type) {
	case nil:
		return protocol.NoTimeout, nil
	case int64:
		if x == -1 {
			return protocol.NoTimeout, nil
		}
	case float64:
		if x == -1 {
			return protocol.NoTimeout, nil
		}
	case string:
		if strings.EqualFold(strings.TrimSpace(x), "none") {
			return protocol.NoTimeout, nil
		}
	}

	return parseDurationValue(v)
}

// formatValueText converts a JS scalar into the text form parsed by the store.
// Strings pass through untouched so the store reports unparsable input.
func formatValueText(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case float64:
		if math.Trunc(x) != x {
			return "", fmt.Errorf("value must be a whole number: %s", humanize.Ftoa(x))
		}

		return strconv.FormatFloat(x, 'f', 0, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type: %T", x)
	}
}
