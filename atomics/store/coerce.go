package store

import (
	"strconv"
	"strings"
)

// CoerceText converts loosely formatted text into text that ParseReading
// accepts for kind. It never fails.
//
// For Boolean: "true"/"false" (any case) pass through lower-cased, an integer
// greater than zero becomes "true", anything else "false".
// For Integer: a valid 32-bit integer passes through, "true" becomes "1",
// anything else "0".
func CoerceText(kind Kind, text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))

	switch kind {
	case KindBoolean:
		if lowered == "true" || lowered == "false" {
			return lowered
		}

		n, err := strconv.ParseInt(lowered, 10, 32)
		if err == nil && n > 0 {
			return "true"
		}

		return "false"
	case KindInteger:
		if _, err := strconv.ParseInt(lowered, 10, 32); err == nil {
			return lowered
		}

		if lowered == "true" {
			return "1"
		}

		return "0"
	default:
		return text
	}
}
