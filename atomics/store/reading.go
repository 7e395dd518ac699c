package store

import (
	"strconv"
	"strings"
)

// Reading is a typed observation of a cell: the kind plus its payload.
// Readings compare by kind and payload, never by their text form.
type Reading struct {
	kind    Kind
	boolean bool
	integer int32
}

// BoolReading returns a Boolean reading.
func BoolReading(v bool) Reading {
	return Reading{kind: KindBoolean, boolean: v}
}

// IntReading returns an Integer reading.
func IntReading(v int32) Reading {
	return Reading{kind: KindInteger, integer: v}
}

// ParseReading parses text as a reading of the given kind.
//
// Booleans accept "true" and "false" in any letter case.
// Integers accept base-10 signed 32-bit numbers with an optional sign.
func ParseReading(kind Kind, text string) (Reading, error) {
	switch kind {
	case KindBoolean:
		switch {
		case strings.EqualFold(text, "true"):
			return BoolReading(true), nil
		case strings.EqualFold(text, "false"):
			return BoolReading(false), nil
		default:
			return Reading{}, &InvalidValueError{Kind: kind, Text: text}
		}
	case KindInteger:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Reading{}, &InvalidValueError{Kind: kind, Text: text, Err: err}
		}

		return IntReading(int32(v)), nil
	default:
		return Reading{}, &InvalidValueError{Kind: kind, Text: text, Sentinel: ErrUnknownKind}
	}
}

// Kind returns the kind of the reading. The zero Reading has kind 0.
func (r Reading) Kind() Kind {
	return r.kind
}

// Bool returns the payload of a Boolean reading.
// The second result is false when the reading is not a Boolean.
func (r Reading) Bool() (bool, bool) {
	return r.boolean, r.kind == KindBoolean
}

// Int returns the payload of an Integer reading.
// The second result is false when the reading is not an Integer.
func (r Reading) Int() (int32, bool) {
	return r.integer, r.kind == KindInteger
}

// Any returns the payload as a bool or int32, or nil for the zero Reading.
func (r Reading) Any() any {
	switch r.kind {
	case KindBoolean:
		return r.boolean
	case KindInteger:
		return r.integer
	default:
		return nil
	}
}

// Equal reports whether both readings have the same kind and payload.
func (r Reading) Equal(other Reading) bool {
	if r.kind != other.kind {
		return false
	}

	switch r.kind {
	case KindBoolean:
		return r.boolean == other.boolean
	case KindInteger:
		return r.integer == other.integer
	default:
		return true
	}
}

// String formats the payload as text that ParseReading accepts.
func (r Reading) String() string {
	switch r.kind {
	case KindBoolean:
		return strconv.FormatBool(r.boolean)
	case KindInteger:
		return strconv.FormatInt(int64(r.integer), 10)
	default:
		return "<none>"
	}
}
