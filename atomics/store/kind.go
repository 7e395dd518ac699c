package store

import (
	"fmt"
	"strings"
)

// Kind is the closed set of atomic cell types.
// A cell's kind is fixed when it is created and never changes.
type Kind int

const (
	// KindBoolean cells hold a bool.
	KindBoolean Kind = iota + 1
	// KindInteger cells hold a signed 32-bit integer.
	KindInteger
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "Boolean"
	case KindInteger:
		return "Integer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBoolean, KindInteger:
		return true
	default:
		return false
	}
}

// ParseKind converts a kind name into a Kind.
// Names are case-insensitive; "bool" and "int" are accepted as short forms.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "boolean", "bool":
		return KindBoolean, nil
	case "integer", "int":
		return KindInteger, nil
	default:
		return 0, fmt.Errorf("%w: %q; valid values are: %q, %q", ErrUnknownKind, name, "boolean", "integer")
	}
}
