package simconfig

import (
	"fmt"
	"slices"
	"strings"

	"github.com/oshokin/xk6-atomics/atomics/store"
	"github.com/oshokin/xk6-atomics/internal/logging"
)

// MaxWorkers bounds the worker count; the countdown cell is a 32-bit integer
// and every worker adds one transition per round.
const MaxWorkers = 1024

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "logging.level")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))

	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}

	return sb.String()
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Workers < 1 || c.Workers > MaxWorkers {
		errs = append(errs, ValidationError{
			Field:   "workers",
			Value:   c.Workers,
			Message: fmt.Sprintf("must be between 1 and %d", MaxWorkers),
		})
	}

	if c.Rows < 1 {
		errs = append(errs, ValidationError{
			Field:   "rows",
			Value:   c.Rows,
			Message: "must be at least 1",
		})
	}

	if c.CheckPeriod <= 0 {
		errs = append(errs, ValidationError{
			Field:   "check_period",
			Value:   c.CheckPeriod,
			Message: "must be positive",
		})
	}

	if c.Shards < 0 || c.Shards > store.MaxShardCount {
		errs = append(errs, ValidationError{
			Field:   "shards",
			Value:   c.Shards,
			Message: fmt.Sprintf("must be between 0 and %d", store.MaxShardCount),
		})
	}

	if _, err := store.ParseShardHash(c.ShardHash); err != nil {
		errs = append(errs, ValidationError{
			Field:   "shard_hash",
			Value:   c.ShardHash,
			Message: "must be one of: xxhash, fnv",
		})
	}

	if !slices.Contains(logging.ValidLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidLevels(), ", ")),
		})
	}

	if !slices.Contains(logging.ValidFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidFormats(), ", ")),
		})
	}

	return errs
}
