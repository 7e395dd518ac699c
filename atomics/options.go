package atomics

import (
	"fmt"
	"time"

	"github.com/grafana/sobek"
	"go.k6.io/k6/js/common"
	"go.k6.io/k6/js/modules"

	"github.com/oshokin/xk6-atomics/atomics/protocol"
	"github.com/oshokin/xk6-atomics/atomics/store"
)

const (
	// DefaultKind is used when an options object omits the kind.
	DefaultKind = store.KindBoolean

	// DefaultCheckPeriod is used when a waiting policy omits the check period.
	DefaultCheckPeriod = 100 * time.Millisecond
)

// Options controls how the shared store is created on the first call to openAtomics().
type Options struct {
	// ShardCount sets the number of store shards.
	// If <= 0, defaults to runtime.NumCPU() (automatic).
	// If > store.MaxShardCount, capped at store.MaxShardCount.
	ShardCount int `js:"shardCount"`
	// ShardHash names the hash that spreads identifiers over shards:
	// "xxhash" (default) or "fnv".
	ShardHash string `js:"shardHash"`
}

// NewOptionsFrom converts a Sobek (JS) value into an Options instance, applying defaults.
func NewOptionsFrom(vu modules.VU, options sobek.Value) (Options, error) {
	var opts Options

	if common.IsNullish(options) {
		return opts, nil
	}

	if err := vu.Runtime().ExportTo(options, &opts); err != nil {
		return opts, fmt.Errorf("%w: %w", ErrOptionsInvalid, err)
	}

	if _, err := opts.storeConfig(); err != nil {
		return opts, err
	}

	return opts, nil
}

// storeConfig returns the store configuration described by the options.
func (o Options) storeConfig() (*store.Config, error) {
	hash, err := store.ParseShardHash(o.ShardHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOptionsInvalid, err)
	}

	return &store.Config{ShardCount: o.ShardCount, ShardHash: hash}, nil
}

// Equal checks if two Options select the same store layout.
func (o Options) Equal(other Options) bool {
	cfg, err := o.storeConfig()
	if err != nil {
		return false
	}

	otherCfg, err := other.storeConfig()
	if err != nil {
		return false
	}

	return cfg.GetShardCount() == otherCfg.GetShardCount() && cfg.ShardHash == otherCfg.ShardHash
}

// AcquireOptions is the JS shape of an acquire policy.
type AcquireOptions struct {
	// Kind is "boolean" or "integer"; ignored when nested in await/compareAndRetry options.
	Kind string `js:"kind"`
	// OnAbsent is one of "initialise", "continue", "error" or "wait".
	OnAbsent string `js:"onAbsent"`
	// InitialValue is the value used with "initialise".
	InitialValue any `js:"initialValue"`
	// CheckPeriod is milliseconds or a duration string; used with "wait".
	CheckPeriod any `js:"checkPeriod"`
	// Timeout is milliseconds or a duration string; -1 or "none" waits forever.
	Timeout any `js:"timeout"`
}

// TargetOptions is the JS shape of an await target.
type TargetOptions struct {
	Value   any    `js:"value"`
	Absent  bool   `js:"absent"`
	Discard bool   `js:"discard"`
	Label   string `js:"label"`
}

// AwaitOptions is the JS shape of an await call.
type AwaitOptions struct {
	Kind        string          `js:"kind"`
	Acquire     *AcquireOptions `js:"acquire"`
	Targets     []TargetOptions `js:"targets"`
	CheckPeriod any             `js:"checkPeriod"`
	Timeout     any             `js:"timeout"`
}

// TransitionOptions is the JS shape of a compare-and-set transition.
type TransitionOptions struct {
	Expected any    `js:"expected"`
	New      any    `js:"new"`
	Label    string `js:"label"`
}

// CompareAndRetryOptions is the JS shape of a compareAndRetry call.
type CompareAndRetryOptions struct {
	Kind        string              `js:"kind"`
	Acquire     *AcquireOptions     `js:"acquire"`
	Transitions []TransitionOptions `js:"transitions"`
	// OnFailure is one of "skip", "error" or "retry".
	OnFailure   string `js:"onFailure"`
	CheckPeriod any    `js:"checkPeriod"`
	Timeout     any    `js:"timeout"`
}

// exportOptions copies a JS options object into target; nullish values leave it untouched.
func exportOptions(rt *sobek.Runtime, value sobek.Value, target any) error {
	if common.IsNullish(value) {
		return nil
	}

	if err := rt.ExportTo(value, target); err != nil {
		return fmt.Errorf("%w: %w", ErrOptionsInvalid, err)
	}

	return nil
}

// parseKindName parses a kind, defaulting to DefaultKind when empty.
func parseKindName(name string) (store.Kind, error) {
	if name == "" {
		return DefaultKind, nil
	}

	return store.ParseKind(name)
}

// acquirePolicy converts the JS acquire options; nil selects "continue".
func (o *AcquireOptions) acquirePolicy() (protocol.AcquirePolicy, error) {
	policy := protocol.AcquirePolicy{
		OnAbsent:    protocol.AbsentContinue,
		CheckPeriod: DefaultCheckPeriod,
		Timeout:     protocol.NoTimeout,
	}

	if o == nil {
		return policy, nil
	}

	var err error

	if o.OnAbsent != "" {
		if policy.OnAbsent, err = protocol.ParseAbsentAction(o.OnAbsent); err != nil {
			return policy, err
		}
	}

	if policy.InitialValue, err = formatValueText(o.InitialValue); err != nil {
		return policy, fmt.Errorf("%w: initialValue: %w", ErrOptionsInvalid, err)
	}

	if policy.CheckPeriod, err = parseCheckPeriodValue(o.CheckPeriod); err != nil {
		return policy, fmt.Errorf("%w: checkPeriod: %w", ErrOptionsInvalid, err)
	}

	if policy.Timeout, err = parseTimeoutValue(o.Timeout); err != nil {
		return policy, fmt.Errorf("%w: timeout: %w", ErrOptionsInvalid, err)
	}

	return policy, nil
}

// awaitPolicy converts the JS await options.
func (o *AwaitOptions) awaitPolicy() (protocol.AwaitPolicy, error) {
	var (
		policy protocol.AwaitPolicy
		err    error
	)

	if policy.CheckPeriod, err = parseCheckPeriodValue(o.CheckPeriod); err != nil {
		return policy, fmt.Errorf("%w: checkPeriod: %w", ErrOptionsInvalid, err)
	}

	if policy.Timeout, err = parseTimeoutValue(o.Timeout); err != nil {
		return policy, fmt.Errorf("%w: timeout: %w", ErrOptionsInvalid, err)
	}

	policy.Targets = make([]protocol.AwaitTarget, 0, len(o.Targets))

	for i, t := range o.Targets {
		text, err := formatValueText(t.Value)
		if err != nil {
			return policy, fmt.Errorf("%w: targets[%d].value: %w", ErrOptionsInvalid, i, err)
		}

		policy.Targets = append(policy.Targets, protocol.AwaitTarget{
			Value:   text,
			Absent:  t.Absent,
			Discard: t.Discard,
			Label:   t.Label,
		})
	}

	return policy, nil
}

// compareAndSetPolicy converts the JS compareAndRetry options.
func (o *CompareAndRetryOptions) compareAndSetPolicy() (protocol.CompareAndSetPolicy, error) {
	policy := protocol.CompareAndSetPolicy{OnFailure: protocol.FailureError}

	var err error

	if o.OnFailure != "" {
		if policy.OnFailure, err = protocol.ParseFailureAction(o.OnFailure); err != nil {
			return policy, err
		}
	}

	if policy.CheckPeriod, err = parseCheckPeriodValue(o.CheckPeriod); err != nil {
		return policy, fmt.Errorf("%w: checkPeriod: %w", ErrOptionsInvalid, err)
	}

	if policy.Timeout, err = parseTimeoutValue(o.Timeout); err != nil {
		return policy, fmt.Errorf("%w: timeout: %w", ErrOptionsInvalid, err)
	}

	policy.Transitions = make([]protocol.Transition, 0, len(o.Transitions))

	for i, t := range o.Transitions {
		expected, err := formatValueText(t.Expected)
		if err != nil {
			return policy, fmt.Errorf("%w: transitions[%d].expected: %w", ErrOptionsInvalid, i, err)
		}

		next, err := formatValueText(t.New)
		if err != nil {
			return policy, fmt.Errorf("%w: transitions[%d].new: %w", ErrOptionsInvalid, i, err)
		}

		policy.Transitions = append(policy.Transitions, protocol.Transition{
			Expected: expected,
			New:      next,
			Label:    t.Label,
		})
	}

	return policy, nil
}
