package atomics

import (
	"context"
	"time"

	"github.com/grafana/sobek"
	"go.k6.io/k6/js/common"
	"go.k6.io/k6/js/modules"
	"go.k6.io/k6/js/promises"

	"github.com/oshokin/xk6-atomics/atomics/protocol"
	"github.com/oshokin/xk6-atomics/atomics/store"
)

// Atomics is the facade exposed to k6 scripts.
//
// Arguments and option objects are converted on the VU event loop; the store
// and protocol work then runs in a goroutine and the Promise is settled back
// on the event loop through vu.RegisterCallback. Waiting protocols observe the
// VU context, so a finished iteration interrupts them.
type Atomics struct {
	store       *store.Store
	coordinator *protocol.Coordinator
	vu          modules.VU
}

// NewAtomics constructs a new Atomics bound to the given VU, store and coordinator.
func NewAtomics(vu modules.VU, s *store.Store, coordinator *protocol.Coordinator) *Atomics {
	return &Atomics{
		store:       s,
		coordinator: coordinator,
		vu:          vu,
	}
}

// Get returns a Promise that resolves to the current value of the cell, or
// null when the identifier is absent.
func (a *Atomics) Get(id, kind sobek.Value) *sobek.Promise {
	idString := id.String()

	k, err := kindFrom(kind)
	if err != nil {
		return a.rejected(err)
	}

	return a.runAsync(
		func(_ context.Context) (any, error) {
			v, ok, err := a.store.Get(idString, k)
			if err != nil || !ok {
				return nil, err
			}

			return v.Load().Any(), nil
		},
		func(rt *sobek.Runtime, result any) sobek.Value {
			if result == nil {
				return sobek.Null()
			}

			return rt.ToValue(result)
		},
	)
}

// GetOrCreate returns a Promise that resolves to { value, created }.
func (a *Atomics) GetOrCreate(id, kind, initialValue sobek.Value) *sobek.Promise {
	idString := id.String()

	k, err := kindFrom(kind)
	if err != nil {
		return a.rejected(err)
	}

	text, err := valueTextFrom(initialValue)
	if err != nil {
		return a.rejected(err)
	}

	return a.runAsync(
		func(_ context.Context) (any, error) {
			v, created, err := a.store.GetOrCreate(idString, k, text)
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"value":   v.Load().Any(),
				"created": created,
			}, nil
		},
		toJSValue,
	)
}

// Remove returns a Promise that resolves to true if a cell was removed.
func (a *Atomics) Remove(id sobek.Value) *sobek.Promise {
	idString := id.String()

	return a.runAsync(
		func(_ context.Context) (any, error) {
			return a.store.Remove(idString), nil
		},
		toJSValue,
	)
}

// Exists returns a Promise that resolves to true if the identifier is bound.
func (a *Atomics) Exists(id sobek.Value) *sobek.Promise {
	idString := id.String()

	return a.runAsync(
		func(_ context.Context) (any, error) {
			return a.store.Exists(idString), nil
		},
		toJSValue,
	)
}

// CompareAndSet returns a Promise that resolves to true iff the cell exists,
// holds expected, and was atomically set to next.
func (a *Atomics) CompareAndSet(id, kind, expected, next sobek.Value) *sobek.Promise {
	idString := id.String()

	k, err := kindFrom(kind)
	if err != nil {
		return a.rejected(err)
	}

	expectedText, err := valueTextFrom(expected)
	if err != nil {
		return a.rejected(err)
	}

	nextText, err := valueTextFrom(next)
	if err != nil {
		return a.rejected(err)
	}

	return a.runAsync(
		func(_ context.Context) (any, error) {
			expectedReading, err := store.ParseReading(k, expectedText)
			if err != nil {
				return nil, err
			}

			nextReading, err := store.ParseReading(k, nextText)
			if err != nil {
				return nil, err
			}

			v, ok, err := a.store.Get(idString, k)
			if err != nil || !ok {
				return false, err
			}

			return v.CompareAndSet(expectedReading, nextReading)
		},
		toJSValue,
	)
}

// Acquire returns a Promise that resolves to an outcome object describing how
// the identifier was resolved.
func (a *Atomics) Acquire(id, options sobek.Value) *sobek.Promise {
	idString := id.String()

	var opts AcquireOptions
	if err := exportOptions(a.vu.Runtime(), options, &opts); err != nil {
		return a.rejected(err)
	}

	k, err := parseKindName(opts.Kind)
	if err != nil {
		return a.rejected(err)
	}

	policy, err := opts.acquirePolicy()
	if err != nil {
		return a.rejected(err)
	}

	return a.runAsync(
		func(ctx context.Context) (any, error) {
			result, err := a.coordinator.Acquire(ctx, idString, k, policy)
			if err != nil {
				return nil, err
			}

			return acquireOutcome(result), nil
		},
		toJSValue,
	)
}

// Await returns a Promise that resolves to an outcome object once the cell
// matches one of the targets, the wait times out or the VU is interrupted.
// The cell is first resolved with the nested acquire policy.
func (a *Atomics) Await(id, options sobek.Value) *sobek.Promise {
	idString := id.String()

	var opts AwaitOptions
	if err := exportOptions(a.vu.Runtime(), options, &opts); err != nil {
		return a.rejected(err)
	}

	k, err := parseKindName(opts.Kind)
	if err != nil {
		return a.rejected(err)
	}

	acquirePolicy, err := opts.Acquire.acquirePolicy()
	if err != nil {
		return a.rejected(err)
	}

	policy, err := opts.awaitPolicy()
	if err != nil {
		return a.rejected(err)
	}

	if err := policy.Validate(k); err != nil {
		return a.rejected(err)
	}

	return a.runAsync(
		func(ctx context.Context) (any, error) {
			acquired, err := a.coordinator.Acquire(ctx, idString, k, acquirePolicy)
			if err != nil {
				return nil, err
			}

			if acquired.Route != protocol.RouteFound {
				return acquireOutcome(acquired), nil
			}

			result, err := a.coordinator.Await(ctx, acquired.Handle, policy)
			if err != nil {
				return nil, err
			}

			return awaitOutcome(result), nil
		},
		toJSValue,
	)
}

// CompareAndRetry returns a Promise that resolves to an outcome object once a
// transition is applied or the failure policy gives up.
// The cell is first resolved with the nested acquire policy.
func (a *Atomics) CompareAndRetry(id, options sobek.Value) *sobek.Promise {
	idString := id.String()

	var opts CompareAndRetryOptions
	if err := exportOptions(a.vu.Runtime(), options, &opts); err != nil {
		return a.rejected(err)
	}

	k, err := parseKindName(opts.Kind)
	if err != nil {
		return a.rejected(err)
	}

	acquirePolicy, err := opts.Acquire.acquirePolicy()
	if err != nil {
		return a.rejected(err)
	}

	policy, err := opts.compareAndSetPolicy()
	if err != nil {
		return a.rejected(err)
	}

	if err := policy.Validate(k); err != nil {
		return a.rejected(err)
	}

	return a.runAsync(
		func(ctx context.Context) (any, error) {
			acquired, err := a.coordinator.Acquire(ctx, idString, k, acquirePolicy)
			if err != nil {
				return nil, err
			}

			if acquired.Route != protocol.RouteFound {
				return acquireOutcome(acquired), nil
			}

			result, err := a.coordinator.CompareAndRetry(ctx, acquired.Handle, policy)
			if err != nil {
				return nil, err
			}

			return compareOutcome(result), nil
		},
		toJSValue,
	)
}

// Size returns a Promise that resolves to the number of cells in the store.
func (a *Atomics) Size() *sobek.Promise {
	return a.runAsync(
		func(_ context.Context) (any, error) {
			return a.store.Size(), nil
		},
		toJSValue,
	)
}

// Clear returns a Promise that resolves to true after removing every cell.
func (a *Atomics) Clear() *sobek.Promise {
	return a.runAsync(
		func(_ context.Context) (any, error) {
			a.store.Clear()
			return true, nil
		},
		toJSValue,
	)
}

// Snapshot returns a Promise that resolves to an object mapping identifiers
// to their current values.
func (a *Atomics) Snapshot() *sobek.Promise {
	return a.runAsync(
		func(_ context.Context) (any, error) {
			cells := a.store.Snapshot()

			out := make(map[string]any, len(cells))
			for id, v := range cells {
				out[id] = v.Load().Any()
			}

			return out, nil
		},
		toJSValue,
	)
}

// Coerce converts loosely formatted text into a valid value text for kind.
// It runs synchronously.
func (a *Atomics) Coerce(kind, text sobek.Value) string {
	k, err := kindFrom(kind)
	if err != nil {
		common.Throw(a.vu.Runtime(), classifyError(err))
	}

	return store.CoerceText(k, text.String())
}

// runAsync runs operation in a goroutine and settles the returned Promise on
// the VU event loop.
func (a *Atomics) runAsync(
	operation func(ctx context.Context) (any, error),
	toJS func(rt *sobek.Runtime, result any) sobek.Value,
) *sobek.Promise {
	// Sobek promises are not goroutine-safe: resolve and reject must run on
	// the event loop, which RegisterCallback gives us.
	rt := a.vu.Runtime()
	promise, resolve, reject := rt.NewPromise()
	callback := a.vu.RegisterCallback()
	ctx := a.vu.Context()

	go func() {
		if a.store == nil || a.coordinator == nil {
			callback(func() error {
				return reject(NewError(DatabaseNotOpenError, ErrNotOpen.Error()))
			})

			return
		}

		goResult, err := operation(ctx)
		if err != nil {
			callback(func() error {
				return reject(classifyError(err))
			})

			return
		}

		callback(func() error {
			return resolve(toJS(rt, goResult))
		})
	}()

	return promise
}

// rejected returns a Promise already rejected with err.
func (a *Atomics) rejected(err error) *sobek.Promise {
	p, _, reject := promises.New(a.vu)
	reject(classifyError(err))

	return p
}

func toJSValue(rt *sobek.Runtime, result any) sobek.Value {
	return rt.ToValue(result)
}

// kindFrom reads a kind argument; undefined or null selects DefaultKind.
func kindFrom(v sobek.Value) (store.Kind, error) {
	if common.IsNullish(v) {
		return DefaultKind, nil
	}

	return parseKindName(v.String())
}

// valueTextFrom converts a JS scalar argument to value text.
func valueTextFrom(v sobek.Value) (string, error) {
	var exported any
	if !common.IsNullish(v) {
		exported = v.Export()
	}

	text, err := formatValueText(exported)
	if err != nil {
		return "", NewError(InvalidValueError, err.Error())
	}

	return text, nil
}

func acquireOutcome(result protocol.AcquireResult) map[string]any {
	out := outcome(protocol.StageAcquire, result.Route, result.Polls, result.Waited)
	out["created"] = result.Created

	if result.Handle.Value != nil {
		out["value"] = result.Handle.Value.Load().Any()
	}

	return out
}

func awaitOutcome(result protocol.AwaitResult) map[string]any {
	out := outcome(protocol.StageAwait, result.Route, result.Polls, result.Waited)
	out["value"] = result.Reading.Any()
	out["discarded"] = result.Discarded

	if result.Route == protocol.RouteMatched {
		out["index"] = result.Index
		out["label"] = result.Target.Label
		out["absent"] = result.Target.Absent
	}

	return out
}

func compareOutcome(result protocol.CompareAndSetResult) map[string]any {
	out := outcome(protocol.StageCompareAndSet, result.Route, result.Polls, result.Waited)
	out["value"] = result.Current.Any()

	if result.Route == protocol.RouteMatched {
		out["index"] = result.Index
		out["label"] = result.Transition.Label
		out["previous"] = result.Previous.Any()
	}

	return out
}

// outcome builds the fields shared by every protocol outcome object.
func outcome(stage protocol.Stage, route protocol.Route, polls int, waited time.Duration) map[string]any {
	out := map[string]any{
		"stage":    stage.String(),
		"route":    route.String(),
		"polls":    polls,
		"waitedMs": waited.Milliseconds(),
		"value":    nil,
	}

	if code, ok := route.ErrorCode(stage); ok {
		out["code"] = string(code)
		out["description"] = code.Description()
	}

	return out
}
