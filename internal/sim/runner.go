// Package sim runs a pipeline-style workload against the atomic store.
//
// Each worker stands for one copy of a pipeline step. For every row, all
// workers rendezvous on a countdown cell: each one decrements it exactly once
// with compare-and-retry, then waits for it to reach zero and discards it.
// Finally the workers race to flip a per-row boolean gate, which exactly one
// of them wins.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/oshokin/xk6-atomics/atomics/protocol"
	"github.com/oshokin/xk6-atomics/atomics/store"
	"github.com/oshokin/xk6-atomics/internal/simconfig"
)

// ErrRowIncomplete is returned when a worker could not finish a row.
var ErrRowIncomplete = errors.New("row did not complete")

// testRowHook is a test hook invoked before a worker starts a row. It lets
// tests hold one worker back while the others wait (nil in non-test builds).
//
//nolint:gochecknoglobals // this is a test hook.
var (
	testRowHook   func(ctx context.Context, worker, row int)
	testRowHookMu sync.RWMutex
)

// Runner executes simulation runs. A Runner keeps its store between runs;
// every run uses fresh identifiers.
type Runner struct {
	cfg         *simconfig.Config
	store       *store.Store
	coordinator *protocol.Coordinator
	logger      *slog.Logger
	countdown   []protocol.Transition
}

// Option configures a Runner.
type Option func(*runnerOptions)

type runnerOptions struct {
	sleeper protocol.Sleeper
}

// WithSleeper replaces the timer used by the waiting protocols.
func WithSleeper(sleeper protocol.Sleeper) Option {
	return func(o *runnerOptions) {
		o.sleeper = sleeper
	}
}

// New creates a Runner for cfg.
func New(cfg *simconfig.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var options runnerOptions
	for _, opt := range opts {
		opt(&options)
	}

	hash, err := store.ParseShardHash(cfg.ShardHash)
	if err != nil {
		return nil, err
	}

	s := store.NewStore(&store.Config{ShardCount: cfg.Shards, ShardHash: hash})

	coordinatorOpts := []protocol.Option{protocol.WithLogger(logger)}
	if options.sleeper != nil {
		coordinatorOpts = append(coordinatorOpts, protocol.WithSleeper(options.sleeper))
	}

	return &Runner{
		cfg:         cfg,
		store:       s,
		coordinator: protocol.New(s, coordinatorOpts...),
		logger:      logger,
		countdown:   countdownTransitions(cfg.Workers),
	}, nil
}

// Store returns the store shared by the runner's workers.
func (r *Runner) Store() *store.Store {
	return r.store
}

// Run starts the workers and waits for all of them. The first worker error
// cancels the others.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	var (
		runID  = uuid.NewString()
		logger = r.logger.With(slog.String("run_id", runID))
		t      = newTally()
		start  = time.Now()
	)

	logger.InfoContext(ctx, "Simulation started",
		slog.Int("workers", r.cfg.Workers),
		slog.Int("rows", r.cfg.Rows),
		slog.Int("shards", r.store.ShardCount()),
		slog.String("shard_hash", r.store.ShardHash().String()))

	p := pool.New().WithContext(ctx).WithCancelOnError()

	for worker := range r.cfg.Workers {
		p.Go(func(ctx context.Context) error {
			return r.work(ctx, runID, worker, t)
		})
	}

	err := p.Wait()

	report := t.report(runID, r.cfg.Workers, r.cfg.Rows, time.Since(start))
	report.CellsLeft = r.store.Size()

	if err != nil {
		logger.ErrorContext(ctx, "Simulation failed", slog.Any("error", err))
		return report, err
	}

	logger.InfoContext(ctx, "Simulation finished",
		slog.Duration("elapsed", report.Elapsed),
		slog.Int64("gates_flipped", report.GatesFlipped))

	return report, nil
}

func (r *Runner) work(ctx context.Context, runID string, worker int, t *tally) error {
	for row := range r.cfg.Rows {
		if err := r.processRow(ctx, runID, worker, row, t); err != nil {
			return fmt.Errorf("worker %d, row %d: %w", worker, row, err)
		}
	}

	return nil
}

func (r *Runner) processRow(ctx context.Context, runID string, worker, row int, t *tally) error {
	testRowHookMu.RLock()
	hook := testRowHook
	testRowHookMu.RUnlock()

	if hook != nil {
		hook(ctx, worker, row)
	}

	prefix := runID + "/" + strconv.Itoa(row)

	counter, err := r.coordinator.Acquire(ctx, prefix+"/remaining", store.KindInteger, protocol.AcquirePolicy{
		OnAbsent:     protocol.AbsentInitialise,
		InitialValue: strconv.Itoa(r.cfg.Workers),
	})
	if err != nil {
		return err
	}

	t.add(protocol.StageAcquire, counter.Route)

	decremented, err := r.coordinator.CompareAndRetry(ctx, counter.Handle, protocol.CompareAndSetPolicy{
		Transitions: r.countdown,
		OnFailure:   protocol.FailureRetry,
		CheckPeriod: r.cfg.CheckPeriod,
		Timeout:     r.cfg.Timeout,
	})
	if err != nil {
		return err
	}

	t.add(protocol.StageCompareAndSet, decremented.Route)

	if decremented.Route != protocol.RouteMatched {
		return routeError("countdown", decremented.Route, decremented.Cause)
	}

	awaited, err := r.coordinator.Await(ctx, counter.Handle, protocol.AwaitPolicy{
		Targets: []protocol.AwaitTarget{
			{Value: "0", Discard: true, Label: "zero"},
			{Absent: true, Label: "discarded"},
		},
		CheckPeriod: r.cfg.CheckPeriod,
		Timeout:     r.cfg.Timeout,
	})
	if err != nil {
		return err
	}

	t.add(protocol.StageAwait, awaited.Route)

	if awaited.Route != protocol.RouteMatched {
		return routeError("rendezvous", awaited.Route, awaited.Cause)
	}

	if awaited.Discarded {
		t.discards.Add(1)
	}

	gate, err := r.coordinator.Acquire(ctx, prefix+"/done", store.KindBoolean, protocol.AcquirePolicy{
		OnAbsent:     protocol.AbsentInitialise,
		InitialValue: "false",
	})
	if err != nil {
		return err
	}

	t.add(protocol.StageAcquire, gate.Route)

	flipped, err := r.coordinator.CompareAndRetry(ctx, gate.Handle, protocol.CompareAndSetPolicy{
		Transitions: []protocol.Transition{{Expected: "false", New: "true", Label: "flip"}},
		OnFailure:   protocol.FailureSkip,
	})
	if err != nil {
		return err
	}

	t.add(protocol.StageCompareAndSet, flipped.Route)

	if flipped.Route == protocol.RouteMatched {
		t.gatesFlipped.Add(1)

		r.logger.DebugContext(ctx, "Gate flipped",
			slog.String("id", gate.Handle.ID),
			slog.Int("worker", worker))
	}

	return nil
}

// countdownTransitions returns n -> n-1 for every n from workers down to 1.
func countdownTransitions(workers int) []protocol.Transition {
	transitions := make([]protocol.Transition, 0, workers)

	for n := workers; n >= 1; n-- {
		transitions = append(transitions, protocol.Transition{
			Expected: strconv.Itoa(n),
			New:      strconv.Itoa(n - 1),
			Label:    "decrement",
		})
	}

	return transitions
}

func routeError(step string, route protocol.Route, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s ended with %s: %w", ErrRowIncomplete, step, route, cause)
	}

	return fmt.Errorf("%w: %s ended with %s", ErrRowIncomplete, step, route)
}
