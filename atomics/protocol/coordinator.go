package protocol

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/oshokin/xk6-atomics/atomics/store"
)

// Coordinator runs the coordination protocols against one store.
// It is safe for concurrent use by any number of workers.
type Coordinator struct {
	store   *store.Store
	sleeper Sleeper
	logger  *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSleeper replaces the real timer used between polls.
func WithSleeper(sleeper Sleeper) Option {
	return func(c *Coordinator) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithLogger sets the logger used for protocol events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Coordinator over s, which must not be nil.
func New(s *store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   s,
		sleeper: TimerSleeper{},
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Store returns the store the coordinator works on.
func (c *Coordinator) Store() *store.Store {
	return c.store
}

// Handle is a cell resolved by Acquire.
type Handle struct {
	ID    string
	Kind  store.Kind
	Value store.Value
}

func (h Handle) validate() error {
	if h.Value == nil {
		return fmt.Errorf("%w: id %q has no cell", ErrInvalidHandle, h.ID)
	}

	if actual := h.Value.Kind(); actual != h.Kind {
		return fmt.Errorf("%w: id %q: %w", ErrInvalidHandle, h.ID,
			&store.TypeMismatchError{ID: h.ID, Requested: h.Kind, Actual: actual})
	}

	return nil
}

func checkPeriodError(period time.Duration) error {
	return fmt.Errorf("%w: %w: got %s", ErrInvalidPolicy, ErrInvalidCheckPeriod, period)
}
