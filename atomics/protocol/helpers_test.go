package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/xk6-atomics/atomics/store"
)

// virtualClock is a Sleeper that advances a fake clock instead of sleeping.
// onSleep runs after every completed sleep with the new virtual time.
type virtualClock struct {
	mu      sync.Mutex
	now     time.Duration
	sleeps  int
	onSleep func(now time.Duration)
}

func (v *virtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	v.mu.Lock()
	v.now += d
	v.sleeps++
	now, hook := v.now, v.onSleep
	v.mu.Unlock()

	if hook != nil {
		hook(now)
	}

	return nil
}

func (v *virtualClock) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.now
}

func newVirtualCoordinator(clock *virtualClock) (*Coordinator, *store.Store) {
	s := store.NewStore(&store.Config{ShardCount: 2})

	return New(s, WithSleeper(clock)), s
}

func mustCreate(s *store.Store, id string, kind store.Kind, text string) store.Value {
	v, _, err := s.GetOrCreate(id, kind, text)
	if err != nil {
		panic(err)
	}

	return v
}
