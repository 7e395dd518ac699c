package atomics

import (
	"fmt"
	"sync"

	"github.com/grafana/sobek"
	"go.k6.io/k6/js/common"
	"go.k6.io/k6/js/modules"

	"github.com/oshokin/xk6-atomics/atomics/protocol"
	"github.com/oshokin/xk6-atomics/atomics/store"
)

type (
	// RootModule is a module singleton created once per test process.
	// It owns the shared Store used by all VUs.
	RootModule struct {
		// store is the shared store instance, created on first openAtomics().
		store *store.Store

		// coordinator runs the protocols against store.
		coordinator *protocol.Coordinator

		// opts holds the options used when the store was created.
		opts Options

		// mu protects store creation and configuration.
		mu sync.Mutex
	}

	// ModuleInstance is created per VU.
	// It holds the per-VU JS bindings and a pointer
	// to the RootModule to access the shared store.
	ModuleInstance struct {
		vu modules.VU
		rm *RootModule
		// atomics is the facade returned by the last openAtomics() call.
		atomics *Atomics
	}
)

// testOpenAtomicsBarrier is a test hook invoked the moment a goroutine enters
// the store-initialization path (nil in non-test builds).
//
//nolint:gochecknoglobals // this is a test hook.
var (
	testOpenAtomicsBarrier   func()
	testOpenAtomicsBarrierMu sync.RWMutex
)

var (
	_ modules.Instance = new(ModuleInstance)
	_ modules.Module   = new(RootModule)
)

// New returns a pointer to a new RootModule instance.
func New() *RootModule {
	return &RootModule{}
}

// NewModuleInstance implements modules.Module.
func (rm *RootModule) NewModuleInstance(vu modules.VU) modules.Instance {
	return &ModuleInstance{
		vu: vu,
		rm: rm,
	}
}

// getOrCreateStore returns the shared store, creating it on the first call.
// Later calls must pass equal options.
func (rm *RootModule) getOrCreateStore(options Options) (*store.Store, *protocol.Coordinator, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.store != nil {
		if rm.opts.Equal(options) {
			return rm.store, rm.coordinator, nil
		}

		return nil, nil, fmt.Errorf(
			"%w: shardCount=%d, shardHash=%s",
			ErrOptionsConflict, rm.store.ShardCount(), rm.store.ShardHash(),
		)
	}

	testOpenAtomicsBarrierMu.RLock()

	barrier := testOpenAtomicsBarrier

	testOpenAtomicsBarrierMu.RUnlock()

	if barrier != nil {
		barrier()
	}

	cfg, err := options.storeConfig()
	if err != nil {
		return nil, nil, err
	}

	rm.store = store.NewStore(cfg)
	rm.coordinator = protocol.New(rm.store)
	rm.opts = options

	return rm.store, rm.coordinator, nil
}

// Exports implements modules.Instance.
func (mi *ModuleInstance) Exports() modules.Exports {
	return modules.Exports{
		Named: map[string]any{
			"openAtomics": mi.OpenAtomics,
		},
	}
}

// OpenAtomics parses user options, initializes the shared store (once),
// and returns the per-VU Atomics object bound to it.
//
// The first successful call decides the store layout; a later call with
// different options throws.
func (mi *ModuleInstance) OpenAtomics(opts sobek.Value) *sobek.Object {
	rt := mi.vu.Runtime()

	options, err := NewOptionsFrom(mi.vu, opts)
	if err != nil {
		common.Throw(rt, classifyError(err))
		return nil
	}

	s, coordinator, err := mi.rm.getOrCreateStore(options)
	if err != nil {
		common.Throw(rt, classifyError(err))
		return nil
	}

	mi.atomics = NewAtomics(mi.vu, s, coordinator)

	return rt.ToValue(mi.atomics).ToObject(rt)
}
