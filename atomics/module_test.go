package atomics

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.k6.io/k6/js/modulestest"

	"github.com/oshokin/xk6-atomics/atomics/store"
)

// Not parallel: installs the package-level open barrier.
func TestOpenAtomicsConcurrentInitializationSharesStore(t *testing.T) {
	rootModule := New()

	primaryRuntime := modulestest.NewRuntime(t)
	secondaryRuntime := modulestest.NewRuntime(t)

	primaryModuleInstance := rootModule.NewModuleInstance(primaryRuntime.VU).(*ModuleInstance)
	secondaryModuleInstance := rootModule.NewModuleInstance(secondaryRuntime.VU).(*ModuleInstance)

	primaryOptions := primaryRuntime.VU.Runtime().ToValue(map[string]any{"shardCount": 4})
	secondaryOptions := secondaryRuntime.VU.Runtime().ToValue(map[string]any{"shardCount": 4})

	var (
		enterCount   atomic.Uint32
		firstEntered = make(chan struct{})
		firstRelease = make(chan struct{})
	)

	testOpenAtomicsBarrierMu.Lock()
	testOpenAtomicsBarrier = func() {
		if enterCount.Add(1) != 1 {
			return
		}

		close(firstEntered)
		<-firstRelease
	}
	testOpenAtomicsBarrierMu.Unlock()

	defer func() {
		testOpenAtomicsBarrierMu.Lock()
		testOpenAtomicsBarrier = nil
		testOpenAtomicsBarrierMu.Unlock()
	}()

	results := make(chan *ModuleInstance, 2)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()

		primaryModuleInstance.OpenAtomics(primaryOptions)

		results <- primaryModuleInstance
	}()

	go func() {
		defer wg.Done()

		secondaryModuleInstance.OpenAtomics(secondaryOptions)

		results <- secondaryModuleInstance
	}()

	<-firstEntered
	close(firstRelease)

	firstDone := <-results
	secondDone := <-results

	wg.Wait()

	require.NotNil(t, firstDone.atomics, "first instance should have a facade")
	require.NotNil(t, secondDone.atomics, "second instance should have a facade")

	require.Same(t, firstDone.atomics.store, secondDone.atomics.store,
		"concurrent openAtomics calls must receive the same backing store instance")
	require.Same(t, firstDone.atomics.store, rootModule.store, "root module store must be shared across VUs")
	require.Same(t, firstDone.atomics.coordinator, secondDone.atomics.coordinator)
	require.Equal(t, 1, int(enterCount.Load()), "only one caller may initialize the store")
}

func TestOpenAtomicsRejectsConflictingOptions(t *testing.T) {
	t.Parallel()

	rootModule := New()

	runtime := modulestest.NewRuntime(t)
	moduleInstance := rootModule.NewModuleInstance(runtime.VU).(*ModuleInstance)

	twoShards := runtime.VU.Runtime().ToValue(map[string]any{"shardCount": 2})
	twoShardsAgain := runtime.VU.Runtime().ToValue(map[string]any{"shardCount": 2})
	fourShards := runtime.VU.Runtime().ToValue(map[string]any{"shardCount": 4})

	require.NotPanics(t, func() {
		moduleInstance.OpenAtomics(twoShards)
	})

	require.NotPanics(t, func() {
		moduleInstance.OpenAtomics(twoShardsAgain)
	})

	require.Panics(t, func() {
		moduleInstance.OpenAtomics(fourShards)
	})

	require.Equal(t, 2, rootModule.store.ShardCount())
}

func TestOpenAtomicsShardHash(t *testing.T) {
	t.Parallel()

	rootModule := New()

	runtime := modulestest.NewRuntime(t)
	moduleInstance := rootModule.NewModuleInstance(runtime.VU).(*ModuleInstance)
	rt := runtime.VU.Runtime()

	require.Panics(t, func() {
		moduleInstance.OpenAtomics(rt.ToValue(map[string]any{"shardHash": "md5"}))
	}, "an unknown hash is rejected")
	require.Nil(t, rootModule.store, "a rejected open creates no store")

	require.NotPanics(t, func() {
		moduleInstance.OpenAtomics(rt.ToValue(map[string]any{"shardCount": 2, "shardHash": "fnv"}))
	})

	require.NotPanics(t, func() {
		moduleInstance.OpenAtomics(rt.ToValue(map[string]any{"shardCount": 2, "shardHash": "FNV1a"}))
	})

	require.Panics(t, func() {
		moduleInstance.OpenAtomics(rt.ToValue(map[string]any{"shardCount": 2}))
	}, "the default hash conflicts with fnv")

	require.Equal(t, store.ShardHashFNV, rootModule.store.ShardHash())
}
