// Package atomics exposes the shared atomic store and its coordination
// protocols to k6 scripts as the "k6/x/atomics" module.
//
// All VUs share one store, created by the first openAtomics() call.
// Every method returns a Promise; blocking work runs off the VU event loop.
package atomics
