// Package store provides the process-local, thread-safe store of named atomic
// cells used by the xk6-atomics module. It defines the Value tagged union
// (boolean or 32-bit integer cells), the Reading payload observed from a cell,
// and the Store that maps identifiers to cells.
//
// A Store is an explicit object: create one per process (or per test) and
// share it by pointer. All methods are safe for concurrent use by multiple
// goroutines. For a single identifier, creation, lookup, compare-and-set and
// removal are sequentially consistent; no ordering is guaranteed across
// different identifiers.
package store
