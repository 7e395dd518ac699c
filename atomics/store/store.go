package store

import (
	"errors"
	"fmt"
	"sync"
)

// testCreateBarrier is a test hook invoked between the optimistic lookup and
// taking the shard write lock in GetOrCreate. It lets tests widen the race
// window of concurrent creation (nil in non-test builds).
//
//nolint:gochecknoglobals // this is a test hook.
var (
	testCreateBarrier   func(id string)
	testCreateBarrierMu sync.RWMutex
)

// Store maps identifiers to atomic cells.
//
// Identifiers are spread over shards; each shard guards its map with a
// sync.RWMutex. Lookups of existing cells only take a read lock, so readers
// never block each other. Creation re-checks for an existing entry after
// taking the write lock, because another goroutine may have inserted the cell
// between the optimistic lookup and the lock.
type Store struct {
	shards []*shard
	hash   ShardHash
	hashFn shardHashFunc
}

// NewStore creates an empty Store. A nil cfg selects the defaults.
func NewStore(cfg *Config) *Store {
	shardCount := cfg.GetShardCount()

	var hash ShardHash
	if cfg != nil {
		hash = cfg.ShardHash
	}

	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = newShard()
	}

	return &Store{
		shards: shards,
		hash:   hash,
		hashFn: selectShardHashFunc(hash),
	}
}

// ShardCount returns the number of shards in use.
func (s *Store) ShardCount() int {
	return len(s.shards)
}

// ShardHash returns the strategy used to pick a shard for an identifier.
func (s *Store) ShardHash() ShardHash {
	return s.hash
}

// Get returns the cell bound to id.
//
// If id is absent, Get returns (nil, false, nil). If id is bound to a cell of
// another kind, it fails with a *TypeMismatchError.
func (s *Store) Get(id string, kind Kind) (Value, bool, error) {
	v, ok := s.shardFor(id).lookup(id)
	if !ok {
		return nil, false, nil
	}

	if err := checkKind(id, kind, v); err != nil {
		return nil, false, err
	}

	return v, true, nil
}

// GetOrCreate returns the cell bound to id, creating it from initialText when
// absent. The created flag reports whether this call inserted the cell.
//
// initialText is parsed before the store is touched, so an unparsable text
// fails with an *InvalidValueError (ErrInvalidInitialValue) even when the
// cell already exists, and the store never holds a cell built from it.
// An existing cell of another kind fails with a *TypeMismatchError and is
// left as it is.
func (s *Store) GetOrCreate(id string, kind Kind, initialText string) (Value, bool, error) {
	initial, err := ParseReading(kind, initialText)
	if err != nil {
		return nil, false, initialValueError(id, err)
	}

	sh := s.shardFor(id)

	// 1) optimistic lookup under the read lock.
	if existing, ok := sh.lookup(id); ok {
		if err := checkKind(id, kind, existing); err != nil {
			return nil, false, err
		}

		return existing, false, nil
	}

	testCreateBarrierMu.RLock()
	barrier := testCreateBarrier
	testCreateBarrierMu.RUnlock()

	if barrier != nil {
		barrier(id)
	}

	// 2) absent: take the write lock and look again, another goroutine may
	// have created the cell in between.
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if existing, ok := sh.cells[id]; ok {
		if err := checkKind(id, kind, existing); err != nil {
			return nil, false, err
		}

		return existing, false, nil
	}

	// 3) still absent: create and insert.
	created, err := NewValue(initial)
	if err != nil {
		return nil, false, err
	}

	sh.cells[id] = created

	return created, true, nil
}

// Remove deletes the cell bound to id and reports whether one existed.
func (s *Store) Remove(id string) bool {
	sh := s.shardFor(id)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.cells[id]; !ok {
		return false
	}

	delete(sh.cells, id)

	return true
}

// RemoveValue deletes the cell bound to id only if it is still the very
// instance v, and reports whether a deletion occurred. A cell re-created
// under the same identifier is never removed by a holder of the old one.
func (s *Store) RemoveValue(id string, v Value) bool {
	if v == nil {
		return false
	}

	sh := s.shardFor(id)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := sh.cells[id]
	if !ok || current != v {
		return false
	}

	delete(sh.cells, id)

	return true
}

// Exists reports whether id is bound to a cell of any kind.
func (s *Store) Exists(id string) bool {
	_, ok := s.shardFor(id).lookup(id)

	return ok
}

// Size returns the number of cells in the store.
func (s *Store) Size() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.count()
	}

	return total
}

// Clear removes every cell. Intended for tests and diagnostics.
func (s *Store) Clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		clear(sh.cells)
		sh.mu.Unlock()
	}
}

// Snapshot returns a copy of the identifier-to-cell mapping.
// The cells are shared with the store, the map is not.
// Shards are copied one at a time, so the result is not a point-in-time view
// across identifiers.
func (s *Store) Snapshot() map[string]Value {
	out := make(map[string]Value)

	for _, sh := range s.shards {
		sh.mu.RLock()
		for id, v := range sh.cells {
			out[id] = v
		}
		sh.mu.RUnlock()
	}

	return out
}

// Replace binds id to v regardless of any existing cell and returns the
// previous cell. Intended for tests and diagnostics: it bypasses the
// exactly-once creation path.
func (s *Store) Replace(id string, v Value) (Value, bool, error) {
	if v == nil {
		return nil, false, ErrNilValue
	}

	sh := s.shardFor(id)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	previous, loaded := sh.cells[id]
	sh.cells[id] = v

	return previous, loaded, nil
}

// checkKind verifies that v has the requested kind.
func checkKind(id string, requested Kind, v Value) error {
	if actual := v.Kind(); actual != requested {
		return &TypeMismatchError{ID: id, Requested: requested, Actual: actual}
	}

	return nil
}

// initialValueError tags a parse failure as an invalid initial value for id.
func initialValueError(id string, err error) error {
	var invalid *InvalidValueError
	if !errors.As(err, &invalid) {
		return fmt.Errorf("%w: id %q: %w", ErrInvalidInitialValue, id, err)
	}

	if invalid.Sentinel == nil {
		invalid.Sentinel = ErrInvalidInitialValue
	}

	invalid.ID = id

	return invalid
}
