package store

import (
	"fmt"
	"strings"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"
)

type (
	// shard holds the cells of one slice of the identifier space.
	shard struct {
		// cells maps identifiers to their cells.
		cells map[string]Value
		// mu protects cells; the cells themselves are atomic.
		mu sync.RWMutex
	}

	// shardHashFunc hashes an identifier.
	shardHashFunc func(string) uint64
)

// ShardHash selects how identifiers are hashed to shards.
type ShardHash int

const (
	// ShardHashXXHash hashes identifiers with xxhash. It is the default.
	ShardHashXXHash ShardHash = iota
	// ShardHashFNV hashes identifiers with FNV-1a.
	ShardHashFNV
)

// String returns the strategy name accepted by ParseShardHash.
func (h ShardHash) String() string {
	switch h {
	case ShardHashXXHash:
		return "xxhash"
	case ShardHashFNV:
		return "fnv"
	default:
		return fmt.Sprintf("ShardHash(%d)", int(h))
	}
}

// ParseShardHash parses a strategy name. An empty name selects ShardHashXXHash.
func ParseShardHash(name string) (ShardHash, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "xxhash":
		return ShardHashXXHash, nil
	case "fnv", "fnv1a":
		return ShardHashFNV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownShardHash, name)
	}
}

// FNV-1a constants for the allocation-free fallback hash.
const (
	fnv1aOffset64 = 1469598103934665603
	fnv1aPrime64  = 1099511628211
)

// selectShardHashFunc returns the hash function for the strategy.
func selectShardHashFunc(hash ShardHash) shardHashFunc {
	switch hash {
	case ShardHashFNV:
		return fnvShardHash
	case ShardHashXXHash:
		return xxhashShardHash
	default:
		return xxhashShardHash
	}
}

// xxhashShardHash hashes the identifier with xxhash.
func xxhashShardHash(id string) uint64 {
	return xxhash.Sum64String(id)
}

// fnvShardHash hashes the identifier with FNV-1a.
func fnvShardHash(id string) uint64 {
	hash := uint64(fnv1aOffset64)

	for i := 0; i < len(id); i++ {
		hash ^= uint64(id[i])
		hash *= fnv1aPrime64
	}

	return hash
}

// newShard allocates an empty shard.
func newShard() *shard {
	return &shard{cells: make(map[string]Value)}
}

// shardFor returns the shard owning id.
func (s *Store) shardFor(id string) *shard {
	if len(s.shards) == 1 {
		return s.shards[0]
	}

	//nolint:gosec // len(s.shards) is always >= 1, see NewStore.
	return s.shards[int(s.hashFn(id)%uint64(len(s.shards)))]
}

// lookup returns the cell for id while holding the shard read lock.
func (sh *shard) lookup(id string) (Value, bool) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	v, ok := sh.cells[id]

	return v, ok
}

// count safely reads the number of cells in a shard.
func (sh *shard) count() int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return len(sh.cells)
}
