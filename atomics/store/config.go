package store

import "runtime"

// MaxShardCount caps the number of shards a Store may use.
const MaxShardCount = 1024

// Config holds Store configuration.
type Config struct {
	// ShardCount sets the number of shards identifiers are spread over.
	// If <= 0, defaults to runtime.NumCPU().
	// If > MaxShardCount, capped at MaxShardCount.
	ShardCount int
	// ShardHash selects how identifiers are spread over the shards.
	ShardHash ShardHash
}

// GetShardCount returns the effective shard count for the store.
// If the shard count is not set, it defaults to runtime.NumCPU().
// If the shard count is greater than MaxShardCount, it is capped at MaxShardCount.
func (cfg *Config) GetShardCount() int {
	var shards int
	if cfg != nil {
		shards = cfg.ShardCount
	}

	if shards <= 0 {
		shards = max(1, runtime.NumCPU())
	}

	if shards > MaxShardCount {
		shards = MaxShardCount
	}

	return shards
}
