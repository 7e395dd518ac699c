// Package simconfig holds the configuration of the atomics simulator.
//
// Values come from defaults, an optional YAML file, ATOMICS_SIM_* environment
// variables and command-line flags, merged by viper.
package simconfig

import (
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by the simulator.
const EnvPrefix = "ATOMICS_SIM"

// Config is the simulator configuration.
type Config struct {
	// Workers is the number of concurrent workers sharing each row's cells.
	Workers int `mapstructure:"workers"`
	// Rows is the number of rows every worker processes.
	Rows int `mapstructure:"rows"`
	// CheckPeriod is the delay between polls of the waiting protocols.
	CheckPeriod time.Duration `mapstructure:"check_period"`
	// Timeout bounds every wait; negative waits forever.
	Timeout time.Duration `mapstructure:"timeout"`
	// Shards is the store shard count; 0 selects one per CPU.
	Shards int `mapstructure:"shards"`
	// ShardHash names the shard hash: "xxhash" or "fnv".
	ShardHash string        `mapstructure:"shard_hash"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls simulator logging.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Format is "json" or "text" (default: "text")
	Format string `mapstructure:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Workers:     4,
		Rows:        100,
		CheckPeriod: time.Millisecond,
		Timeout:     30 * time.Second,
		Shards:      0,
		ShardHash:   "xxhash",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("rows", defaults.Rows)
	v.SetDefault("check_period", defaults.CheckPeriod)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("shards", defaults.Shards)
	v.SetDefault("shard_hash", defaults.ShardHash)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}
