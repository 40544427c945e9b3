// Package config loads runtime settings from an optional config file and
// REVERSI_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// REVERSI_CACHE_BACKEND for cache.backend.
const EnvPrefix = "REVERSI"

// DefaultModelFile is the weight file name looked up when model_path is empty.
const DefaultModelFile = "reversi.rvnn"

type Config struct {
	ModelPath string       `mapstructure:"model_path"`
	DataDir   string       `mapstructure:"data_dir"`
	Cache     CacheConfig  `mapstructure:"cache"`
	Server    ServerConfig `mapstructure:"server"`
	Search    SearchConfig `mapstructure:"search"`
	Workers   int          `mapstructure:"workers"`
	LogLevel  string       `mapstructure:"log_level"`
}

type CacheConfig struct {
	Backend    string `mapstructure:"backend"`
	RedisURL   string `mapstructure:"redis_url"`
	MemorySize int    `mapstructure:"memory_size"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type SearchConfig struct {
	Depth    int           `mapstructure:"depth"`
	MoveTime time.Duration `mapstructure:"move_time"`
	HashMB   int           `mapstructure:"hash_mb"`
	BookPath string        `mapstructure:"book_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_path", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_url", "localhost:6379")
	v.SetDefault("cache.memory_size", 1<<20)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("search.depth", 6)
	v.SetDefault("search.move_time", time.Duration(0))
	v.SetDefault("search.hash_mb", 64)
	v.SetDefault("search.book_path", "")
	v.SetDefault("workers", 0)
	v.SetDefault("log_level", "info")
}

// Setup reads cfgPath (skipped when empty) and applies environment
// overrides on top of the defaults.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have a fixed domain.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "badger", "redis", "memory", "none":
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if c.Search.Depth < 1 {
		return fmt.Errorf("search.depth must be positive, got %d", c.Search.Depth)
	}
	if c.Search.HashMB < 1 {
		return fmt.Errorf("search.hash_mb must be positive, got %d", c.Search.HashMB)
	}
	return nil
}
