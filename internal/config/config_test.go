package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Setup("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("cache.backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Search.Depth != 6 || cfg.Search.HashMB != 64 {
		t.Errorf("search = %+v", cfg.Search)
	}
}

func TestFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reversi.yaml")
	data := []byte(`
model_path: /models/net.rvnn
cache:
  backend: redis
  redis_url: redis://cache:6379/1
search:
  depth: 9
  move_time: 750ms
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REVERSI_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("REVERSI_LOG_LEVEL", "debug")

	cfg, err := Setup(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ModelPath != "/models/net.rvnn" {
		t.Errorf("model_path = %q", cfg.ModelPath)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisURL != "redis://cache:6379/1" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Search.Depth != 9 || cfg.Search.MoveTime != 750*time.Millisecond {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server.addr = %q, want env override", cfg.Server.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"backend", "REVERSI_CACHE_BACKEND", "etcd"},
		{"log level", "REVERSI_LOG_LEVEL", "loud"},
		{"depth", "REVERSI_SEARCH_DEPTH", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Setup(""); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Setup(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
