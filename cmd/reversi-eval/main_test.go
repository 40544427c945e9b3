package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hailam/reversi/internal/config"
	"github.com/hailam/reversi/internal/nn"
	"github.com/hailam/reversi/internal/storage"
)

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	net, err := nn.NewNetwork(nn.DefaultTopology(), nn.DefaultActivations())
	if err != nil {
		t.Fatal(err)
	}
	net.InitRandom(7)
	modelDir, err := storage.GetModelDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(modelDir, config.DefaultModelFile)
	if err := net.Save(path); err != nil {
		t.Fatal(err)
	}

	// Found through the data directory.
	got, gotPath, err := loadModel(&config.Config{DataDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()
	if gotPath != path || got.ID != net.ID {
		t.Errorf("loaded %s id %x, want %s id %x", gotPath, got.ID, path, net.ID)
	}

	// An explicit path that does not exist is an error.
	if _, _, err := loadModel(&config.Config{ModelPath: filepath.Join(dir, "missing.rvnn")}); !errors.Is(err, nn.ErrModelUnavailable) {
		t.Errorf("missing model: got %v, want ErrModelUnavailable", err)
	}
}

func TestLoadModelNotFound(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
	_, _, err = loadModel(&config.Config{DataDir: t.TempDir()})
	if !errors.Is(err, nn.ErrModelUnavailable) {
		t.Errorf("got %v, want ErrModelUnavailable", err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if NewLogger(level) == nil {
			t.Errorf("NewLogger(%q) = nil", level)
		}
	}
}
