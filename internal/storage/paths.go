// Package storage provides evaluation cache backends and the on-disk
// layout for models and the cache database.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "reversi"

// GetDataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/reversi/
// - Linux: ~/.local/share/reversi/
// - Windows: %APPDATA%/reversi/
func GetDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		// Check XDG_DATA_HOME first
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	return ensureDir(filepath.Join(baseDir, appName))
}

// GetModelDir returns the directory holding model weight files.
// An empty dataDir selects GetDataDir.
func GetModelDir(dataDir string) (string, error) {
	return subDir(dataDir, "models")
}

// GetDatabaseDir returns the directory for the BadgerDB cache database.
// An empty dataDir selects GetDataDir.
func GetDatabaseDir(dataDir string) (string, error) {
	return subDir(dataDir, "db")
}

func subDir(dataDir, name string) (string, error) {
	if dataDir == "" {
		var err error
		if dataDir, err = GetDataDir(); err != nil {
			return "", err
		}
	}
	return ensureDir(filepath.Join(dataDir, name))
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
