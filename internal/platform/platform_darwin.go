//go:build darwin

package platform

import (
	"os"
	"path/filepath"

	"github.com/kalambet/prefs/internal/preferences"
)

// NativeBackend names the backend Native returns.
const NativeBackend = "defaults"

// DefaultDataDir returns the directory used for file and SQLite storage.
func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "prefs")
	}
	return "prefs-data"
}

// Native returns the platform store: UserDefaults, with domain as the
// standard store. dataDir is unused on macOS.
func Native(domain, _ string) preferences.Provider {
	return NewDefaultsProvider(domain)
}
