//go:build !darwin

package platform

import (
	"os"
	"path/filepath"

	"github.com/kalambet/prefs/internal/preferences"
)

// NativeBackend names the backend Native returns.
const NativeBackend = "file"

// DefaultDataDir returns the directory used for file and SQLite storage.
func DefaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "prefs-data"
		}
	}
	return filepath.Join(dir, "prefs")
}

// Native returns the platform store: a JSON file tree under dataDir.
// domain is unused outside macOS.
func Native(_ string, dataDir string) preferences.Provider {
	return NewFileProvider(FileDir(dataDir))
}
