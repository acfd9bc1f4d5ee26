package platform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/prefs/internal/preferences"
)

// FileDir returns the directory the file provider uses inside dataDir.
func FileDir(dataDir string) string {
	return filepath.Join(dataDir, "preferences")
}

// FileProvider stores each store as a flat JSON object. The standard store
// lives in <dir>/standard.json and suites in <dir>/suites/<name>.json, so a
// suite can never share keys with the standard store.
// This is the default for Linux and other non-macOS platforms.
type FileProvider struct {
	dir string

	mu       sync.Mutex
	standard *fileBackend
	suites   map[string]*fileBackend
}

var _ preferences.Provider = (*FileProvider)(nil)

// NewFileProvider returns a provider rooted at dir. Nothing is read or
// created until a store is used.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir, suites: make(map[string]*fileBackend)}
}

func (p *FileProvider) Standard() (preferences.Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.standard == nil {
		p.standard = &fileBackend{path: filepath.Join(p.dir, "standard.json")}
	}
	return p.standard, nil
}

func (p *FileProvider) Suite(name string) (preferences.Backend, error) {
	if err := validSuiteName(name); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.suites[name]
	if !ok {
		b = &fileBackend{path: filepath.Join(p.dir, "suites", name+".json")}
		p.suites[name] = b
	}
	return b, nil
}

func validSuiteName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty suite name", preferences.ErrSuiteUnavailable)
	case name == "." || name == "..", strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q is not a valid file name", preferences.ErrSuiteUnavailable, name)
	}
	return nil
}

// fileBackend keeps the decoded file in memory and reloads it when the file
// changes on disk, so writes from other processes become visible.
type fileBackend struct {
	path string

	mu      sync.Mutex
	data    map[string]any
	modTime time.Time
	loaded  bool
}

// refresh loads the file if it was never read or changed since. Callers hold b.mu.
func (b *fileBackend) refresh() error {
	info, err := os.Stat(b.path)
	if os.IsNotExist(err) {
		if !b.loaded || !b.modTime.IsZero() {
			b.data = make(map[string]any)
			b.modTime = time.Time{}
			b.loaded = true
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading preferences file %s: %w", b.path, err)
	}
	if b.loaded && info.ModTime().Equal(b.modTime) {
		return nil
	}

	raw, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("reading preferences file %s: %w", b.path, err)
	}
	data := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parsing preferences file %s: %w", b.path, err)
		}
	}
	b.data = data
	b.modTime = info.ModTime()
	b.loaded = true
	return nil
}

// save writes the map to a temp file and renames it over the old one.
// Callers hold b.mu.
func (b *fileBackend) save() error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating preferences dir: %w", err)
	}
	data, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing preferences file: %w", err)
	}
	if info, err := os.Stat(b.path); err == nil {
		b.modTime = info.ModTime()
	}
	return nil
}

func (b *fileBackend) Get(key string) (any, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(); err != nil {
		return nil, false, err
	}
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *fileBackend) Set(key, val string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(); err != nil {
		return err
	}
	b.data[key] = val
	if err := b.save(); err != nil {
		b.loaded = false
		return err
	}
	return nil
}

func (b *fileBackend) Remove(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(); err != nil {
		return err
	}
	if _, ok := b.data[key]; !ok {
		return nil
	}
	delete(b.data, key)
	if err := b.save(); err != nil {
		b.loaded = false
		return err
	}
	return nil
}

func (b *fileBackend) Keys() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys, nil
}
