package platform

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"howett.net/plist"

	"github.com/kalambet/prefs/internal/preferences"
)

// globalDomain is the domain every macOS process reads; it cannot be used as
// a suite.
const globalDomain = "NSGlobalDomain"

// runner executes the defaults tool. Replaced in tests.
type runner func(args ...string) ([]byte, error)

func execDefaults(args ...string) ([]byte, error) {
	return exec.Command("defaults", args...).CombinedOutput()
}

// DefaultsProvider opens UserDefaults domains through the `defaults` CLI.
// The standard store is the application domain; each suite is a domain of its
// own, as UserDefaults(suiteName:) does.
type DefaultsProvider struct {
	domain string
	run    runner
}

var _ preferences.Provider = (*DefaultsProvider)(nil)

// NewDefaultsProvider returns a provider whose standard store is domain.
func NewDefaultsProvider(domain string) *DefaultsProvider {
	return &DefaultsProvider{domain: domain, run: execDefaults}
}

func (p *DefaultsProvider) Standard() (preferences.Backend, error) {
	return &defaultsBackend{domain: p.domain, run: p.run}, nil
}

func (p *DefaultsProvider) Suite(name string) (preferences.Backend, error) {
	switch name {
	case "":
		return nil, fmt.Errorf("%w: empty suite name", preferences.ErrSuiteUnavailable)
	case p.domain, globalDomain:
		return nil, fmt.Errorf("%w: %q cannot be used as a suite", preferences.ErrSuiteUnavailable, name)
	}
	return &defaultsBackend{domain: name, run: p.run}, nil
}

type defaultsBackend struct {
	domain string
	run    runner
}

// export reads the whole domain as a property list. A domain that was never
// written reads as empty.
func (b *defaultsBackend) export() (map[string]any, error) {
	out, err := b.run("export", b.domain, "-")
	if err != nil {
		if missingDomain(err, out) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("exporting domain '%s': %w, output: %s", b.domain, err, bytes.TrimSpace(out))
	}
	data := map[string]any{}
	if len(bytes.TrimSpace(out)) == 0 {
		return data, nil
	}
	if _, err := plist.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("decoding domain '%s': %w", b.domain, err)
	}
	return data, nil
}

func (b *defaultsBackend) Get(key string) (any, bool, error) {
	data, err := b.export()
	if err != nil {
		return nil, false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (b *defaultsBackend) Set(key, val string) error {
	if out, err := b.run("write", b.domain, key, "-string", val); err != nil {
		return fmt.Errorf("writing default for key '%s': %w, output: %s", key, err, bytes.TrimSpace(out))
	}
	return nil
}

func (b *defaultsBackend) Remove(key string) error {
	out, err := b.run("delete", b.domain, key)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil
		}
		return fmt.Errorf("deleting default for key '%s': %w, output: %s", key, err, bytes.TrimSpace(out))
	}
	return nil
}

func (b *defaultsBackend) Keys() ([]string, error) {
	data, err := b.export()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	return keys, nil
}

func missingDomain(err error, out []byte) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return strings.Contains(string(out), "does not exist")
}
