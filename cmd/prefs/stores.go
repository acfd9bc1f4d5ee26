package main

import (
	"fmt"

	"github.com/kalambet/prefs/internal/config"
	"github.com/kalambet/prefs/internal/platform"
	"github.com/kalambet/prefs/internal/preferences"
	"github.com/kalambet/prefs/internal/storage"
)

// prefStore is the set of operations the commands need. *preferences.Store
// and *remoteStore satisfy it.
type prefStore interface {
	Get(key string) (string, bool, error)
	Set(key, val string) error
	Remove(key string) error
	RemoveAll() error
	Keys() ([]string, error)
	Migrate() (preferences.MigrationResult, error)
	RemoveOld() error
}

var loadConfig = config.Load

// resolvedConfig loads the configuration and applies the global flags on top.
func resolvedConfig() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if flagGroup != "" {
		cfg.Preferences.Group = flagGroup
	}
	if flagBackend != "" {
		cfg.Storage.Backend = flagBackend
	}
	if flagDataDir != "" {
		cfg.Storage.DataDir = flagDataDir
	}
	return cfg, nil
}

// newProvider opens the backend cfg selects. The returned close func
// releases it and is never nil.
var newProvider = func(cfg config.Config) (preferences.Provider, func() error, error) {
	noop := func() error { return nil }

	switch backend := cfg.ResolvedBackend(); backend {
	case config.BackendDefaults:
		return platform.NewDefaultsProvider(cfg.Storage.Domain), noop, nil
	case config.BackendFile:
		return platform.NewFileProvider(platform.FileDir(cfg.Storage.DataDir)), noop, nil
	case config.BackendSQLite:
		st, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening storage: %w", err)
		}
		return st, st.Close, nil
	case config.BackendMemory:
		return preferences.NewMemoryProvider(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// openRegistry opens the configured backend behind a handle cache.
func openRegistry(cfg config.Config) (*preferences.Registry, func() error, error) {
	p, closeFn, err := newProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	return preferences.NewRegistry(p), closeFn, nil
}

// openStore returns the store for the configured group, local or remote.
func openStore() (prefStore, func() error, error) {
	cfg, err := resolvedConfig()
	if err != nil {
		return nil, nil, err
	}
	if flagRemote {
		client, err := newAPIClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return &remoteStore{client: client, group: cfg.Group()}, func() error { return nil }, nil
	}

	reg, closeFn, err := openRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	return reg.Open(cfg.Group()), closeFn, nil
}
