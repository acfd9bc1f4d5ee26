package config

import (
	"fmt"
	"strings"

	"github.com/kalambet/prefs/internal/platform"
	"github.com/kalambet/prefs/internal/preferences"
)

// Storage backends accepted by storage.backend.
const (
	BackendAuto     = "auto"
	BackendDefaults = "defaults"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// DefaultDomain is the UserDefaults domain of the standard store on macOS.
const DefaultDomain = "com.kalambet.prefs"

// settingsGroup is the group prefs keeps its own settings in.
const settingsGroup = "prefs"

type Config struct {
	Storage     StorageConfig
	Preferences PreferencesConfig
	Server      ServerConfig
	Log         LogConfig
}

type StorageConfig struct {
	Backend string
	DataDir string
	Domain  string
}

type PreferencesConfig struct {
	Group string
}

type ServerConfig struct {
	Port           int
	Token          string
	MetricsEnabled bool
}

type LogConfig struct {
	Level string
}

// Group returns the configured preferences group.
func (c Config) Group() preferences.Group {
	return preferences.ParseGroup(c.Preferences.Group)
}

// ResolvedBackend returns the storage backend with "auto" replaced by the
// platform default.
func (c Config) ResolvedBackend() string {
	if c.Storage.Backend == BackendAuto || c.Storage.Backend == "" {
		return platform.NativeBackend
	}
	return c.Storage.Backend
}

func defaults() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendAuto,
			DataDir: platform.DefaultDataDir(),
			Domain:  DefaultDomain,
		},
		Preferences: PreferencesConfig{
			Group: preferences.DefaultGroupName,
		},
		Server: ServerConfig{
			Port:           4100,
			MetricsEnabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Settings is where persisted configuration values live.
// *preferences.Store satisfies it.
type Settings interface {
	Get(key string) (val string, ok bool, err error)
	Set(key, val string) error
}

// NewSettings returns the store prefs reads its own configuration from: the
// "prefs" group of the platform-native store.
func NewSettings() *preferences.Store {
	provider := platform.Native(DefaultDomain, platform.DefaultDataDir())
	return preferences.New(preferences.NewConfiguration(preferences.Named(settingsGroup)), provider)
}

// Load reads configuration from the platform-native settings store and
// environment variables.
//
// On macOS settings live in the UserDefaults suite "prefs".
// On Linux they live in a JSON file under $XDG_DATA_HOME/prefs/preferences.
//
// Environment variables (PREFS_*) override stored values on all platforms.
// The server token is only read from the environment or the platform secret
// store.
func Load() (Config, error) {
	return loadWith(NewSettings(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(s Settings, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applySettings(&cfg, s); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.Token == "" {
		if token, err := kc.Get("prefs", "server_token"); err == nil && token != "" {
			cfg.Server.Token = token
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Storage.Backend {
	case BackendAuto, BackendDefaults, BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid storage.backend %q: want one of auto, defaults, file, sqlite, memory", cfg.Storage.Backend)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	return nil
}

// RequireToken returns an error naming where the server token can be set.
func RequireToken(cfg Config) error {
	if cfg.Server.Token != "" {
		return nil
	}
	return fmt.Errorf("missing required config: server token. Set it via environment variable PREFS_SERVER_TOKEN%s", secretHint())
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
