package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "storage.backend", typ: kString, env: "PREFS_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PREFS_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.domain", typ: kString, env: "PREFS_STORAGE_DOMAIN",
		apply:   func(cfg *Config, v any) { cfg.Storage.Domain = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Domain },
	},
	{
		key: "preferences.group", typ: kString, env: "PREFS_PREFERENCES_GROUP",
		apply:   func(cfg *Config, v any) { cfg.Preferences.Group = v.(string) },
		extract: func(cfg Config) any { return cfg.Preferences.Group },
	},
	{
		key: "server.port", typ: kInt, env: "PREFS_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "PREFS_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "server.metrics_enabled", typ: kBool, env: "PREFS_SERVER_METRICS_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Server.MetricsEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MetricsEnabled },
	},
	{
		key: "log.level", typ: kString, env: "PREFS_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applySettings(cfg *Config, s Settings) error {
	for _, spec := range specs {
		if spec.secret {
			continue
		}
		v, ok, err := s.Get(spec.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", spec.key, err)
		}
		if !ok || v == "" {
			continue
		}
		switch spec.typ {
		case kString:
			spec.apply(cfg, v)
		case kInt:
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer for %s: %w", spec.key, err)
			}
			spec.apply(cfg, i)
		case kBool:
			if bv, err := strconv.ParseBool(v); err == nil {
				spec.apply(cfg, bv)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", spec.key, v, err)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, spec := range specs {
		if spec.env == "" {
			continue
		}
		raw := os.Getenv(spec.env)
		if raw == "" {
			continue
		}
		switch spec.typ {
		case kString:
			spec.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				spec.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", spec.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				spec.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", spec.env, raw, err)
			}
		}
	}
}
