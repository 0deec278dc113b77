// Package config loads folio settings from a YAML or JSON file and FOLIO_*
// environment variables. Environment values win over the file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/folio/pkg/plugin"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreLoam   = "loam"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FOLIO_"

type Config struct {
	Log      Log      `yaml:"log"`
	Store    Store    `yaml:"store"`
	Editor   Editor   `yaml:"editor"`
	Security Security `yaml:"security"`
	HTTP     HTTP     `yaml:"http"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Store struct {
	Kind string `yaml:"kind"`
	// Path is the directory of the file and loam stores.
	Path string `yaml:"path"`
	// Format is json or yaml for the file store.
	Format string `yaml:"format"`
	Redis  Redis  `yaml:"redis"`
}

type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	// Lock serializes edits across replicas sharing the server.
	Lock    bool          `yaml:"lock"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type Editor struct {
	// Plugins lists the plugins attached to every editor: list, tab,
	// mention, history and metrics.
	Plugins      []string `yaml:"plugins"`
	PluginPolicy string   `yaml:"plugin_policy"`
	HistoryLimit int      `yaml:"history_limit"`
}

type Security struct {
	// EncryptionKey is a base64 AES-256 key. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
	RedactPII     bool     `yaml:"redact_pii"`
	PIIPatterns   []string `yaml:"pii_patterns"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Log:   Log{Level: "info", Format: "text"},
		Store: Store{Kind: StoreFile, Path: ".folio/documents", Format: "json"},
		Editor: Editor{
			Plugins:      []string{"list", "tab", "mention", "history", "metrics"},
			PluginPolicy: plugin.BestEffort.String(),
			HistoryLimit: 100,
		},
		HTTP: HTTP{Addr: ":8080"},
	}
}

// Load reads path over the defaults, applies the environment and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		// JSON is valid YAML.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = splitList(v)
		}
	}
	var errs []error
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("STORE", &c.Store.Kind)
	str("STORE_PATH", &c.Store.Path)
	str("STORE_FORMAT", &c.Store.Format)
	str("REDIS_ADDR", &c.Store.Redis.Addr)
	str("REDIS_PASSWORD", &c.Store.Redis.Password)
	integer("REDIS_DB", &c.Store.Redis.DB)
	str("REDIS_PREFIX", &c.Store.Redis.Prefix)
	duration("REDIS_TTL", &c.Store.Redis.TTL)
	boolean("REDIS_LOCK", &c.Store.Redis.Lock)
	duration("REDIS_LOCK_TTL", &c.Store.Redis.LockTTL)
	list("PLUGINS", &c.Editor.Plugins)
	str("PLUGIN_POLICY", &c.Editor.PluginPolicy)
	integer("HISTORY_LIMIT", &c.Editor.HistoryLimit)
	str("ENCRYPTION_KEY", &c.Security.EncryptionKey)
	list("FALLBACK_KEYS", &c.Security.FallbackKeys)
	boolean("REDACT_PII", &c.Security.RedactPII)
	list("PII_PATTERNS", &c.Security.PIIPatterns)
	str("HTTP_ADDR", &c.HTTP.Addr)
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Kind {
	case StoreMemory, StoreRedis:
	case StoreFile, StoreLoam:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for the %s store", c.Store.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store kind %q", c.Store.Kind))
	}
	if c.Store.Kind == StoreFile && c.Store.Format != "json" && c.Store.Format != "yaml" {
		errs = append(errs, fmt.Errorf("store.format must be json or yaml, got %q", c.Store.Format))
	}
	if c.Store.Kind == StoreRedis && c.Store.Redis.Addr == "" {
		errs = append(errs, errors.New("store.redis.addr is required for the redis store"))
	}
	if _, err := plugin.ParsePolicy(c.Editor.PluginPolicy); err != nil {
		errs = append(errs, err)
	}
	for _, name := range c.Editor.Plugins {
		if !knownPlugins[name] {
			errs = append(errs, fmt.Errorf("unknown plugin %q", name))
		}
	}
	if c.Security.EncryptionKey != "" {
		for _, k := range append([]string{c.Security.EncryptionKey}, c.Security.FallbackKeys...) {
			if _, err := DecodeKey(k); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var knownPlugins = map[string]bool{
	"list": true, "tab": true, "mention": true, "history": true, "metrics": true,
}

// DecodeKey decodes a base64 AES-256 key.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// HasPlugin reports whether name is enabled.
func (c Config) HasPlugin(name string) bool {
	for _, p := range c.Editor.Plugins {
		if p == name {
			return true
		}
	}
	return false
}
