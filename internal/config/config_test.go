package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
store:
  kind: redis
  redis:
    addr: localhost:6379
    ttl: 90s
editor:
  plugins: [list, history]
  plugin_policy: strict
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, StoreRedis, cfg.Store.Kind)
	assert.Equal(t, 90*time.Second, cfg.Store.Redis.TTL)
	assert.Equal(t, []string{"list", "history"}, cfg.Editor.Plugins)
	assert.True(t, cfg.HasPlugin("history"))
	assert.False(t, cfg.HasPlugin("metrics"))
	// Unset sections keep their defaults.
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store": {"kind": "memory"}, "http": {"addr": ":9090"}}`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"FOLIO_STORE":         "memory",
		"FOLIO_PLUGINS":       "list, tab ,",
		"FOLIO_REDIS_DB":      "2",
		"FOLIO_REDIS_LOCK":    "true",
		"FOLIO_HISTORY_LIMIT": "5",
	}))
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, []string{"list", "tab"}, cfg.Editor.Plugins)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.True(t, cfg.Store.Redis.Lock)
	assert.Equal(t, 5, cfg.Editor.HistoryLimit)

	err = cfg.ApplyEnv(env(map[string]string{"FOLIO_REDIS_DB": "two", "FOLIO_REDIS_TTL": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOLIO_REDIS_DB")
	assert.Contains(t, err.Error(), "FOLIO_REDIS_TTL")
}

func TestValidate(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown store", func(c *Config) { c.Store.Kind = "s3" }, "unknown store kind"},
		{"file without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"bad format", func(c *Config) { c.Store.Format = "toml" }, "store.format"},
		{"redis without addr", func(c *Config) { c.Store.Kind = StoreRedis }, "store.redis.addr"},
		{"bad policy", func(c *Config) { c.Editor.PluginPolicy = "yolo" }, "plugin policy"},
		{"unknown plugin", func(c *Config) { c.Editor.Plugins = []string{"tables"} }, "unknown plugin"},
		{"short key", func(c *Config) { c.Security.EncryptionKey = "c2hvcnQ=" }, "32 bytes"},
		{"bad fallback", func(c *Config) {
			c.Security.EncryptionKey = key
			c.Security.FallbackKeys = []string{"%%%"}
		}, "base64"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	cfg := Default()
	cfg.Security.EncryptionKey = key
	assert.NoError(t, cfg.Validate())
}
