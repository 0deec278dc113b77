// Package cli wires configuration into the stores, editors and workspace the
// folio commands run on.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/adapters/file"
	"github.com/aretw0/folio/internal/config"
	"github.com/aretw0/folio/internal/logging"
	loamstore "github.com/aretw0/folio/pkg/adapters/loam"
	"github.com/aretw0/folio/pkg/adapters/memory"
	redisadapter "github.com/aretw0/folio/pkg/adapters/redis"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/history"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/aretw0/folio/pkg/observability"
	"github.com/aretw0/folio/pkg/persistence/middleware"
	"github.com/aretw0/folio/pkg/plugin"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/workspace"
)

// Runtime is everything a long-running command needs.
type Runtime struct {
	Config    config.Config
	Logger    *slog.Logger
	Store     ports.DocumentStore
	Metrics   *observability.Metrics
	Workspace *workspace.Manager

	closers []func() error
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level, cfg.Log.Format), nil
}

// Open builds a Runtime from cfg.
func Open(ctx context.Context, cfg config.Config) (*Runtime, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logger}

	store, err := rt.openStore()
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Store, err = Secure(cfg, store)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if cfg.HasPlugin("metrics") {
		rt.Metrics = observability.NewMetrics("folio")
	}

	wsOpts := []workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithEditorFactory(func(string) []folio.Option {
			return rt.EditorOptions()
		}),
	}
	if cfg.Store.Kind == config.StoreRedis && cfg.Store.Redis.Lock {
		rs := store.(*redisadapter.Store)
		wsOpts = append(wsOpts,
			workspace.WithLocker(redisadapter.NewLocker(rs.Client(), cfg.Store.Redis.Prefix)),
			workspace.WithLockTTL(cfg.Store.Redis.LockTTL),
		)
	}
	rt.Workspace = workspace.NewManager(rt.Store, wsOpts...)
	rt.closers = append(rt.closers, rt.Workspace.Close)

	logger.Debug("runtime ready", "store", cfg.Store.Kind, "plugins", cfg.Editor.Plugins)
	return rt, nil
}

func (rt *Runtime) openStore() (ports.DocumentStore, error) {
	cfg := rt.Config.Store
	switch cfg.Kind {
	case config.StoreMemory:
		return memory.NewStore(), nil
	case config.StoreFile:
		return file.NewWithFormat(cfg.Path, codec.Format(cfg.Format)), nil
	case config.StoreLoam:
		return loamstore.Open(cfg.Path)
	case config.StoreRedis:
		var opts []redisadapter.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisadapter.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redisadapter.WithTTL(cfg.Redis.TTL))
		}
		rs := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		rt.closers = append(rt.closers, rs.Close)
		return rs, nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}

// Secure wraps store with the encryption and redaction middleware cfg enables.
// Redaction runs first so masked values are what gets encrypted.
func Secure(cfg config.Config, store ports.DocumentStore) (ports.DocumentStore, error) {
	var mws []middleware.Middleware
	if cfg.Security.RedactPII {
		patterns := cfg.Security.PIIPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		mw, err := middleware.NewPIIMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.Security.EncryptionKey != "" {
		active, err := config.DecodeKey(cfg.Security.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range cfg.Security.FallbackKeys {
			key, err := config.DecodeKey(k)
			if err != nil {
				return nil, err
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}

// EditorOptions returns fresh options for one editor: plugin instances keep
// per-editor state and cannot be shared.
func (rt *Runtime) EditorOptions() []folio.Option {
	policy, _ := plugin.ParsePolicy(rt.Config.Editor.PluginPolicy)
	opts := []folio.Option{
		folio.WithLogger(rt.Logger),
		folio.WithPluginPolicy(policy),
		folio.WithLifecycleHooks(DebugHooks(rt.Logger)),
	}
	var plugins []folio.Plugin
	for _, name := range rt.Config.Editor.Plugins {
		switch name {
		case "list":
			plugins = append(plugins, nodes.ListPlugin{})
		case "tab":
			plugins = append(plugins, nodes.TabPlugin{})
		case "mention":
			plugins = append(plugins, nodes.MentionPlugin{})
		case "history":
			plugins = append(plugins, history.New(history.WithLimit(rt.Config.Editor.HistoryLimit)))
		case "metrics":
			if rt.Metrics != nil {
				plugins = append(plugins, rt.Metrics.Recorder())
			}
		}
	}
	return append(opts, folio.WithPlugins(plugins...))
}

// Standalone builds a Runtime without a store for commands that only work on
// local files.
func Standalone(cfg config.Config) (*Runtime, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return &Runtime{Config: cfg, Logger: logger}, nil
}

// Types lists the node types an editor built from rt understands.
func (rt *Runtime) Types() []string {
	ed, err := rt.NewEditor()
	if err != nil {
		rt.Logger.Warn("failed to build probe editor", "err", err)
		return nil
	}
	defer ed.Close()
	return ed.Registry().Tags()
}

// NewEditor builds a standalone editor with the configured plugins.
func (rt *Runtime) NewEditor(opts ...folio.Option) (*folio.Editor, error) {
	return folio.New(append(rt.EditorOptions(), opts...)...)
}

// Close releases the workspace and the store connections.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// DebugHooks logs every commit, rollback and plugin failure at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			logger.Debug("commit", "version", e.Version, "tag", e.Tag, "dirty", e.Dirty, "nodes", e.Nodes, "duration", e.Duration)
		},
		OnRollback: func(ctx context.Context, e *domain.RollbackEvent) {
			logger.Debug("rollback", "tag", e.Tag, "err", e.Err)
		},
		OnPluginError: func(ctx context.Context, e *domain.PluginEvent) {
			logger.Debug("plugin failed", "plugin", e.Plugin, "phase", e.Phase, "err", e.Err)
		},
	}
}
