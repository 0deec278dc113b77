// Package plugin runs the SetUp/TearDown lifecycle of editor plugins.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
)

// Policy decides what a failed SetUp does to the rest of the batch.
type Policy int

const (
	// BestEffort reports the failure and keeps going. Plugins set up before
	// the failing one stay attached.
	BestEffort Policy = iota
	// Strict tears down the plugins already set up in the batch and fails.
	Strict
)

func (p Policy) String() string {
	switch p {
	case BestEffort:
		return "best-effort"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a config string to a Policy. The empty string is BestEffort.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "best-effort", "best_effort":
		return BestEffort, nil
	case "strict":
		return Strict, nil
	}
	return BestEffort, fmt.Errorf("unknown plugin policy %q", s)
}

// State is where a plugin is in its lifecycle.
type State int

const (
	StatePending State = iota
	StateActive
	StateFailed
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// Status is a snapshot of one plugin's lifecycle.
type Status struct {
	Name  string
	State State
	Err   error
}

type entry struct {
	plugin ports.Plugin
	name   string
	state  State
	err    error
}

// Manager attaches plugins to a host and detaches them in reverse order.
type Manager struct {
	host   ports.Host
	policy Policy
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu      sync.Mutex
	entries []*entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy sets the SetUp failure policy.
func WithPolicy(p Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithLogger sets a custom structured logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks reports plugin failures through hooks.OnPluginError.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// NewManager creates a manager for plugins of host.
func NewManager(host ports.Host, opts ...Option) *Manager {
	m := &Manager{host: host}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// Name returns the display name of p.
func Name(p ports.Plugin) string {
	if n, ok := p.(ports.Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}

// Attach sets up plugins in order. Under BestEffort it returns nil even when
// some fail; the failures are logged, reported to OnPluginError and visible
// in Statuses. Under Strict the first failure tears down the plugins set up
// by this call and is returned.
func (m *Manager) Attach(ctx context.Context, plugins ...ports.Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var batch []*entry
	for _, p := range plugins {
		en := &entry{plugin: p, name: Name(p)}
		m.entries = append(m.entries, en)

		if err := safeCall(func() error { return p.SetUp(m.host) }); err != nil {
			en.state = StateFailed
			en.err = err
			m.report(ctx, en.name, "setup", err)

			if m.policy == Strict {
				for i := len(batch) - 1; i >= 0; i-- {
					m.tearDown(ctx, batch[i])
				}
				return fmt.Errorf("failed to set up plugin %s: %w", en.name, err)
			}
			continue
		}
		en.state = StateActive
		batch = append(batch, en)
		m.logger.Debug("plugin set up", "plugin", en.name)
	}
	return nil
}

// Detach tears down every active plugin in reverse attach order. All plugins
// are torn down even if some fail; the failures are joined.
func (m *Manager) Detach(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.entries) - 1; i >= 0; i-- {
		if err := m.tearDown(ctx, m.entries[i]); err != nil {
			errs = append(errs, fmt.Errorf("failed to tear down plugin %s: %w", m.entries[i].name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) tearDown(ctx context.Context, en *entry) error {
	if en.state != StateActive {
		return nil
	}
	err := safeCall(en.plugin.TearDown)
	en.state = StateTornDown
	if err != nil {
		en.err = err
		m.report(ctx, en.name, "teardown", err)
		return err
	}
	m.logger.Debug("plugin torn down", "plugin", en.name)
	return nil
}

func (m *Manager) report(ctx context.Context, name, phase string, err error) {
	m.logger.Warn("plugin failed", "plugin", name, "phase", phase, "error", err)
	if m.hooks.OnPluginError != nil {
		m.hooks.OnPluginError(ctx, &domain.PluginEvent{
			Timestamp: time.Now(),
			Plugin:    name,
			Phase:     phase,
			Err:       err,
		})
	}
}

// Statuses lists every plugin ever attached, in attach order.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, len(m.entries))
	for i, en := range m.entries {
		out[i] = Status{Name: en.name, State: en.state, Err: en.err}
	}
	return out
}

// Failures returns the statuses of plugins whose SetUp failed.
func (m *Manager) Failures() []Status {
	var out []Status
	for _, s := range m.Statuses() {
		if s.State == StateFailed {
			out = append(out, s)
		}
	}
	return out
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
