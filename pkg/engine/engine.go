package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/folio/pkg/domain"
)

// Body is the mutation callback of an update. It must finish its work before
// returning and must not keep tx or ctx around afterwards.
type Body func(ctx context.Context, tx *Tx) error

// Listener is told about every published snapshot, in commit order. ctx
// carries the values of the committing update but is never cancelled.
type Listener func(ctx context.Context, prev, next *domain.Snapshot)

// TypeResolver reports whether a type tag is registered. When set, commits
// containing nodes of unregistered types are rejected.
type TypeResolver interface {
	Has(tag string) bool
}

// Engine owns the committed snapshot and is the single entry point for
// mutating it.
type Engine struct {
	current atomic.Pointer[domain.Snapshot]
	phase   atomic.Int32

	// writeMu serializes top-level updates coming from different goroutines.
	writeMu sync.Mutex

	logger   *slog.Logger
	resolver TypeResolver

	hooksMu sync.RWMutex
	hooks   []domain.LifecycleHooks

	listenersMu  sync.Mutex
	listeners    []listenerEntry
	nextListener uint64

	notifyMu sync.Mutex
	pending  []notification
	draining bool
}

type listenerEntry struct {
	id uint64
	fn Listener
}

type notification struct {
	ctx        context.Context
	prev, next *domain.Snapshot
	done       chan struct{}
}

type deliveringKey struct{}

// delivering reports whether ctx was handed to a listener of e.
func (e *Engine) delivering(ctx context.Context) bool {
	d, _ := ctx.Value(deliveringKey{}).(*Engine)
	return d == e
}

// await blocks until done is closed, unless ctx belongs to a listener of e:
// that listener runs on the delivering goroutine, which reaches done only
// after the listener returns.
func (e *Engine) await(ctx context.Context, done <-chan struct{}) {
	if done == nil || e.delivering(ctx) {
		return
	}
	<-done
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithTypeResolver makes commits check node types against r.
func WithTypeResolver(r TypeResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithSnapshot starts the engine from snap instead of an empty document.
func WithSnapshot(snap *domain.Snapshot) Option {
	return func(e *Engine) {
		e.current.Store(snap)
	}
}

// New creates an engine holding an empty document.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if e.current.Load() == nil {
		e.current.Store(domain.EmptySnapshot())
	}
	return e
}

// Current returns the committed snapshot. It is safe to call from any goroutine.
func (e *Engine) Current() *domain.Snapshot {
	return e.current.Load()
}

// Phase returns the current phase of the write path.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

// AddHooks registers more lifecycle hooks. Plugins use it to observe
// rollbacks, which listeners never see.
func (e *Engine) AddHooks(h domain.LifecycleHooks) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, h)
}

// Subscribe registers l and returns a function that removes it.
func (e *Engine) Subscribe(l Listener) func() {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.nextListener++
	id := e.nextListener
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			e.listenersMu.Lock()
			defer e.listenersMu.Unlock()
			for i, entry := range e.listeners {
				if entry.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// UpdateOption tunes a single update.
type UpdateOption func(*updateConfig)

type updateConfig struct {
	tag string
}

// WithTag labels the resulting snapshot. Nested updates adopt the tag only
// when the outer update has none.
func WithTag(tag string) UpdateOption {
	return func(c *updateConfig) {
		c.tag = tag
	}
}

// Update runs body against a working copy of the committed snapshot and
// publishes the result if body succeeds and the tree is valid.
//
// A call made with a context handed to a running body joins that update:
// its changes become part of the outer commit, and its failure makes the
// outer update roll back. Bodies that start further updates must pass their
// own ctx; an update started with an unrelated context from inside a body
// waits for the running one to finish.
//
// Update returns once every listener has seen the commit. Listeners that
// start updates must pass the ctx they were handed; those updates return
// at once and are delivered after the listener finishes.
func (e *Engine) Update(ctx context.Context, body Body, opts ...UpdateOption) error {
	cfg := updateConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if tx, ok := txFromContext(ctx); ok && tx.engine == e && !tx.closed {
		return tx.runNested(ctx, body, cfg.tag)
	}

	var done <-chan struct{}
	err := func() error {
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
		var err error
		done, err = e.runTopLevel(ctx, body, cfg)
		return err
	}()

	e.drain()
	e.await(ctx, done)
	return err
}

func (e *Engine) runTopLevel(ctx context.Context, body Body, cfg updateConfig) (<-chan struct{}, error) {
	start := time.Now()
	tx := newTx(e, e.current.Load(), cfg.tag)
	e.phase.Store(int32(PhaseInTransaction))

	published := false
	defer func() {
		if r := recover(); r != nil {
			if !published {
				e.rollback(ctx, tx, start, fmt.Errorf("update panicked: %v", r))
			}
			panic(r)
		}
	}()

	if bodyErr := body(withTx(ctx, tx), tx); bodyErr != nil {
		e.rollback(ctx, tx, start, bodyErr)
		return nil, bodyErr
	}
	if tx.poison != nil {
		e.rollback(ctx, tx, start, tx.poison)
		return nil, tx.poison
	}

	e.phase.Store(int32(PhaseCommitting))
	next, err := tx.build()
	if err != nil {
		e.rollback(ctx, tx, start, err)
		return nil, err
	}
	tx.close()
	if next == nil {
		e.phase.Store(int32(PhaseIdle))
		return nil, nil
	}

	prev := e.current.Load()
	e.current.Store(next)
	published = true
	e.phase.Store(int32(PhaseIdle))
	return e.publish(ctx, prev, next, time.Since(start), len(tx.dirty)), nil
}

func (e *Engine) rollback(ctx context.Context, tx *Tx, start time.Time, cause error) {
	e.phase.Store(int32(PhaseRollingBack))
	tx.close()
	e.logger.Debug("update rolled back", "tag", tx.tag, "error", cause)

	ev := &domain.RollbackEvent{Timestamp: time.Now(), Tag: tx.tag, Duration: time.Since(start), Err: cause}
	for _, h := range e.snapshotHooks() {
		if h.OnRollback != nil {
			e.runHook("rollback", func() { h.OnRollback(ctx, ev) })
		}
	}
	e.phase.Store(int32(PhaseIdle))
}

// Install replaces the committed snapshot with snap, renumbered to follow the
// current version. It is how decoded documents and history entries become
// current. Calling it from inside an update fails.
func (e *Engine) Install(ctx context.Context, snap *domain.Snapshot, tag string) error {
	if tx, ok := txFromContext(ctx); ok && tx.engine == e && !tx.closed {
		return errors.New("cannot install a snapshot from inside an update")
	}
	if snap == nil {
		return errors.New("cannot install a nil snapshot")
	}

	done, err := e.install(ctx, snap, tag)
	if err != nil {
		return err
	}
	e.drain()
	e.await(ctx, done)
	return nil
}

func (e *Engine) install(ctx context.Context, snap *domain.Snapshot, tag string) (<-chan struct{}, error) {
	start := time.Now()
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	prev := e.current.Load()
	next, err := domain.NewSnapshot(maps.Clone(snap.Nodes()), snap.Selection(), prev.Version()+1, tag)
	if err == nil {
		err = e.checkTypes(next.Nodes())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to install snapshot: %w", err)
	}
	e.current.Store(next)
	return e.publish(ctx, prev, next, time.Since(start), next.Len()), nil
}

func (e *Engine) checkTypes(nodes map[domain.NodeKey]domain.Node) error {
	if e.resolver == nil {
		return nil
	}
	for _, n := range nodes {
		if !e.resolver.Has(n.Type()) {
			return &domain.UnknownTypeError{Tag: n.Type()}
		}
	}
	return nil
}

// publish runs hooks and queues listener delivery. The returned channel is
// closed once every listener has seen next. Callers hold writeMu.
func (e *Engine) publish(ctx context.Context, prev, next *domain.Snapshot, d time.Duration, dirty int) <-chan struct{} {
	e.logger.Debug("update committed", "version", next.Version(), "tag", next.Tag(), "dirty", dirty)

	ev := &domain.CommitEvent{
		Timestamp: time.Now(),
		Tag:       next.Tag(),
		Version:   next.Version(),
		Duration:  d,
		Nodes:     next.Len(),
		Dirty:     dirty,
	}
	for _, h := range e.snapshotHooks() {
		if h.OnCommit != nil {
			e.runHook("commit", func() { h.OnCommit(ctx, ev) })
		}
	}

	done := make(chan struct{})
	e.notifyMu.Lock()
	e.pending = append(e.pending, notification{
		ctx:  context.WithValue(context.WithoutCancel(ctx), deliveringKey{}, e),
		prev: prev,
		next: next,
		done: done,
	})
	e.notifyMu.Unlock()
	return done
}

// runHook calls fn, logging a panic instead of letting it unwind through a
// commit that is already published.
func (e *Engine) runHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("hook panicked", "hook", name, "panic", r)
		}
	}()
	fn()
}

// drain delivers queued notifications outside writeMu, so listeners may start
// updates of their own. Only one goroutine drains at a time; anything queued
// meanwhile is picked up by it, which keeps delivery in commit order.
func (e *Engine) drain() {
	e.notifyMu.Lock()
	if e.draining {
		e.notifyMu.Unlock()
		return
	}
	e.draining = true
	for len(e.pending) > 0 {
		n := e.pending[0]
		e.pending = e.pending[1:]
		e.notifyMu.Unlock()

		e.deliver(n)
		close(n.done)

		e.notifyMu.Lock()
	}
	e.draining = false
	e.notifyMu.Unlock()
}

func (e *Engine) deliver(n notification) {
	e.listenersMu.Lock()
	listeners := make([]listenerEntry, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenersMu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("listener panicked", "version", n.next.Version(), "panic", r)
				}
			}()
			l.fn(n.ctx, n.prev, n.next)
		}()
	}
}

func (e *Engine) snapshotHooks() []domain.LifecycleHooks {
	e.hooksMu.RLock()
	defer e.hooksMu.RUnlock()
	return e.hooks
}

// GetLatest reads key through the update running in ctx, or from the
// committed snapshot when there is none.
func (e *Engine) GetLatest(ctx context.Context, key domain.NodeKey) (domain.Node, error) {
	if tx, ok := txFromContext(ctx); ok && tx.engine == e && !tx.closed {
		return tx.Latest(key)
	}
	return e.Current().Get(key)
}

// GetWritable returns the working copy of key in the update running in ctx.
// Without one it fails with ReadOnlyViolationError.
func (e *Engine) GetWritable(ctx context.Context, key domain.NodeKey) (domain.Node, error) {
	if tx, ok := txFromContext(ctx); ok && tx.engine == e && !tx.closed {
		return tx.Writable(key)
	}
	return nil, &domain.ReadOnlyViolationError{Key: key, Op: "writable"}
}
