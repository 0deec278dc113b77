// Package workspace manages a set of named documents backed by a
// ports.DocumentStore. Each document is edited through its own folio.Editor;
// access to one document is serialized in process and, when a
// DistributedLocker is configured, across replicas.
//
// The store stays the source of truth: a cached editor is reloaded whenever
// the stored document no longer matches what this Manager last saved or
// loaded, and an editor whose changes could not be saved is dropped.
package workspace

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
)

// lockEntry is a per-document mutex shared by every caller waiting on it.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager opens, edits and persists documents by ID.
type Manager struct {
	store ports.DocumentStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	edMu    sync.Mutex
	editors map[string]*folio.Editor
	synced  map[string][sha256.Size]byte

	locker     ports.DistributedLocker
	lockTTL    time.Duration
	editorOpts func(id string) []folio.Option
	logger     *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(w *Manager) {
		w.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(w *Manager) {
		w.lockTTL = ttl
	}
}

// WithEditorOptions are applied to every editor the workspace creates.
// Plugins keep per-editor state, so pass them through WithEditorFactory.
func WithEditorOptions(opts ...folio.Option) Option {
	return WithEditorFactory(func(string) []folio.Option { return opts })
}

// WithEditorFactory builds the options of the editor for document id.
func WithEditorFactory(fn func(id string) []folio.Option) Option {
	return func(w *Manager) {
		w.editorOpts = fn
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Manager) {
		w.logger = logger
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.DocumentStore, opts ...Option) *Manager {
	w := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		editors: make(map[string]*folio.Editor),
		synced:  make(map[string][sha256.Size]byte),
		lockTTL: ports.DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Manager) acquire(id string) *lockEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.locks[id]
	if !ok {
		entry = &lockEntry{}
		w.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (w *Manager) release(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(w.locks, id)
	}
}

// WithLock runs fn while holding the lock for document id.
func (w *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := w.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		w.release(id)
	}()

	if w.locker != nil {
		unlock, err := w.locker.Lock(ctx, id, w.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				w.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"document_id", id,
					"err", err,
				)
			}
		}()
	}
	return fn(ctx)
}

// Open returns the editor for id, loading it from the store on first use.
// A document missing from the store opens empty.
func (w *Manager) Open(ctx context.Context, id string) (*folio.Editor, error) {
	var ed *folio.Editor
	err := w.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		ed, err = w.open(ctx, id)
		return err
	})
	return ed, err
}

func (w *Manager) open(ctx context.Context, id string) (*folio.Editor, error) {
	w.edMu.Lock()
	ed, ok := w.editors[id]
	w.edMu.Unlock()
	if ok {
		return ed, w.refresh(ctx, id, ed)
	}

	opts := []folio.Option{folio.WithName(id), folio.WithLogger(w.logger)}
	if w.editorOpts != nil {
		opts = append(opts, w.editorOpts(id)...)
	}
	ed, err := folio.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create editor for %s: %w", id, err)
	}
	doc, err := w.store.Load(ctx, id)
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
	case err != nil:
		_ = ed.Close()
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	default:
		if err := ed.Load(ctx, doc); err != nil {
			_ = ed.Close()
			return nil, fmt.Errorf("failed to load document %s: %w", id, err)
		}
		if err := w.markSynced(id, doc); err != nil {
			_ = ed.Close()
			return nil, err
		}
	}

	w.edMu.Lock()
	w.editors[id] = ed
	w.edMu.Unlock()
	w.logger.Debug("document opened", "document_id", id, "version", ed.CurrentSnapshot().Version())
	return ed, nil
}

// refresh reloads a cached editor when another writer changed the stored
// document since this Manager last touched it.
func (w *Manager) refresh(ctx context.Context, id string, ed *folio.Editor) error {
	doc, err := w.store.Load(ctx, id)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", id, err)
	}
	sum, err := fingerprint(doc)
	if err != nil {
		return err
	}
	w.edMu.Lock()
	last, ok := w.synced[id]
	w.edMu.Unlock()
	if ok && last == sum {
		return nil
	}

	if err := ed.Load(ctx, doc); err != nil {
		return fmt.Errorf("failed to reload document %s: %w", id, err)
	}
	w.edMu.Lock()
	w.synced[id] = sum
	w.edMu.Unlock()
	w.logger.Debug("document reloaded", "document_id", id, "version", doc.Version)
	return nil
}

func (w *Manager) markSynced(id string, doc *codec.Document) error {
	sum, err := fingerprint(doc)
	if err != nil {
		return err
	}
	w.edMu.Lock()
	w.synced[id] = sum
	w.edMu.Unlock()
	return nil
}

func fingerprint(doc *codec.Document) ([sha256.Size]byte, error) {
	data, err := codec.Marshal(doc, codec.FormatJSON)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("failed to fingerprint document: %w", err)
	}
	return sha256.Sum256(data), nil
}

// evict drops ed from the cache so the next access reloads from the store.
func (w *Manager) evict(id string, ed *folio.Editor) {
	w.edMu.Lock()
	if w.editors[id] == ed {
		delete(w.editors, id)
		delete(w.synced, id)
	}
	w.edMu.Unlock()
	if err := ed.Close(); err != nil {
		w.logger.Warn("failed to close editor", "document_id", id, "err", err)
	}
}

// Do runs fn on the editor of document id under its lock and persists the
// document when fn succeeds. When fn fails after changing the document, or
// the save fails, the in-memory editor is discarded so unsaved changes never
// reach the store later.
func (w *Manager) Do(ctx context.Context, id string, fn func(ctx context.Context, ed *folio.Editor) error) error {
	return w.WithLock(ctx, id, func(ctx context.Context) error {
		ed, err := w.open(ctx, id)
		if err != nil {
			return err
		}
		before := ed.CurrentSnapshot()
		if err := fn(ctx, ed); err != nil {
			if ed.CurrentSnapshot() != before {
				w.evict(id, ed)
			}
			return err
		}
		if err := w.save(ctx, id, ed); err != nil {
			w.evict(id, ed)
			return err
		}
		return nil
	})
}

// Edit applies body to document id in one update and persists the result.
// Nothing is saved when body fails.
func (w *Manager) Edit(ctx context.Context, id string, body folio.Body, opts ...folio.UpdateOption) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := w.Do(ctx, id, func(ctx context.Context, ed *folio.Editor) error {
		if err := ed.Update(ctx, body, opts...); err != nil {
			return err
		}
		snap = ed.CurrentSnapshot()
		return nil
	})
	return snap, err
}

// Save persists the current state of an open document.
func (w *Manager) Save(ctx context.Context, id string) error {
	return w.WithLock(ctx, id, func(ctx context.Context) error {
		ed, err := w.open(ctx, id)
		if err != nil {
			return err
		}
		return w.save(ctx, id, ed)
	})
}

func (w *Manager) save(ctx context.Context, id string, ed *folio.Editor) error {
	doc, err := ed.Document()
	if err != nil {
		return err
	}
	if err := w.store.Save(ctx, id, doc); err != nil {
		return fmt.Errorf("failed to save document %s: %w", id, err)
	}
	return w.markSynced(id, doc)
}

// Put replaces document id with doc and persists it.
func (w *Manager) Put(ctx context.Context, id string, doc *codec.Document) error {
	return w.Do(ctx, id, func(ctx context.Context, ed *folio.Editor) error {
		return ed.Load(ctx, doc)
	})
}

// Delete closes the editor of id and removes the document from the store.
func (w *Manager) Delete(ctx context.Context, id string) error {
	return w.WithLock(ctx, id, func(ctx context.Context) error {
		w.edMu.Lock()
		ed, ok := w.editors[id]
		delete(w.editors, id)
		delete(w.synced, id)
		w.edMu.Unlock()
		if ok {
			if err := ed.Close(); err != nil {
				w.logger.Warn("failed to close editor", "document_id", id, "err", err)
			}
		}
		return w.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (w *Manager) List(ctx context.Context) ([]string, error) {
	return w.store.List(ctx)
}

// Store returns the underlying document store.
func (w *Manager) Store() ports.DocumentStore {
	return w.store
}

// Close closes every open editor. Unsaved changes are dropped.
func (w *Manager) Close() error {
	w.edMu.Lock()
	editors := w.editors
	w.editors = make(map[string]*folio.Editor)
	w.synced = make(map[string][sha256.Size]byte)
	w.edMu.Unlock()

	var errs []error
	for id, ed := range editors {
		if err := ed.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
