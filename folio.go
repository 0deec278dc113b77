package folio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/engine"
	"github.com/aretw0/folio/pkg/plugin"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/registry"
)

// Aliases so hosts can work from the root package alone.
type (
	Tx           = engine.Tx
	Body         = engine.Body
	UpdateOption = engine.UpdateOption
	Listener     = engine.Listener
	Snapshot     = domain.Snapshot
	Node         = domain.Node
	NodeKey      = domain.NodeKey
	Plugin       = ports.Plugin
	Host         = ports.Host
	Document     = codec.Document
	Format       = codec.Format
)

// Editor is the host-facing entry point. It owns one document, its type
// registry and the plugins attached to it.
type Editor struct {
	engine   *engine.Engine
	registry *registry.Registry
	plugins  *plugin.Manager
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	policy   plugin.Policy
	initial  []ports.Plugin
	types    []nodeType
	name     string

	// regOpen counts the open registration windows: construction and each
	// running Use call.
	regOpen atomic.Int32
	useMu   sync.Mutex
	closed  atomic.Bool
}

type nodeType struct {
	tag   string
	ctor  registry.Constructor
	codec registry.Codec
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithLogger sets a custom structured logger for the editor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Editor) {
		e.hooks = hooks
	}
}

// WithPlugins attaches plugins during New, in the given order.
func WithPlugins(plugins ...ports.Plugin) Option {
	return func(e *Editor) {
		e.initial = append(e.initial, plugins...)
	}
}

// WithPluginPolicy sets what a failing plugin SetUp does. Default: plugin.BestEffort.
func WithPluginPolicy(p plugin.Policy) Option {
	return func(e *Editor) {
		e.policy = p
	}
}

// WithNodeType registers a node type before any plugin runs.
func WithNodeType(tag string, ctor registry.Constructor, c registry.Codec) Option {
	return func(e *Editor) {
		e.types = append(e.types, nodeType{tag: tag, ctor: ctor, codec: c})
	}
}

// WithName labels the editor in logs.
func WithName(name string) Option {
	return func(e *Editor) {
		e.name = name
	}
}

// New builds an editor holding an empty document. Built-in node types are
// registered first, then WithNodeType types, then plugins are set up. After
// New returns the registry only accepts types from plugins attached with Use.
func New(opts ...Option) (*Editor, error) {
	e := &Editor{registry: registry.NewRegistry()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if e.name != "" {
		e.logger = e.logger.With("document", e.name)
	}

	if err := registry.RegisterBuiltins(e.registry); err != nil {
		return nil, fmt.Errorf("failed to register built-in types: %w", err)
	}

	e.engine = engine.New(
		engine.WithLogger(e.logger),
		engine.WithLifecycleHooks(e.hooks),
		engine.WithTypeResolver(e.registry),
	)
	e.plugins = plugin.NewManager(e,
		plugin.WithLogger(e.logger),
		plugin.WithPolicy(e.policy),
		plugin.WithLifecycleHooks(e.hooks),
	)

	e.regOpen.Add(1)
	defer e.regOpen.Add(-1)

	for _, t := range e.types {
		if err := e.registry.Register(t.tag, t.ctor, t.codec); err != nil {
			return nil, fmt.Errorf("failed to register node type %q: %w", t.tag, err)
		}
	}
	if err := e.plugins.Attach(context.Background(), e.initial...); err != nil {
		return nil, err
	}
	return e, nil
}

// Use attaches more plugins to a running editor. Their SetUp may register
// node types.
func (e *Editor) Use(ctx context.Context, plugins ...ports.Plugin) error {
	if e.closed.Load() {
		return errors.New("editor is closed")
	}
	e.useMu.Lock()
	defer e.useMu.Unlock()
	e.regOpen.Add(1)
	defer e.regOpen.Add(-1)
	return e.plugins.Attach(ctx, plugins...)
}

// Close tears down every plugin in reverse order. The document stays readable.
func (e *Editor) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.plugins.Detach(context.Background())
}

// RegisterNodeType binds tag to a constructor and codec. It returns
// domain.ErrRegistrationClosed outside New and plugin SetUp.
func (e *Editor) RegisterNodeType(tag string, ctor registry.Constructor, c registry.Codec) error {
	if e.regOpen.Load() == 0 {
		return fmt.Errorf("failed to register node type %q: %w", tag, domain.ErrRegistrationClosed)
	}
	return e.registry.Register(tag, ctor, c)
}

// Update runs body as one transaction. Calls made with the context handed to
// body join the running transaction.
func (e *Editor) Update(ctx context.Context, body engine.Body, opts ...engine.UpdateOption) error {
	return e.engine.Update(ctx, body, opts...)
}

// CurrentSnapshot returns the committed snapshot.
func (e *Editor) CurrentSnapshot() *domain.Snapshot {
	return e.engine.Current()
}

// Subscribe registers l for every commit and returns its cancel function.
func (e *Editor) Subscribe(l engine.Listener) func() {
	return e.engine.Subscribe(l)
}

// AddHooks registers more lifecycle callbacks.
func (e *Editor) AddHooks(h domain.LifecycleHooks) {
	e.engine.AddHooks(h)
}

// Install replaces the committed snapshot.
func (e *Editor) Install(ctx context.Context, snap *domain.Snapshot, tag string) error {
	return e.engine.Install(ctx, snap, tag)
}

// GetLatest reads key through the transaction carried by ctx, if any.
func (e *Editor) GetLatest(ctx context.Context, key domain.NodeKey) (domain.Node, error) {
	return e.engine.GetLatest(ctx, key)
}

// GetWritable returns a working copy of key. It fails with
// domain.ReadOnlyViolationError unless ctx carries a running transaction.
func (e *Editor) GetWritable(ctx context.Context, key domain.NodeKey) (domain.Node, error) {
	return e.engine.GetWritable(ctx, key)
}

// Registry returns a read-only view of the editor's type registry.
func (e *Editor) Registry() registry.Types { return registry.ReadOnly(e.registry) }

// Name returns the name given with WithName.
func (e *Editor) Name() string { return e.name }

// Logger returns the editor's logger.
func (e *Editor) Logger() *slog.Logger { return e.logger }

// Plugins reports the lifecycle state of every attached plugin.
func (e *Editor) Plugins() []plugin.Status { return e.plugins.Statuses() }

// Document encodes the committed snapshot.
func (e *Editor) Document() (*codec.Document, error) {
	return codec.EncodeSnapshot(e.CurrentSnapshot(), e.registry)
}

// Encode renders the committed snapshot in format f.
func (e *Editor) Encode(f codec.Format) ([]byte, error) {
	return codec.Encode(e.CurrentSnapshot(), e.registry, f)
}

// Decode parses data into a snapshot using the editor's registry without
// installing it.
func (e *Editor) Decode(data []byte, f codec.Format) (*domain.Snapshot, error) {
	return codec.Decode(data, e.registry, f)
}

// Load decodes doc and installs it. On any error the current document is kept.
func (e *Editor) Load(ctx context.Context, doc *codec.Document) error {
	snap, err := codec.DecodeSnapshot(doc, e.registry)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return e.Install(ctx, snap, domain.TagLoad)
}

// LoadBytes is Load for serialized data.
func (e *Editor) LoadBytes(ctx context.Context, data []byte, f codec.Format) error {
	snap, err := e.Decode(data, f)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return e.Install(ctx, snap, domain.TagLoad)
}

// LoadFile reads path, picking the format from its extension.
func (e *Editor) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	return e.LoadBytes(ctx, data, codec.FormatForPath(path))
}

var _ ports.Host = (*Editor)(nil)

// WithTag labels the snapshot produced by an Update.
func WithTag(tag string) engine.UpdateOption { return engine.WithTag(tag) }
