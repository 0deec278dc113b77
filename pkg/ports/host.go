package ports

import (
	"context"
	"log/slog"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/engine"
	"github.com/aretw0/folio/pkg/registry"
)

// Host is the editor as seen by a plugin.
type Host interface {
	// RegisterNodeType binds a type tag. It only succeeds while the editor is
	// being built or a plugin is being set up; otherwise it returns
	// domain.ErrRegistrationClosed.
	RegisterNodeType(tag string, ctor registry.Constructor, codec registry.Codec) error

	// Update runs body as one transaction.
	Update(ctx context.Context, body engine.Body, opts ...engine.UpdateOption) error

	// CurrentSnapshot returns the committed snapshot.
	CurrentSnapshot() *domain.Snapshot

	// Subscribe registers a commit listener and returns its cancel function.
	Subscribe(l engine.Listener) func()

	// AddHooks registers lifecycle callbacks, including rollbacks.
	AddHooks(h domain.LifecycleHooks)

	// Install replaces the committed snapshot, e.g. to restore history.
	Install(ctx context.Context, snap *domain.Snapshot, tag string) error

	// Registry lists the bound types. New types go through RegisterNodeType.
	Registry() registry.Types
	Logger() *slog.Logger
}

// Plugin extends an editor. SetUp runs once when the plugin is attached, in
// the order plugins were given; TearDown runs when the editor closes, in
// reverse order, and must release everything SetUp acquired.
type Plugin interface {
	SetUp(host Host) error
	TearDown() error
}

// Named is implemented by plugins that want a readable name in logs.
type Named interface {
	Name() string
}
