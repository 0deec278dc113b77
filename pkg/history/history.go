// Package history is an undo/redo plugin. It keeps the snapshots an editor
// published and restores them with Install; unchanged nodes are shared
// between snapshots, so each step costs only the nodes it rewrote.
package history

import (
	"context"
	"sync"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
)

// DefaultLimit is the undo depth used when none is configured.
const DefaultLimit = 100

// Plugin records commits on its host.
type Plugin struct {
	limit int

	mu     sync.Mutex
	host   ports.Host
	cancel func()
	undo   []*domain.Snapshot
	redo   []*domain.Snapshot
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLimit caps the number of undo steps. Zero or less disables recording.
func WithLimit(n int) Option {
	return func(p *Plugin) {
		p.limit = n
	}
}

// New creates a history plugin.
func New(opts ...Option) *Plugin {
	p := &Plugin{limit: DefaultLimit}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Plugin) Name() string { return "history" }

func (p *Plugin) SetUp(host ports.Host) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.host = host
	p.cancel = host.Subscribe(p.record)
	return nil
}

func (p *Plugin) TearDown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.undo, p.redo = nil, nil
	return nil
}

func (p *Plugin) record(_ context.Context, prev, next *domain.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch next.Tag() {
	case domain.TagHistory:
		return
	case domain.TagLoad:
		p.undo, p.redo = nil, nil
		return
	case domain.TagHistoryMerge:
		if len(p.undo) > 0 {
			p.redo = nil
			return
		}
	}
	if p.limit <= 0 {
		return
	}
	p.undo = append(p.undo, prev)
	if len(p.undo) > p.limit {
		p.undo = p.undo[len(p.undo)-p.limit:]
	}
	p.redo = nil
}

func (p *Plugin) CanUndo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.undo) > 0
}

func (p *Plugin) CanRedo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.redo) > 0
}

// Undo restores the snapshot before the last recorded commit. It reports
// false when there is nothing to undo.
func (p *Plugin) Undo(ctx context.Context) (bool, error) {
	return p.step(ctx, &p.undo, &p.redo)
}

// Redo reapplies the last undone commit.
func (p *Plugin) Redo(ctx context.Context) (bool, error) {
	return p.step(ctx, &p.redo, &p.undo)
}

func (p *Plugin) step(ctx context.Context, from, to *[]*domain.Snapshot) (bool, error) {
	p.mu.Lock()
	if p.host == nil || len(*from) == 0 {
		p.mu.Unlock()
		return false, nil
	}
	i := len(*from) - 1
	target := (*from)[i]
	cur := p.host.CurrentSnapshot()
	*from = (*from)[:i]
	*to = append(*to, cur)
	host := p.host
	p.mu.Unlock()

	// Install notifies listeners on this goroutine, record among them, so
	// the lock must be free here.
	if err := host.Install(ctx, target, domain.TagHistory); err != nil {
		p.mu.Lock()
		*to = (*to)[:len(*to)-1]
		*from = append(*from, target)
		p.mu.Unlock()
		return false, err
	}
	return true, nil
}

// Clear drops every recorded step.
func (p *Plugin) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.undo, p.redo = nil, nil
}
