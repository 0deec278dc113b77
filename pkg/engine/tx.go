package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/folio/pkg/domain"
)

// Tx is the working state of one update. Reads fall through to the snapshot
// the update started from; writes go to clones owned by the Tx, so the
// committed snapshot is never touched.
//
// A Tx is only valid inside the body it was handed to.
type Tx struct {
	engine *Engine
	base   *domain.Snapshot

	dirty   map[domain.NodeKey]domain.Node
	created map[domain.NodeKey]bool
	removed map[domain.NodeKey]bool

	selection    *domain.Selection
	selectionSet bool

	tag    string
	poison error
	closed bool
}

func newTx(e *Engine, base *domain.Snapshot, tag string) *Tx {
	return &Tx{
		engine:  e,
		base:    base,
		dirty:   make(map[domain.NodeKey]domain.Node),
		created: make(map[domain.NodeKey]bool),
		removed: make(map[domain.NodeKey]bool),
		tag:     tag,
	}
}

func (tx *Tx) close() { tx.closed = true }

func (tx *Tx) runNested(ctx context.Context, body Body, tag string) error {
	if tag != "" && tx.tag == "" {
		tx.tag = tag
	}
	if err := body(ctx, tx); err != nil {
		if tx.poison == nil {
			tx.poison = fmt.Errorf("nested update failed: %w", err)
		}
		return err
	}
	return nil
}

func (tx *Tx) readOnly(key domain.NodeKey, op string) error {
	return &domain.ReadOnlyViolationError{Key: key, Op: op}
}

// Base returns the snapshot the update started from.
func (tx *Tx) Base() *domain.Snapshot { return tx.base }

// Tag returns the label the commit will carry.
func (tx *Tx) Tag() string { return tx.tag }

// SetTag relabels the commit.
func (tx *Tx) SetTag(tag string) { tx.tag = tag }

// Latest returns the working value of key if this update wrote it, else the
// committed value.
func (tx *Tx) Latest(key domain.NodeKey) (domain.Node, error) {
	if tx.removed[key] {
		return nil, &domain.DanglingKeyError{Key: key}
	}
	if n, ok := tx.dirty[key]; ok {
		return n, nil
	}
	return tx.base.Get(key)
}

// Writable returns this update's private copy of key, cloning the committed
// value on first access. Repeated calls return the same copy.
func (tx *Tx) Writable(key domain.NodeKey) (domain.Node, error) {
	if tx.closed {
		return nil, tx.readOnly(key, "writable")
	}
	if tx.removed[key] {
		return nil, &domain.DanglingKeyError{Key: key}
	}
	if n, ok := tx.dirty[key]; ok {
		return n, nil
	}
	n, err := tx.base.Get(key)
	if err != nil {
		return nil, err
	}
	c := n.Clone()
	if c.Key() != key || c.Type() != n.Type() {
		return nil, &domain.StructuralInvariantError{Key: key, Reason: fmt.Sprintf("clone of %s changed identity or type", n.Type())}
	}
	tx.dirty[key] = c
	return c, nil
}

// Root returns the working root.
func (tx *Tx) Root() (domain.Element, error) {
	n, err := tx.Latest(domain.RootKey)
	if err != nil {
		return nil, err
	}
	return domain.AsElement(n)
}

// Children returns the working child keys of key; leaves have none.
func (tx *Tx) Children(key domain.NodeKey) ([]domain.NodeKey, error) {
	n, err := tx.Latest(key)
	if err != nil {
		return nil, err
	}
	if e, ok := n.(domain.Element); ok {
		return e.Children(), nil
	}
	return nil, nil
}

// Create gives a freshly constructed node its identity. The node is not part
// of the document until it is attached below root; created nodes left
// unattached are dropped at commit.
func (tx *Tx) Create(n domain.Node) (domain.NodeKey, error) {
	if tx.closed {
		return "", tx.readOnly("", "create")
	}
	if n == nil {
		return "", fmt.Errorf("cannot create a nil node")
	}
	if n.Key() != "" {
		return "", &domain.StructuralInvariantError{Key: n.Key(), Reason: "node already has an identity"}
	}
	if _, ok := n.(*domain.RootNode); ok {
		return "", &domain.StructuralInvariantError{Reason: "a document has exactly one root"}
	}
	key := domain.NewKey()
	domain.BindKey(n, key)
	domain.SetParent(n, "")
	if e, ok := n.(domain.Element); ok && e.ChildCount() > 0 {
		domain.SetChildren(e, nil)
	}
	tx.dirty[key] = n
	tx.created[key] = true
	return key, nil
}

// SetText replaces the content of a text node.
func (tx *Tx) SetText(key domain.NodeKey, content string) error {
	n, err := tx.Writable(key)
	if err != nil {
		return err
	}
	t, ok := n.(domain.Textual)
	if !ok {
		return fmt.Errorf("node %s is %s, not text", key, n.Type())
	}
	domain.SetText(t, content)
	return nil
}

// isAncestor reports whether anc is key or lies on the path from key to root.
func (tx *Tx) isAncestor(anc, key domain.NodeKey) bool {
	for key != "" {
		if key == anc {
			return true
		}
		n, err := tx.Latest(key)
		if err != nil {
			return false
		}
		key = n.ParentKey()
	}
	return false
}

func (tx *Tx) writableElement(key domain.NodeKey) (domain.Element, error) {
	n, err := tx.Writable(key)
	if err != nil {
		return nil, err
	}
	return domain.AsElement(n)
}

func (tx *Tx) unlink(child domain.Node) error {
	parent, err := tx.writableElement(child.ParentKey())
	if err != nil {
		return err
	}
	domain.SetChildren(parent, slices.DeleteFunc(parent.Children(), func(k domain.NodeKey) bool {
		return k == child.Key()
	}))
	domain.SetParent(child, "")
	return nil
}

// InsertAt attaches childKey as the index-th child of parentKey, moving it
// from its current parent if it has one.
func (tx *Tx) InsertAt(parentKey domain.NodeKey, index int, childKey domain.NodeKey) error {
	if tx.closed {
		return tx.readOnly(childKey, "insert")
	}
	if childKey == domain.RootKey {
		return &domain.StructuralInvariantError{Key: childKey, Reason: "root cannot be moved"}
	}
	if tx.isAncestor(childKey, parentKey) {
		return &domain.StructuralInvariantError{Key: childKey, Reason: fmt.Sprintf("inserting under %s would create a cycle", parentKey)}
	}
	parentNode, err := tx.Latest(parentKey)
	if err != nil {
		return err
	}
	parentEl, err := domain.AsElement(parentNode)
	if err != nil {
		return err
	}
	childNode, err := tx.Latest(childKey)
	if err != nil {
		return err
	}
	limit := parentEl.ChildCount()
	if childNode.ParentKey() == parentKey {
		limit--
	}
	if index < 0 || index > limit {
		return &domain.StructuralInvariantError{Key: parentKey, Reason: fmt.Sprintf("child index %d out of range [0,%d]", index, limit)}
	}

	child, err := tx.Writable(childKey)
	if err != nil {
		return err
	}
	if child.ParentKey() != "" {
		if err := tx.unlink(child); err != nil {
			return err
		}
	}
	parent, err := tx.writableElement(parentKey)
	if err != nil {
		return err
	}
	domain.SetChildren(parent, slices.Insert(parent.Children(), index, childKey))
	domain.SetParent(child, parentKey)
	return nil
}

// Append attaches children at the end of parentKey, in order.
func (tx *Tx) Append(parentKey domain.NodeKey, children ...domain.NodeKey) error {
	for _, c := range children {
		parent, err := tx.Latest(parentKey)
		if err != nil {
			return err
		}
		el, err := domain.AsElement(parent)
		if err != nil {
			return err
		}
		index := el.ChildCount()
		if child, err := tx.Latest(c); err == nil && child.ParentKey() == parentKey {
			index--
		}
		if err := tx.InsertAt(parentKey, index, c); err != nil {
			return err
		}
	}
	return nil
}

// InsertBefore attaches childKey immediately before siblingKey.
func (tx *Tx) InsertBefore(siblingKey, childKey domain.NodeKey) error {
	return tx.insertBeside(siblingKey, childKey, 0)
}

// InsertAfter attaches childKey immediately after siblingKey.
func (tx *Tx) InsertAfter(siblingKey, childKey domain.NodeKey) error {
	return tx.insertBeside(siblingKey, childKey, 1)
}

func (tx *Tx) insertBeside(siblingKey, childKey domain.NodeKey, offset int) error {
	if siblingKey == childKey {
		return &domain.StructuralInvariantError{Key: childKey, Reason: "cannot insert a node next to itself"}
	}
	sib, err := tx.Latest(siblingKey)
	if err != nil {
		return err
	}
	parentKey := sib.ParentKey()
	if parentKey == "" {
		return &domain.StructuralInvariantError{Key: siblingKey, Reason: "sibling is not attached"}
	}
	kids, err := tx.Children(parentKey)
	if err != nil {
		return err
	}
	index := slices.Index(kids, siblingKey) + offset
	if ci := slices.Index(kids, childKey); ci >= 0 && ci < index {
		index--
	}
	return tx.InsertAt(parentKey, index, childKey)
}

// Detach unlinks key from its parent but keeps it in the working set so it
// can be attached elsewhere. A committed node that is still detached when the
// body returns makes the commit fail.
func (tx *Tx) Detach(key domain.NodeKey) error {
	if tx.closed {
		return tx.readOnly(key, "detach")
	}
	if key == domain.RootKey {
		return &domain.StructuralInvariantError{Key: key, Reason: "root cannot be detached"}
	}
	n, err := tx.Writable(key)
	if err != nil {
		return err
	}
	if n.ParentKey() == "" {
		return nil
	}
	return tx.unlink(n)
}

// Remove destroys key and its whole subtree. Their keys stop resolving.
func (tx *Tx) Remove(key domain.NodeKey) error {
	if tx.closed {
		return tx.readOnly(key, "remove")
	}
	if key == domain.RootKey {
		return &domain.StructuralInvariantError{Key: key, Reason: "root cannot be removed"}
	}
	n, err := tx.Latest(key)
	if err != nil {
		return err
	}
	if n.ParentKey() != "" {
		w, err := tx.Writable(key)
		if err != nil {
			return err
		}
		if err := tx.unlink(w); err != nil {
			return err
		}
	}

	var doomed []domain.NodeKey
	stack := []domain.NodeKey{key}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		doomed = append(doomed, k)
		kids, err := tx.Children(k)
		if err != nil {
			return err
		}
		stack = append(stack, kids...)
	}
	for _, k := range doomed {
		delete(tx.dirty, k)
		if tx.created[k] {
			delete(tx.created, k)
			continue
		}
		tx.removed[k] = true
	}
	return nil
}

// Replace puts newKey where oldKey is and destroys oldKey. With keepChildren
// the children of oldKey move to newKey first.
func (tx *Tx) Replace(oldKey, newKey domain.NodeKey, keepChildren bool) error {
	if oldKey == domain.RootKey {
		return &domain.StructuralInvariantError{Key: oldKey, Reason: "root cannot be replaced"}
	}
	if keepChildren {
		kids, err := tx.Children(oldKey)
		if err != nil {
			return err
		}
		if err := tx.Append(newKey, kids...); err != nil {
			return err
		}
	}
	if err := tx.InsertBefore(oldKey, newKey); err != nil {
		return err
	}
	return tx.Remove(oldKey)
}

// Duplicate deep-copies the subtree at key under fresh keys. The copy is
// returned detached.
func (tx *Tx) Duplicate(key domain.NodeKey) (domain.NodeKey, error) {
	if tx.closed {
		return "", tx.readOnly(key, "duplicate")
	}
	if key == domain.RootKey {
		return "", &domain.StructuralInvariantError{Key: key, Reason: "the root cannot be duplicated"}
	}
	return tx.duplicate(key, "")
}

func (tx *Tx) duplicate(key, parent domain.NodeKey) (domain.NodeKey, error) {
	n, err := tx.Latest(key)
	if err != nil {
		return "", err
	}
	c := n.Clone()
	k := domain.NewKey()
	domain.BindKey(c, k)
	domain.SetParent(c, parent)
	tx.dirty[k] = c
	tx.created[k] = true

	if e, ok := c.(domain.Element); ok {
		kids := e.Children()
		copies := make([]domain.NodeKey, 0, len(kids))
		for _, kid := range kids {
			ck, err := tx.duplicate(kid, k)
			if err != nil {
				return "", err
			}
			copies = append(copies, ck)
		}
		domain.SetChildren(e, copies)
	}
	return k, nil
}

// Selection returns the working selection.
func (tx *Tx) Selection() *domain.Selection {
	if tx.selectionSet {
		if tx.selection == nil {
			return nil
		}
		c := *tx.selection
		return &c
	}
	return tx.base.Selection()
}

// SetSelection replaces the selection; nil clears it. It is normalized
// against the committed tree.
func (tx *Tx) SetSelection(sel *domain.Selection) error {
	if tx.closed {
		return tx.readOnly("", "select")
	}
	if sel != nil {
		c := *sel
		sel = &c
	}
	tx.selection = sel
	tx.selectionSet = true
	return nil
}

// Dirty returns how many nodes this update has written so far.
func (tx *Tx) Dirty() int { return len(tx.dirty) }

// build folds the overlay into a new snapshot. It returns nil when the update
// changed nothing.
func (tx *Tx) build() (*domain.Snapshot, error) {
	if len(tx.dirty) == 0 && len(tx.removed) == 0 && !tx.selectionSet {
		return nil, nil
	}

	nodes := maps.Clone(tx.base.Nodes())
	for k := range tx.removed {
		delete(nodes, k)
	}
	maps.Copy(nodes, tx.dirty)

	for k, n := range tx.dirty {
		if k == domain.RootKey || n.ParentKey() != "" {
			continue
		}
		if !tx.created[k] {
			return nil, &domain.StructuralInvariantError{Key: k, Reason: "node was detached and never re-attached"}
		}
		if err := tx.dropSubtree(nodes, k); err != nil {
			return nil, err
		}
	}

	if tx.engine.resolver != nil {
		for k, n := range tx.dirty {
			if _, live := nodes[k]; live && !tx.engine.resolver.Has(n.Type()) {
				return nil, &domain.UnknownTypeError{Tag: n.Type()}
			}
		}
	}

	return domain.NewSnapshot(nodes, tx.Selection(), tx.base.Version()+1, tx.tag)
}

// dropSubtree discards a created node that never got attached, together with
// its descendants. Committed nodes parked under it would be lost, so they fail
// the commit instead.
func (tx *Tx) dropSubtree(nodes map[domain.NodeKey]domain.Node, key domain.NodeKey) error {
	n, ok := nodes[key]
	if !ok {
		return nil
	}
	if !tx.created[key] {
		return &domain.StructuralInvariantError{Key: key, Reason: "node is inside a subtree that was never attached"}
	}
	delete(nodes, key)
	if e, ok := n.(domain.Element); ok {
		for _, kid := range e.Children() {
			if err := tx.dropSubtree(nodes, kid); err != nil {
				return err
			}
		}
	}
	return nil
}

// WritableAs is Writable with a type assertion.
func WritableAs[T domain.Node](tx *Tx, key domain.NodeKey) (T, error) {
	var zero T
	n, err := tx.Writable(key)
	if err != nil {
		return zero, err
	}
	t, ok := n.(T)
	if !ok {
		return zero, fmt.Errorf("node %s is %s, not %T", key, n.Type(), zero)
	}
	return t, nil
}

// LatestAs is Latest with a type assertion.
func LatestAs[T domain.Node](tx *Tx, key domain.NodeKey) (T, error) {
	var zero T
	n, err := tx.Latest(key)
	if err != nil {
		return zero, err
	}
	t, ok := n.(T)
	if !ok {
		return zero, fmt.Errorf("node %s is %s, not %T", key, n.Type(), zero)
	}
	return t, nil
}
