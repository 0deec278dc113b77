package domain

import (
	"errors"
	"slices"
	"strconv"
	"strings"
)

// Point is one end of a selection.
type Point struct {
	Key    NodeKey `json:"key"`
	Offset int     `json:"offset"`
}

// Selection is an anchor/focus pair. A nil *Selection means no selection.
type Selection struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// Collapsed reports whether anchor and focus are the same point.
func (s *Selection) Collapsed() bool {
	return s != nil && s.Anchor == s.Focus
}

// Caret returns a collapsed selection at key/offset.
func Caret(key NodeKey, offset int) *Selection {
	p := Point{Key: key, Offset: offset}
	return &Selection{Anchor: p, Focus: p}
}

// Snapshot is an immutable view of the document. Unchanged nodes are shared
// between consecutive snapshots.
type Snapshot struct {
	nodes     map[NodeKey]Node
	selection *Selection
	version   uint64
	tag       string
}

// NewSnapshot validates nodes and wraps them in a snapshot. The snapshot
// takes ownership of the map; callers must not touch it or the nodes
// afterwards. The selection is normalized against the new tree.
func NewSnapshot(nodes map[NodeKey]Node, sel *Selection, version uint64, tag string) (*Snapshot, error) {
	if err := Validate(nodes); err != nil {
		return nil, err
	}
	s := &Snapshot{nodes: nodes, version: version, tag: tag}
	s.selection = s.NormalizeSelection(sel)
	return s, nil
}

// EmptySnapshot returns version 0: a root with no children.
func EmptySnapshot() *Snapshot {
	return &Snapshot{nodes: map[NodeKey]Node{RootKey: NewRoot()}}
}

// Get resolves key or returns a DanglingKeyError.
func (s *Snapshot) Get(key NodeKey) (Node, error) {
	n, ok := s.nodes[key]
	if !ok {
		return nil, &DanglingKeyError{Key: key}
	}
	return n, nil
}

// Has reports whether key resolves in this snapshot.
func (s *Snapshot) Has(key NodeKey) bool {
	_, ok := s.nodes[key]
	return ok
}

// Root returns the root element.
func (s *Snapshot) Root() Element {
	return s.nodes[RootKey].(Element)
}

// Len returns the number of nodes, root included.
func (s *Snapshot) Len() int { return len(s.nodes) }

// Version is 0 for an empty editor and grows by one per commit.
func (s *Snapshot) Version() uint64 { return s.version }

// Tag is the free-form label of the update that produced the snapshot.
func (s *Snapshot) Tag() string { return s.tag }

// Selection returns a copy of the selection, or nil.
func (s *Snapshot) Selection() *Selection {
	if s.selection == nil {
		return nil
	}
	c := *s.selection
	return &c
}

// Keys returns every key in the snapshot in document order.
func (s *Snapshot) Keys() []NodeKey {
	keys := make([]NodeKey, 0, len(s.nodes))
	_ = s.Walk(func(n Node, _ int) error {
		keys = append(keys, n.Key())
		return nil
	})
	return keys
}

// Children returns the child keys of key, or nil for leaves and unknown keys.
func (s *Snapshot) Children(key NodeKey) []NodeKey {
	if e, ok := s.nodes[key].(Element); ok {
		return e.Children()
	}
	return nil
}

// Parent returns the parent of key. Root and unknown keys have none.
func (s *Snapshot) Parent(key NodeKey) (Element, bool) {
	n, ok := s.nodes[key]
	if !ok || n.ParentKey() == "" {
		return nil, false
	}
	e, ok := s.nodes[n.ParentKey()].(Element)
	return e, ok
}

// Nodes returns the map backing the snapshot. It is read-only; the engine
// uses it as the base of a transaction overlay.
func (s *Snapshot) Nodes() map[NodeKey]Node { return s.nodes }

// ErrSkipChildren can be returned from a WalkFunc to skip an element's subtree.
var ErrSkipChildren = errors.New("skip children")

// WalkFunc is called for every node in pre-order with its depth below root.
type WalkFunc func(n Node, depth int) error

// Walk visits the tree from root in document order.
func (s *Snapshot) Walk(fn WalkFunc) error {
	return s.WalkFrom(RootKey, fn)
}

// WalkFrom visits the subtree rooted at key.
func (s *Snapshot) WalkFrom(key NodeKey, fn WalkFunc) error {
	n, err := s.Get(key)
	if err != nil {
		return err
	}
	err = s.walk(n, 0, fn)
	if errors.Is(err, ErrSkipChildren) {
		return nil
	}
	return err
}

func (s *Snapshot) walk(n Node, depth int, fn WalkFunc) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	e, ok := n.(Element)
	if !ok {
		return nil
	}
	for _, k := range e.element().children {
		err := s.walk(s.nodes[k], depth+1, fn)
		if errors.Is(err, ErrSkipChildren) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Path returns the child indices leading from root to key.
func (s *Snapshot) Path(key NodeKey) ([]int, error) {
	n, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	var path []int
	for n.Key() != RootKey {
		parent := s.nodes[n.ParentKey()].(Element)
		path = append(path, slices.Index(parent.element().children, n.Key()))
		n = parent
	}
	slices.Reverse(path)
	return path, nil
}

// NodeAt resolves a path produced by Path.
func (s *Snapshot) NodeAt(path []int) (Node, error) {
	var n Node = s.Root()
	for _, i := range path {
		e, ok := n.(Element)
		if !ok || i < 0 || i >= e.ChildCount() {
			return nil, &DanglingKeyError{Key: NodeKey(formatPath(path))}
		}
		n = s.nodes[e.element().children[i]]
	}
	return n, nil
}

func formatPath(path []int) string {
	var b strings.Builder
	b.WriteString("/")
	for i, p := range path {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

// TextContent concatenates the text below key. Block children are separated
// by a blank line and line breaks become newlines.
func (s *Snapshot) TextContent(key NodeKey) string {
	n, ok := s.nodes[key]
	if !ok {
		return ""
	}
	var b strings.Builder
	s.textContent(n, &b)
	return b.String()
}

func (s *Snapshot) textContent(n Node, b *strings.Builder) {
	switch v := n.(type) {
	case Textual:
		b.WriteString(v.Text())
	case *LineBreakNode:
		b.WriteByte('\n')
	case Element:
		children := v.element().children
		for i, k := range children {
			child := s.nodes[k]
			s.textContent(child, b)
			if i < len(children)-1 && isBlock(child) {
				b.WriteString("\n\n")
			}
		}
	}
}

// isBlock reports whether n renders as its own block: elements that hold
// other nodes, as opposed to inline leaves.
func isBlock(n Node) bool {
	_, ok := n.(Element)
	return ok
}

// NormalizeSelection drops a selection that refers to missing keys and clamps
// offsets to the size of the node they point into.
func (s *Snapshot) NormalizeSelection(sel *Selection) *Selection {
	if sel == nil {
		return nil
	}
	anchor, ok := s.clampPoint(sel.Anchor)
	if !ok {
		return nil
	}
	focus, ok := s.clampPoint(sel.Focus)
	if !ok {
		return nil
	}
	return &Selection{Anchor: anchor, Focus: focus}
}

func (s *Snapshot) clampPoint(p Point) (Point, bool) {
	n, ok := s.nodes[p.Key]
	if !ok {
		return p, false
	}
	limit := 0
	switch v := n.(type) {
	case Textual:
		limit = v.text().Len()
	case Element:
		limit = v.ChildCount()
	}
	p.Offset = min(max(p.Offset, 0), limit)
	return p, true
}
