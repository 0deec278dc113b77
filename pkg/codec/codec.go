// Package codec converts snapshots to and from a structural document: a
// nested tree of records, each carrying a type tag, its variant fields and,
// for elements, its ordered children.
package codec

import (
	"fmt"
	"strconv"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// Document is the wire form of a snapshot. Node keys are process-local, so
// the selection is stored as child-index paths from the root.
type Document struct {
	Root      domain.Record    `json:"root" yaml:"root"`
	Selection *SelectionRecord `json:"selection,omitempty" yaml:"selection,omitempty"`
	Version   uint64           `json:"version,omitempty" yaml:"version,omitempty"`
}

// SelectionRecord is a selection addressed by paths.
type SelectionRecord struct {
	Anchor PointRecord `json:"anchor" yaml:"anchor"`
	Focus  PointRecord `json:"focus" yaml:"focus"`
}

// PointRecord is one end of a SelectionRecord.
type PointRecord struct {
	Path   []int `json:"path" yaml:"path"`
	Offset int   `json:"offset" yaml:"offset"`
}

// EncodeSnapshot walks snap from the root and emits one record per reachable node.
func EncodeSnapshot(snap *domain.Snapshot, reg *registry.Registry) (*Document, error) {
	root, err := encodeNode(snap, reg, domain.RootKey)
	if err != nil {
		return nil, err
	}
	doc := &Document{Root: root, Version: snap.Version()}

	if sel := snap.Selection(); sel != nil {
		anchor, err := snap.Path(sel.Anchor.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to encode selection: %w", err)
		}
		focus, err := snap.Path(sel.Focus.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to encode selection: %w", err)
		}
		doc.Selection = &SelectionRecord{
			Anchor: PointRecord{Path: anchor, Offset: sel.Anchor.Offset},
			Focus:  PointRecord{Path: focus, Offset: sel.Focus.Offset},
		}
	}
	return doc, nil
}

func encodeNode(snap *domain.Snapshot, reg *registry.Registry, key domain.NodeKey) (domain.Record, error) {
	n, err := snap.Get(key)
	if err != nil {
		return nil, err
	}
	b, err := reg.Resolve(n.Type())
	if err != nil {
		return nil, err
	}
	rec := domain.Record{}
	if err := b.Codec.Encode(n, rec); err != nil {
		return nil, fmt.Errorf("failed to encode %s node %s: %w", n.Type(), key, err)
	}
	rec[domain.FieldType] = n.Type()
	delete(rec, domain.FieldChildren)

	if e, ok := n.(domain.Element); ok {
		children := make([]any, 0, e.ChildCount())
		for _, k := range e.Children() {
			child, err := encodeNode(snap, reg, k)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		rec[domain.FieldChildren] = children
	}
	return rec, nil
}

// DecodeSnapshot rebuilds a snapshot from doc. Every node gets a fresh key.
// It returns MalformedDocumentError for unknown tags or bad fields and
// StructuralInvariantError when the nesting breaks the single-root rule.
// On error no snapshot is returned.
func DecodeSnapshot(doc *Document, reg *registry.Registry) (*domain.Snapshot, error) {
	if doc == nil || doc.Root == nil {
		return nil, &domain.MalformedDocumentError{Reason: "missing root record"}
	}
	if tag := doc.Root.Type(); tag != domain.TypeRoot {
		if tag == "" {
			return nil, &domain.MalformedDocumentError{Path: "root", Reason: "missing type"}
		}
		return nil, &domain.StructuralInvariantError{Reason: fmt.Sprintf("document root has type %q", tag)}
	}

	d := &decoder{reg: reg, nodes: make(map[domain.NodeKey]domain.Node)}
	if _, err := d.decode(doc.Root, "root", ""); err != nil {
		return nil, err
	}

	var sel *domain.Selection
	if doc.Selection != nil {
		anchor, okA := d.point(doc.Selection.Anchor)
		focus, okF := d.point(doc.Selection.Focus)
		if okA && okF {
			sel = &domain.Selection{Anchor: anchor, Focus: focus}
		}
	}
	return domain.NewSnapshot(d.nodes, sel, doc.Version, "decode")
}

type decoder struct {
	reg   *registry.Registry
	nodes map[domain.NodeKey]domain.Node
}

func (d *decoder) decode(rec domain.Record, path string, parent domain.NodeKey) (domain.NodeKey, error) {
	raw, ok := rec[domain.FieldType]
	if !ok {
		return "", &domain.MalformedDocumentError{Path: path, Reason: "missing type"}
	}
	tag, ok := raw.(string)
	if !ok || tag == "" {
		return "", &domain.MalformedDocumentError{Path: path, Reason: fmt.Sprintf("type must be a non-empty string, got %v", raw)}
	}
	if tag == domain.TypeRoot && parent != "" {
		return "", &domain.StructuralInvariantError{Reason: "root record nested at " + path}
	}

	b, err := d.reg.Resolve(tag)
	if err != nil {
		return "", &domain.MalformedDocumentError{Path: path, Err: err}
	}
	n := b.New()
	if n.Type() != tag {
		return "", &domain.MalformedDocumentError{Path: path, Reason: fmt.Sprintf("constructor for %q built %q", tag, n.Type())}
	}
	if err := b.Codec.Decode(rec, n); err != nil {
		return "", &domain.MalformedDocumentError{Path: path, Err: err}
	}

	key := domain.RootKey
	if parent != "" {
		key = domain.NewKey()
	}
	domain.BindKey(n, key)
	domain.SetParent(n, parent)
	d.nodes[key] = n

	rawChildren, hasChildren := rec[domain.FieldChildren]
	e, isElement := n.(domain.Element)
	if !isElement {
		if hasChildren && !emptyList(rawChildren) {
			return "", &domain.MalformedDocumentError{Path: path, Reason: tag + " nodes cannot have children"}
		}
		return key, nil
	}

	children, err := recordList(rawChildren, path)
	if err != nil {
		return "", err
	}
	keys := make([]domain.NodeKey, 0, len(children))
	for i, child := range children {
		ck, err := d.decode(child, path+".children["+strconv.Itoa(i)+"]", key)
		if err != nil {
			return "", err
		}
		keys = append(keys, ck)
	}
	domain.SetChildren(e, keys)
	return key, nil
}

func (d *decoder) point(p PointRecord) (domain.Point, bool) {
	n := d.nodes[domain.RootKey]
	for _, i := range p.Path {
		e, ok := n.(domain.Element)
		if !ok {
			return domain.Point{}, false
		}
		kids := e.Children()
		if i < 0 || i >= len(kids) {
			return domain.Point{}, false
		}
		n = d.nodes[kids[i]]
	}
	return domain.Point{Key: n.Key(), Offset: p.Offset}, true
}

func emptyList(v any) bool {
	switch l := v.(type) {
	case nil:
		return true
	case []any:
		return len(l) == 0
	case []domain.Record:
		return len(l) == 0
	}
	return false
}

// recordList accepts the shapes children take after JSON or YAML decoding
// as well as the in-memory shape produced by EncodeSnapshot.
func recordList(v any, path string) ([]domain.Record, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []domain.Record:
		return l, nil
	case []any:
		out := make([]domain.Record, 0, len(l))
		for i, item := range l {
			rec, ok := asRecord(item)
			if !ok {
				return nil, &domain.MalformedDocumentError{
					Path:   path + ".children[" + strconv.Itoa(i) + "]",
					Reason: fmt.Sprintf("expected a record, got %T", item),
				}
			}
			out = append(out, rec)
		}
		return out, nil
	}
	return nil, &domain.MalformedDocumentError{Path: path, Reason: fmt.Sprintf("children must be a list, got %T", v)}
}

func asRecord(v any) (domain.Record, bool) {
	switch m := v.(type) {
	case domain.Record:
		return m, true
	case map[string]any:
		return domain.Record(m), true
	}
	return nil, false
}
