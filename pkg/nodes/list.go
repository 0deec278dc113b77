package nodes

import (
	"fmt"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/engine"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/registry"
)

const (
	TypeList     = "list"
	TypeListItem = "listitem"
)

// ListType is the marker style of a list.
type ListType string

const (
	ListBullet ListType = "bullet"
	ListNumber ListType = "number"
	ListCheck  ListType = "check"
)

func (t ListType) valid() bool {
	switch t {
	case ListBullet, ListNumber, ListCheck:
		return true
	}
	return false
}

// ListNode is a list container. Its children are ListItemNodes.
type ListNode struct {
	domain.ElementBase
	ListType ListType
	Start    int
}

// NewList returns a list of the given type starting at 1. An empty type
// means bullet.
func NewList(t ListType) *ListNode {
	if t == "" {
		t = ListBullet
	}
	return &ListNode{ListType: t, Start: 1}
}

func (*ListNode) Type() string { return TypeList }

func (n *ListNode) Clone() domain.Node {
	c := *n
	c.ElementBase = n.CloneElement()
	return &c
}

// HTMLTag is "ol" for numbered lists and "ul" otherwise.
func (n *ListNode) HTMLTag() string {
	if n.ListType == ListNumber {
		return "ol"
	}
	return "ul"
}

func (n *ListNode) EncodeFields(rec domain.Record) error {
	rec["listType"] = string(n.ListType)
	rec["start"] = n.Start
	rec["tag"] = n.HTMLTag()
	return nil
}

func (n *ListNode) DecodeFields(rec domain.Record) error {
	f := struct {
		ListType string `mapstructure:"listType"`
		Start    int    `mapstructure:"start"`
	}{ListType: string(ListBullet), Start: 1}
	if err := registry.DecodeFields(rec, &f); err != nil {
		return err
	}
	if f.ListType == "" {
		f.ListType = string(ListBullet)
	}
	if !ListType(f.ListType).valid() {
		return fmt.Errorf("invalid list type %q", f.ListType)
	}
	if f.Start < 1 {
		f.Start = 1
	}
	n.ListType = ListType(f.ListType)
	n.Start = f.Start
	return nil
}

// ListItemNode is one entry of a list. Checked is only meaningful inside a
// check list.
type ListItemNode struct {
	domain.ElementBase
	Value   int
	Checked *bool
}

func NewListItem() *ListItemNode { return &ListItemNode{Value: 1} }

func (*ListItemNode) Type() string { return TypeListItem }

func (n *ListItemNode) Clone() domain.Node {
	c := *n
	c.ElementBase = n.CloneElement()
	if n.Checked != nil {
		v := *n.Checked
		c.Checked = &v
	}
	return &c
}

// SetChecked marks a check-list item.
func (n *ListItemNode) SetChecked(v bool) { n.Checked = &v }

func (n *ListItemNode) EncodeFields(rec domain.Record) error {
	rec["value"] = n.Value
	if n.Checked != nil {
		rec["checked"] = *n.Checked
	}
	return nil
}

func (n *ListItemNode) DecodeFields(rec domain.Record) error {
	f := struct {
		Value   int   `mapstructure:"value"`
		Checked *bool `mapstructure:"checked"`
	}{Value: 1}
	if err := registry.DecodeFields(rec, &f); err != nil {
		return err
	}
	if f.Value < 1 {
		f.Value = 1
	}
	n.Value = f.Value
	n.Checked = f.Checked
	return nil
}

// InsertList appends a list of type t under parent with one item per entry
// of items, each holding a single text node. It returns the list key.
func InsertList(tx *engine.Tx, parent domain.NodeKey, t ListType, items ...string) (domain.NodeKey, error) {
	list := NewList(t)
	if !list.ListType.valid() {
		return "", fmt.Errorf("invalid list type %q", t)
	}
	lk, err := tx.Create(list)
	if err != nil {
		return "", err
	}
	for _, text := range items {
		item := NewListItem()
		if list.ListType == ListCheck {
			item.SetChecked(false)
		}
		ik, err := tx.Create(item)
		if err != nil {
			return "", err
		}
		tk, err := tx.Create(domain.NewText(text))
		if err != nil {
			return "", err
		}
		if err := tx.Append(ik, tk); err != nil {
			return "", err
		}
		if err := tx.Append(lk, ik); err != nil {
			return "", err
		}
	}
	if err := tx.Append(parent, lk); err != nil {
		return "", err
	}
	return lk, RenumberList(tx, lk)
}

// RenumberList sets item values to start, start+1, ... in child order. Items
// that already carry the right value are not written.
func RenumberList(tx *engine.Tx, listKey domain.NodeKey) error {
	list, err := engine.LatestAs[*ListNode](tx, listKey)
	if err != nil {
		return err
	}
	value := list.Start
	for _, k := range list.Children() {
		item, err := engine.LatestAs[*ListItemNode](tx, k)
		if err != nil {
			return fmt.Errorf("failed to renumber list %s: %w", listKey, err)
		}
		if item.Value != value {
			w, err := engine.WritableAs[*ListItemNode](tx, k)
			if err != nil {
				return err
			}
			w.Value = value
		}
		value++
	}
	return nil
}

// ListPlugin registers the list and list item types.
type ListPlugin struct{}

func (ListPlugin) Name() string { return "list" }

func (ListPlugin) SetUp(host ports.Host) error {
	if err := host.RegisterNodeType(TypeList, newList, nil); err != nil {
		return err
	}
	return host.RegisterNodeType(TypeListItem, newListItem, nil)
}

func (ListPlugin) TearDown() error { return nil }

func newList() domain.Node     { return NewList(ListBullet) }
func newListItem() domain.Node { return NewListItem() }
