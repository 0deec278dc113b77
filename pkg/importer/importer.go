// Package importer builds editor documents from markdown, HTML and DOCX
// sources. An import replaces the whole document in a single update tagged
// "import", so a failing source leaves the editor untouched.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/engine"
	"github.com/aretw0/folio/pkg/nodes"
)

// TagImport marks the commit an import produces.
const TagImport = "import"

// ErrUnknownKind is returned for a source format with no importer.
var ErrUnknownKind = errors.New("unknown import kind")

// Kind names a source format.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
	KindDOCX     Kind = "docx"
)

// Func appends the nodes parsed from data under the root.
type Func func(b *Builder, data []byte) error

var importers = map[Kind]Func{
	KindMarkdown: Markdown,
	KindHTML:     HTML,
	KindDOCX:     DOCX,
}

// ForFile picks the importer kind from the file extension.
func ForFile(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return KindMarkdown, nil
	case ".html", ".htm":
		return KindHTML, nil
	case ".docx":
		return KindDOCX, nil
	}
	return "", fmt.Errorf("%w: no importer for %q", ErrUnknownKind, path)
}

// Import replaces the document of ed with the content parsed from data.
// Lists become list nodes when ed has the list types registered and plain
// paragraphs otherwise.
func Import(ctx context.Context, ed *folio.Editor, kind Kind, data []byte) error {
	fn, ok := importers[kind]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	lists := ed.Registry().Has(nodes.TypeList) && ed.Registry().Has(nodes.TypeListItem)
	return ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
		for _, k := range tx.Base().Children(domain.RootKey) {
			if err := tx.Remove(k); err != nil {
				return err
			}
		}
		if err := fn(NewBuilder(tx, lists), data); err != nil {
			return fmt.Errorf("failed to import %s: %w", kind, err)
		}
		return nil
	}, folio.WithTag(TagImport))
}

// Builder appends nodes inside a transaction. Adjacent text with the same
// format in the same block is merged into one text node.
type Builder struct {
	tx    *engine.Tx
	lists bool
	last  map[domain.NodeKey]lastText
}

type lastText struct {
	key    domain.NodeKey
	format domain.TextFormat
}

// NewBuilder returns a Builder writing through tx. When lists is false, list
// items are emitted as paragraphs.
func NewBuilder(tx *engine.Tx, lists bool) *Builder {
	return &Builder{tx: tx, lists: lists, last: make(map[domain.NodeKey]lastText)}
}

// Tx returns the transaction the builder writes through.
func (b *Builder) Tx() *engine.Tx { return b.tx }

// Lists reports whether list nodes are available.
func (b *Builder) Lists() bool { return b.lists }

// Append creates n and appends it to parent.
func (b *Builder) Append(parent domain.NodeKey, n domain.Node) (domain.NodeKey, error) {
	k, err := b.tx.Create(n)
	if err != nil {
		return "", err
	}
	if err := b.tx.Append(parent, k); err != nil {
		return "", err
	}
	delete(b.last, parent)
	return k, nil
}

// Text appends s with format f to parent.
func (b *Builder) Text(parent domain.NodeKey, s string, f domain.TextFormat) error {
	if s == "" {
		return nil
	}
	if prev, ok := b.last[parent]; ok && prev.format == f {
		n, err := b.tx.Latest(prev.key)
		if err != nil {
			return err
		}
		return b.tx.SetText(prev.key, n.(domain.Textual).Text()+s)
	}
	t := domain.NewText(s)
	t.Format = f
	k, err := b.Append(parent, t)
	if err != nil {
		return err
	}
	b.last[parent] = lastText{key: k, format: f}
	return nil
}

// LineBreak appends a line break to parent.
func (b *Builder) LineBreak(parent domain.NodeKey) error {
	_, err := b.Append(parent, domain.NewLineBreak())
	return err
}

// List appends a list of type t starting at start.
func (b *Builder) List(parent domain.NodeKey, t nodes.ListType, start int) (domain.NodeKey, error) {
	list := nodes.NewList(t)
	if start > 0 {
		list.Start = start
	}
	return b.Append(parent, list)
}

// Item appends an item to list. checked is only kept for check lists.
func (b *Builder) Item(list domain.NodeKey, checked *bool) (domain.NodeKey, error) {
	item := nodes.NewListItem()
	if checked != nil {
		n, err := b.tx.Latest(list)
		if err != nil {
			return "", err
		}
		if l, ok := n.(*nodes.ListNode); ok && l.ListType == nodes.ListCheck {
			item.SetChecked(*checked)
		}
	}
	return b.Append(list, item)
}

// EndList numbers the items of list.
func (b *Builder) EndList(list domain.NodeKey) error {
	return nodes.RenumberList(b.tx, list)
}

// Trim strips leading whitespace from the first text child of block and
// trailing whitespace from the last one, dropping text left empty.
func (b *Builder) Trim(block domain.NodeKey) error {
	delete(b.last, block)
	for _, front := range []bool{true, false} {
		for {
			children, err := b.tx.Children(block)
			if err != nil {
				return err
			}
			if len(children) == 0 {
				return nil
			}
			k := children[len(children)-1]
			if front {
				k = children[0]
			}
			n, err := b.tx.Latest(k)
			if err != nil {
				return err
			}
			t, ok := n.(*domain.TextNode)
			if !ok {
				break
			}
			trimmed := strings.TrimRight(t.Text(), " \t\n")
			if front {
				trimmed = strings.TrimLeft(t.Text(), " \t\n")
			}
			if trimmed != "" {
				if trimmed != t.Text() {
					if err := b.tx.SetText(k, trimmed); err != nil {
						return err
					}
				}
				break
			}
			if err := b.tx.Remove(k); err != nil {
				return err
			}
		}
	}
	return nil
}

// headingTag clamps level to h1..h6.
func headingTag(level int) string {
	level = max(1, min(level, 6))
	return fmt.Sprintf("h%d", level)
}
