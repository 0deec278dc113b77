package importer

import (
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Markdown parses CommonMark with the GFM extensions.
func Markdown(b *Builder, src []byte) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))
	w := &mdWalker{b: b, src: src}
	return w.blocks(domain.RootKey, doc)
}

type mdWalker struct {
	b   *Builder
	src []byte
}

func (w *mdWalker) blocks(parent domain.NodeKey, n ast.Node) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := w.block(parent, c); err != nil {
			return err
		}
	}
	return nil
}

func (w *mdWalker) block(parent domain.NodeKey, n ast.Node) error {
	switch n := n.(type) {
	case *ast.Heading:
		k, err := w.b.Append(parent, domain.NewHeading(headingTag(n.Level)))
		if err != nil {
			return err
		}
		return w.inlines(k, n, 0)

	case *ast.Paragraph, *ast.TextBlock:
		k, err := w.b.Append(parent, domain.NewParagraph())
		if err != nil {
			return err
		}
		return w.inlines(k, n, 0)

	case *ast.Blockquote:
		k, err := w.b.Append(parent, domain.NewQuote())
		if err != nil {
			return err
		}
		return w.flow(k, n)

	case *ast.List:
		return w.list(parent, n)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		k, err := w.b.Append(parent, domain.NewParagraph())
		if err != nil {
			return err
		}
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			if i > 0 {
				if err := w.b.LineBreak(k); err != nil {
					return err
				}
			}
			line := lines.At(i)
			s := string(line.Value(w.src))
			if l := len(s); l > 0 && s[l-1] == '\n' {
				s = s[:l-1]
			}
			if err := w.b.Text(k, s, domain.FormatCode); err != nil {
				return err
			}
		}
		return nil

	case *ast.ThematicBreak, *ast.HTMLBlock:
		return nil
	}
	return w.blocks(parent, n)
}

// flow writes the paragraphs of n as inline content of one block,
// separated by line breaks.
func (w *mdWalker) flow(block domain.NodeKey, n ast.Node) error {
	first := true
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if !first {
			if err := w.b.LineBreak(block); err != nil {
				return err
			}
		}
		first = false
		if err := w.inlines(block, c, 0); err != nil {
			return err
		}
	}
	return nil
}

func (w *mdWalker) list(parent domain.NodeKey, n *ast.List) error {
	if !w.b.Lists() {
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			if err := w.blocks(parent, item); err != nil {
				return err
			}
		}
		return nil
	}

	kind := nodes.ListBullet
	if n.IsOrdered() {
		kind = nodes.ListNumber
	} else if taskBox(n.FirstChild()) != nil {
		kind = nodes.ListCheck
	}
	lk, err := w.b.List(parent, kind, n.Start)
	if err != nil {
		return err
	}
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		var checked *bool
		if kind == nodes.ListCheck {
			v := false
			if box := taskBox(item); box != nil {
				v = box.IsChecked
			}
			checked = &v
		}
		ik, err := w.b.Item(lk, checked)
		if err != nil {
			return err
		}
		if err := w.item(ik, item); err != nil {
			return err
		}
	}
	return w.b.EndList(lk)
}

func (w *mdWalker) item(ik domain.NodeKey, n ast.Node) error {
	wrote := false
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if sub, ok := c.(*ast.List); ok {
			if err := w.list(ik, sub); err != nil {
				return err
			}
			continue
		}
		if wrote {
			if err := w.b.LineBreak(ik); err != nil {
				return err
			}
		}
		if err := w.inlines(ik, c, 0); err != nil {
			return err
		}
		wrote = true
	}
	return w.b.Trim(ik)
}

// taskBox returns the checkbox opening a list item, if any.
func taskBox(item ast.Node) *east.TaskCheckBox {
	if item == nil || item.FirstChild() == nil {
		return nil
	}
	box, _ := item.FirstChild().FirstChild().(*east.TaskCheckBox)
	return box
}

func (w *mdWalker) inlines(parent domain.NodeKey, n ast.Node, f domain.TextFormat) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := w.inline(parent, c, f); err != nil {
			return err
		}
	}
	return nil
}

func (w *mdWalker) inline(parent domain.NodeKey, n ast.Node, f domain.TextFormat) error {
	switch n := n.(type) {
	case *ast.Text:
		if err := w.b.Text(parent, w.literal(n.Segment.Value(w.src), f), f); err != nil {
			return err
		}
		switch {
		case n.HardLineBreak():
			return w.b.LineBreak(parent)
		case n.SoftLineBreak():
			return w.b.Text(parent, " ", f)
		}
		return nil
	case *ast.String:
		return w.b.Text(parent, string(n.Value), f)
	case *ast.CodeSpan:
		return w.inlines(parent, n, f|domain.FormatCode)
	case *ast.Emphasis:
		if n.Level >= 2 {
			return w.inlines(parent, n, f|domain.FormatBold)
		}
		return w.inlines(parent, n, f|domain.FormatItalic)
	case *east.Strikethrough:
		return w.inlines(parent, n, f|domain.FormatStrikethrough)
	case *ast.AutoLink:
		return w.b.Text(parent, string(n.Label(w.src)), f)
	case *east.TaskCheckBox, *ast.RawHTML:
		return nil
	}
	return w.inlines(parent, n, f)
}

// literal resolves escapes and entity references outside code spans.
func (w *mdWalker) literal(v []byte, f domain.TextFormat) string {
	if f&domain.FormatCode != 0 {
		return string(v)
	}
	v = util.ResolveNumericReferences(v)
	v = util.ResolveEntityNames(v)
	return string(util.UnescapePunctuations(v))
}
