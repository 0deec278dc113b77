package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
	"golang.org/x/net/html"
)

var inlineFormats = map[string]domain.TextFormat{
	"b":      domain.FormatBold,
	"strong": domain.FormatBold,
	"i":      domain.FormatItalic,
	"em":     domain.FormatItalic,
	"s":      domain.FormatStrikethrough,
	"strike": domain.FormatStrikethrough,
	"del":    domain.FormatStrikethrough,
	"u":      domain.FormatUnderline,
	"code":   domain.FormatCode,
	"kbd":    domain.FormatCode,
	"sub":    domain.FormatSubscript,
	"sup":    domain.FormatSuperscript,
	"mark":   domain.FormatHighlight,
}

// inline elements that may appear outside a block and open an implicit paragraph.
var phrasing = map[string]bool{
	"a": true, "span": true, "abbr": true, "cite": true, "q": true,
	"small": true, "time": true, "br": true,
}

// HTML parses an HTML document or fragment. Only the body is read.
func HTML(b *Builder, data []byte) error {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	root := findBody(doc)
	if root == nil {
		root = doc
	}
	w := &htmlWalker{b: b}
	return w.blocks(domain.RootKey, root)
}

type htmlWalker struct {
	b *Builder
	// open collects stray inline content at block level.
	open domain.NodeKey
}

func (w *htmlWalker) blocks(parent domain.NodeKey, n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := w.block(parent, c); err != nil {
			return err
		}
	}
	return w.close()
}

func (w *htmlWalker) close() error {
	if w.open == "" {
		return nil
	}
	k := w.open
	w.open = ""
	return w.b.Trim(k)
}

// implicit returns the paragraph collecting stray inline content.
func (w *htmlWalker) implicit(parent domain.NodeKey) (domain.NodeKey, error) {
	if w.open != "" {
		return w.open, nil
	}
	k, err := w.b.Append(parent, domain.NewParagraph())
	if err != nil {
		return "", err
	}
	w.open = k
	return k, nil
}

func (w *htmlWalker) block(parent domain.NodeKey, n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		k, err := w.implicit(parent)
		if err != nil {
			return err
		}
		return w.inline(k, n, 0)
	case html.ElementNode:
	default:
		return nil
	}

	if _, ok := inlineFormats[n.Data]; ok || phrasing[n.Data] {
		k, err := w.implicit(parent)
		if err != nil {
			return err
		}
		return w.inline(k, n, 0)
	}
	if err := w.close(); err != nil {
		return err
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(n.Data[1:])
		return w.leaf(parent, domain.NewHeading(headingTag(level)), n)
	case "p":
		return w.leaf(parent, domain.NewParagraph(), n)
	case "blockquote":
		return w.leaf(parent, domain.NewQuote(), n)
	case "ul", "ol":
		return w.list(parent, n)
	case "pre":
		return w.pre(parent, n)
	case "script", "style", "head", "nav", "template", "noscript", "hr", "img":
		return nil
	}
	return w.blocks(parent, n)
}

// leaf writes the whole content of n as inline children of a new block.
func (w *htmlWalker) leaf(parent domain.NodeKey, block domain.Node, n *html.Node) error {
	k, err := w.b.Append(parent, block)
	if err != nil {
		return err
	}
	if err := w.inlines(k, n, 0); err != nil {
		return err
	}
	return w.b.Trim(k)
}

func (w *htmlWalker) pre(parent domain.NodeKey, n *html.Node) error {
	k, err := w.b.Append(parent, domain.NewParagraph())
	if err != nil {
		return err
	}
	lines := strings.Split(strings.Trim(textContent(n), "\n"), "\n")
	for i, line := range lines {
		if i > 0 {
			if err := w.b.LineBreak(k); err != nil {
				return err
			}
		}
		if err := w.b.Text(k, line, domain.FormatCode); err != nil {
			return err
		}
	}
	return nil
}

func (w *htmlWalker) list(parent domain.NodeKey, n *html.Node) error {
	items := children(n, "li")
	if !w.b.Lists() {
		for _, li := range items {
			if err := w.leaf(parent, domain.NewParagraph(), li); err != nil {
				return err
			}
		}
		return nil
	}

	kind, start := nodes.ListBullet, 0
	if n.Data == "ol" {
		kind = nodes.ListNumber
		start, _ = strconv.Atoi(attr(n, "start"))
	} else if len(items) > 0 && checkbox(items[0]) != nil {
		kind = nodes.ListCheck
	}
	lk, err := w.b.List(parent, kind, start)
	if err != nil {
		return err
	}
	for _, li := range items {
		var checked *bool
		if kind == nodes.ListCheck {
			v := false
			if box := checkbox(li); box != nil {
				_, v = attrOK(box, "checked")
			}
			checked = &v
		}
		ik, err := w.b.Item(lk, checked)
		if err != nil {
			return err
		}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				if err := w.list(ik, c); err != nil {
					return err
				}
				continue
			}
			if err := w.inline(ik, c, 0); err != nil {
				return err
			}
		}
		if err := w.b.Trim(ik); err != nil {
			return err
		}
	}
	return w.b.EndList(lk)
}

func (w *htmlWalker) inlines(parent domain.NodeKey, n *html.Node, f domain.TextFormat) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := w.inline(parent, c, f); err != nil {
			return err
		}
	}
	return nil
}

func (w *htmlWalker) inline(parent domain.NodeKey, n *html.Node, f domain.TextFormat) error {
	switch n.Type {
	case html.TextNode:
		return w.b.Text(parent, collapse(n.Data), f)
	case html.ElementNode:
	default:
		return nil
	}
	switch n.Data {
	case "br":
		return w.b.LineBreak(parent)
	case "input", "script", "style", "img":
		return nil
	case "p", "div":
		// Nested blocks inside a leaf are separated by line breaks.
		if hasContentBefore(n) {
			if err := w.b.LineBreak(parent); err != nil {
				return err
			}
		}
	}
	return w.inlines(parent, n, f|inlineFormats[n.Data])
}

// collapse folds runs of whitespace into one space.
func collapse(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

func hasContentBefore(n *html.Node) bool {
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		if p.Type != html.TextNode || strings.TrimSpace(p.Data) != "" {
			return true
		}
	}
	return false
}

func children(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func checkbox(li *html.Node) *html.Node {
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "input" && attr(c, "type") == "checkbox" {
			return c
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
