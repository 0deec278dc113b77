package exporter

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// formatTags wraps text, outermost first.
var formatTags = []struct {
	format domain.TextFormat
	tag    string
}{
	{domain.FormatBold, "strong"},
	{domain.FormatItalic, "em"},
	{domain.FormatStrikethrough, "s"},
	{domain.FormatUnderline, "u"},
	{domain.FormatSubscript, "sub"},
	{domain.FormatSuperscript, "sup"},
	{domain.FormatHighlight, "mark"},
	{domain.FormatCode, "code"},
}

// HTML renders snap as an HTML fragment, one top-level element per line.
func HTML(snap *domain.Snapshot) (string, error) {
	var buf bytes.Buffer
	for _, k := range snap.Children(domain.RootKey) {
		n, err := htmlNode(snap, k)
		if err != nil {
			return "", err
		}
		if n == nil {
			continue
		}
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("failed to render html: %w", err)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

func htmlNode(snap *domain.Snapshot, key domain.NodeKey) (*html.Node, error) {
	n, err := snap.Get(key)
	if err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case *domain.LineBreakNode:
		return element("br"), nil
	case *domain.DecoratorNode:
		return nil, nil
	case domain.Textual:
		return htmlText(n), nil
	case domain.Element:
		el := element(htmlTag(n))
		switch n := n.(type) {
		case *nodes.ListNode:
			if n.ListType == nodes.ListNumber && n.Start != 1 {
				el.Attr = append(el.Attr, html.Attribute{Key: "start", Val: strconv.Itoa(n.Start)})
			}
		case *nodes.ListItemNode:
			if n.Checked != nil {
				box := element("input", html.Attribute{Key: "type", Val: "checkbox"}, html.Attribute{Key: "disabled"})
				if *n.Checked {
					box.Attr = append(box.Attr, html.Attribute{Key: "checked"})
				}
				el.AppendChild(box)
				el.AppendChild(&html.Node{Type: html.TextNode, Data: " "})
			}
		}
		for _, ck := range n.Children() {
			c, err := htmlNode(snap, ck)
			if err != nil {
				return nil, err
			}
			if c != nil {
				el.AppendChild(c)
			}
		}
		return el, nil
	}
	return nil, nil
}

func htmlTag(e domain.Element) string {
	switch e := e.(type) {
	case interface{ HTMLTag() string }:
		return e.HTMLTag()
	case *domain.HeadingNode:
		if e.Tag != "" {
			return e.Tag
		}
		return "h1"
	case *domain.ParagraphNode:
		return "p"
	case *domain.QuoteNode:
		return "blockquote"
	case *nodes.ListItemNode:
		return "li"
	}
	return "div"
}

func htmlText(t domain.Textual) *html.Node {
	tb := domain.TextBaseOf(t)
	out := &html.Node{Type: html.TextNode, Data: tb.Content}
	for i := len(formatTags) - 1; i >= 0; i-- {
		if !tb.HasFormat(formatTags[i].format) {
			continue
		}
		wrap := element(formatTags[i].tag)
		wrap.AppendChild(out)
		out = wrap
	}
	if tb.Style != "" {
		span := element("span", html.Attribute{Key: "style", Val: tb.Style})
		span.AppendChild(out)
		out = span
	}
	return out
}
