// Package exporter renders snapshots as markdown or HTML.
package exporter

import (
	"fmt"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
)

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"~", `\~`,
)

// Markdown renders snap as CommonMark with GFM task lists and strikethrough.
// Decorators are skipped.
func Markdown(snap *domain.Snapshot) (string, error) {
	var blocks []string
	for _, k := range snap.Children(domain.RootKey) {
		s, err := mdBlock(snap, k, "")
		if err != nil {
			return "", err
		}
		if s != "" {
			blocks = append(blocks, s)
		}
	}
	if len(blocks) == 0 {
		return "", nil
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

func mdBlock(snap *domain.Snapshot, key domain.NodeKey, indent string) (string, error) {
	n, err := snap.Get(key)
	if err != nil {
		return "", err
	}
	switch n := n.(type) {
	case *domain.HeadingNode:
		level := 1
		if len(n.Tag) == 2 && n.Tag[1] >= '1' && n.Tag[1] <= '6' {
			level = int(n.Tag[1] - '0')
		}
		return strings.Repeat("#", level) + " " + mdInline(snap, key, "\n"), nil
	case *domain.QuoteNode:
		return "> " + mdInline(snap, key, "  \n> "), nil
	case *nodes.ListNode:
		return mdList(snap, n, indent)
	case *domain.DecoratorNode:
		return "", nil
	case domain.Element:
		return mdInline(snap, key, "  \n"), nil
	case domain.Textual:
		return mdText(n), nil
	}
	return "", nil
}

func mdList(snap *domain.Snapshot, list *nodes.ListNode, indent string) (string, error) {
	var lines []string
	for _, k := range list.Children() {
		n, err := snap.Get(k)
		if err != nil {
			return "", err
		}
		item, ok := n.(*nodes.ListItemNode)
		if !ok {
			return "", fmt.Errorf("list %s holds a %s node", list.Key(), n.Type())
		}
		marker := "- "
		switch list.ListType {
		case nodes.ListNumber:
			marker = fmt.Sprintf("%d. ", item.Value)
		case nodes.ListCheck:
			if item.Checked != nil && *item.Checked {
				marker = "- [x] "
			} else {
				marker = "- [ ] "
			}
		}
		pad := indent + strings.Repeat(" ", len(marker))
		var inline strings.Builder
		var nested []string
		for _, ck := range item.Children() {
			child, err := snap.Get(ck)
			if err != nil {
				return "", err
			}
			if sub, ok := child.(*nodes.ListNode); ok {
				s, err := mdList(snap, sub, pad)
				if err != nil {
					return "", err
				}
				nested = append(nested, s)
				continue
			}
			inline.WriteString(mdNode(snap, child, "  \n"+pad))
		}
		lines = append(lines, indent+marker+inline.String())
		lines = append(lines, nested...)
	}
	return strings.Join(lines, "\n"), nil
}

// mdInline renders the children of key on one logical line; br separates
// line breaks.
func mdInline(snap *domain.Snapshot, key domain.NodeKey, br string) string {
	var b strings.Builder
	for _, k := range snap.Children(key) {
		n, err := snap.Get(k)
		if err != nil {
			continue
		}
		b.WriteString(mdNode(snap, n, br))
	}
	return b.String()
}

func mdNode(snap *domain.Snapshot, n domain.Node, br string) string {
	switch n := n.(type) {
	case *domain.LineBreakNode:
		return br
	case domain.Textual:
		return mdText(n)
	case domain.Element:
		return mdInline(snap, n.Key(), br)
	}
	return ""
}

func mdText(t domain.Textual) string {
	tb := domain.TextBaseOf(t)
	s := tb.Content
	if s == "" {
		return ""
	}
	if tb.HasFormat(domain.FormatCode) {
		return "`" + s + "`"
	}
	s = mdEscaper.Replace(s)
	// Emphasis markers must hug the text, so surrounding spaces stay outside.
	core := strings.TrimSpace(s)
	if core == "" {
		return s
	}
	lead := s[:strings.Index(s, core)]
	trail := s[len(lead)+len(core):]
	if tb.HasFormat(domain.FormatStrikethrough) {
		core = "~~" + core + "~~"
	}
	if tb.HasFormat(domain.FormatItalic) {
		core = "*" + core + "*"
	}
	if tb.HasFormat(domain.FormatBold) {
		core = "**" + core + "**"
	}
	return lead + core + trail
}
