// Package validator lints committed documents for problems the engine's
// structural checks allow but a reader would notice.
package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
)

// Problem is one finding, addressed by the child-index path of its node.
type Problem struct {
	Path    []int
	Message string
}

func (p Problem) String() string {
	parts := make([]string, len(p.Path))
	for i, n := range p.Path {
		parts[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("[%s] %s", strings.Join(parts, "."), p.Message)
}

// Lint walks snap in document order and reports:
//   - headings that skip a level (h1 followed by h3)
//   - empty headings
//   - numbered list items whose value does not follow the list start
//   - check list items without a checked state, and checked items elsewhere
func Lint(snap *domain.Snapshot) []Problem {
	var problems []Problem
	report := func(n domain.Node, format string, args ...any) {
		path, _ := snap.Path(n.Key())
		problems = append(problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	lastLevel := 0
	_ = snap.Walk(func(n domain.Node, depth int) error {
		switch n := n.(type) {
		case *domain.HeadingNode:
			level := headingLevel(n.Tag)
			if lastLevel > 0 && level > lastLevel+1 {
				report(n, "heading %s follows h%d", n.Tag, lastLevel)
			}
			lastLevel = level
			if n.ChildCount() == 0 || strings.TrimSpace(snap.TextContent(n.Key())) == "" {
				report(n, "empty heading")
			}
		case *nodes.ListNode:
			lintList(snap, n, report)
		}
		return nil
	})
	return problems
}

func lintList(snap *domain.Snapshot, list *nodes.ListNode, report func(domain.Node, string, ...any)) {
	want := list.Start
	for _, k := range list.Children() {
		child, err := snap.Get(k)
		if err != nil {
			continue
		}
		item, ok := child.(*nodes.ListItemNode)
		if !ok {
			continue
		}
		if list.ListType == nodes.ListNumber && item.Value != want {
			report(item, "list item numbered %d, expected %d", item.Value, want)
		}
		want++
		if nested(snap, item) {
			continue
		}
		switch {
		case list.ListType == nodes.ListCheck && item.Checked == nil:
			report(item, "check list item has no checked state")
		case list.ListType != nodes.ListCheck && item.Checked != nil:
			report(item, "checked item in a %s list", list.ListType)
		}
	}
}

// nested reports whether item only wraps a nested list.
func nested(snap *domain.Snapshot, item *nodes.ListItemNode) bool {
	kids := item.Children()
	if len(kids) != 1 {
		return false
	}
	n, err := snap.Get(kids[0])
	if err != nil {
		return false
	}
	_, ok := n.(*nodes.ListNode)
	return ok
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// Validate returns an error listing every problem Lint finds.
func Validate(snap *domain.Snapshot) error {
	problems := Lint(snap)
	if len(problems) == 0 {
		return nil
	}
	lines := make([]string, len(problems))
	for i, p := range problems {
		lines[i] = p.String()
	}
	return fmt.Errorf("found %d problems:\n- %s", len(problems), strings.Join(lines, "\n- "))
}
