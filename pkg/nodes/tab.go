package nodes

import (
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
)

const TypeTab = "tab"

// TabWidth is the number of spaces a tab character expands to.
const TabWidth = 4

var tabSpaces = strings.Repeat(" ", TabWidth)

// NormalizeTabs expands every tab in s to TabWidth spaces. Applying it twice
// gives the same result as applying it once.
func NormalizeTabs(s string) string {
	return strings.ReplaceAll(s, "\t", tabSpaces)
}

// TabNode is indentation inside a line. It is a token: the editor treats it
// as one unit and never merges it with neighbouring text.
type TabNode struct{ domain.TextBase }

// NewTab returns a tab holding one TabWidth run of spaces.
func NewTab() *TabNode {
	return &TabNode{TextBase: domain.TextBase{Content: tabSpaces, Mode: domain.ModeToken}}
}

func (*TabNode) Type() string { return TypeTab }

func (n *TabNode) Clone() domain.Node { return &TabNode{TextBase: n.CloneText()} }

func (n *TabNode) EncodeFields(domain.Record) error { return nil }

// DecodeFields runs after the shared text fields were read; it expands tabs
// in the stored text and pins the mode.
func (n *TabNode) DecodeFields(domain.Record) error {
	n.Content = NormalizeTabs(n.Content)
	if n.Content == "" {
		n.Content = tabSpaces
	}
	n.Mode = domain.ModeToken
	return nil
}

// TabPlugin registers the tab type.
type TabPlugin struct{}

func (TabPlugin) Name() string { return "tab" }

func (TabPlugin) SetUp(host ports.Host) error {
	return host.RegisterNodeType(TypeTab, newTab, nil)
}

func (TabPlugin) TearDown() error { return nil }

func newTab() domain.Node { return NewTab() }
