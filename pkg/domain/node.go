package domain

import (
	"slices"
	"unicode/utf8"
)

// Built-in type tags.
const (
	TypeRoot      = "root"
	TypeParagraph = "paragraph"
	TypeHeading   = "heading"
	TypeQuote     = "quote"
	TypeText      = "text"
	TypeLineBreak = "linebreak"
	TypeDecorator = "decorator"
)

// Node is a single value in the document tree.
//
// Implementations embed NodeBase, usually through ElementBase or TextBase.
// Type must be a pure function of the concrete type. Clone returns a copy
// with the same identity that shares nothing mutable with the receiver.
type Node interface {
	Key() NodeKey
	ParentKey() NodeKey
	Type() string
	Clone() Node

	base() *NodeBase
}

// Element is a node with ordered children.
type Element interface {
	Node
	Children() []NodeKey
	ChildCount() int

	element() *ElementBase
}

// Textual is a node carrying inline text.
type Textual interface {
	Node
	Text() string

	text() *TextBase
}

// NodeBase holds the identity and parent link common to every node.
type NodeBase struct {
	key    NodeKey
	parent NodeKey
}

func (b *NodeBase) Key() NodeKey { return b.key }
func (b *NodeBase) ParentKey() NodeKey { return b.parent }
func (b *NodeBase) base() *NodeBase { return b }

// ElementFormat is the block alignment of an element.
type ElementFormat string

const (
	FormatNone    ElementFormat = ""
	FormatLeft    ElementFormat = "left"
	FormatCenter  ElementFormat = "center"
	FormatRight   ElementFormat = "right"
	FormatJustify ElementFormat = "justify"
)

// Direction is the text direction of an element.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionLTR  Direction = "ltr"
	DirectionRTL  Direction = "rtl"
)

// ElementBase is embedded by every element variant.
type ElementBase struct {
	NodeBase
	Format    ElementFormat
	Indent    int
	Direction Direction

	children []NodeKey
}

// Children returns a copy of the ordered child keys.
func (e *ElementBase) Children() []NodeKey { return slices.Clone(e.children) }
func (e *ElementBase) ChildCount() int { return len(e.children) }
func (e *ElementBase) element() *ElementBase {
	return e
}

// CloneElement copies the element fields, including its own child list.
// Extension elements call it from their Clone method.
func (e *ElementBase) CloneElement() ElementBase {
	c := *e
	c.children = slices.Clone(e.children)
	return c
}

// TextFormat is a bitset of inline formats. The values match the numeric
// format field of the wire format.
type TextFormat int

const (
	FormatBold TextFormat = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
	FormatSubscript
	FormatSuperscript
	FormatHighlight
)

// TextMode controls how a text node merges with its neighbours.
type TextMode string

const (
	ModeNormal    TextMode = "normal"
	ModeToken     TextMode = "token"
	ModeSegmented TextMode = "segmented"
)

// TextDetail is a bitset of text behaviours.
type TextDetail int

const (
	DetailDirectionless TextDetail = 1 << iota
	DetailUnmergeable
)

// TextBase is embedded by every text variant.
type TextBase struct {
	NodeBase
	Content string
	Format  TextFormat
	Style   string
	Mode    TextMode
	Detail  TextDetail
}

func (t *TextBase) Text() string { return t.Content }
func (t *TextBase) text() *TextBase { return t }
func (t *TextBase) Len() int { return utf8.RuneCountInString(t.Content) }
func (t *TextBase) CloneText() TextBase {
	return *t
}

// HasFormat reports whether every bit of f is set.
func (t *TextBase) HasFormat(f TextFormat) bool { return t.Format&f == f }

// ToggleFormat flips the bits of f.
func (t *TextBase) ToggleFormat(f TextFormat) { t.Format ^= f }

// RootNode is the single root of every document.
type RootNode struct{ ElementBase }

func (*RootNode) Type() string { return TypeRoot }
func (n *RootNode) Clone() Node {
	return &RootNode{ElementBase: n.CloneElement()}
}

// NewRoot returns a root node bound to RootKey.
func NewRoot() *RootNode {
	n := &RootNode{}
	n.key = RootKey
	return n
}

// ParagraphNode is a block of inline content.
type ParagraphNode struct{ ElementBase }

func NewParagraph() *ParagraphNode { return &ParagraphNode{} }
func (*ParagraphNode) Type() string { return TypeParagraph }
func (n *ParagraphNode) Clone() Node { return &ParagraphNode{ElementBase: n.CloneElement()} }

// HeadingNode is a block heading; Tag is one of h1 to h6.
type HeadingNode struct {
	ElementBase
	Tag string
}

func NewHeading(tag string) *HeadingNode { return &HeadingNode{Tag: tag} }
func (*HeadingNode) Type() string { return TypeHeading }
func (n *HeadingNode) Clone() Node {
	return &HeadingNode{ElementBase: n.CloneElement(), Tag: n.Tag}
}

// QuoteNode is a block quotation.
type QuoteNode struct{ ElementBase }

func NewQuote() *QuoteNode { return &QuoteNode{} }
func (*QuoteNode) Type() string { return TypeQuote }
func (n *QuoteNode) Clone() Node { return &QuoteNode{ElementBase: n.CloneElement()} }

// TextNode is a run of uniformly formatted text.
type TextNode struct{ TextBase }

// NewText returns a normal-mode text node.
func NewText(content string) *TextNode {
	return &TextNode{TextBase: TextBase{Content: content, Mode: ModeNormal}}
}

func (*TextNode) Type() string { return TypeText }
func (n *TextNode) Clone() Node { return &TextNode{TextBase: n.CloneText()} }

// LineBreakNode is a hard break inside a block.
type LineBreakNode struct{ NodeBase }

func NewLineBreak() *LineBreakNode { return &LineBreakNode{} }
func (*LineBreakNode) Type() string { return TypeLineBreak }
func (n *LineBreakNode) Clone() Node {
	c := *n
	return &c
}

// DecoratorNode embeds externally rendered content. The node only stores the
// reference key of the external object and a caller-defined payload.
type DecoratorNode struct {
	NodeBase
	Ref     string
	Payload map[string]any
}

func NewDecorator(ref string, payload map[string]any) *DecoratorNode {
	return &DecoratorNode{Ref: ref, Payload: payload}
}

func (*DecoratorNode) Type() string { return TypeDecorator }
func (n *DecoratorNode) Clone() Node {
	c := *n
	c.Payload = ClonePayload(n.Payload)
	return &c
}

// IsElement reports whether n has children.
func IsElement(n Node) bool {
	_, ok := n.(Element)
	return ok
}

// AsElement returns n as an Element or a StructuralInvariantError.
func AsElement(n Node) (Element, error) {
	e, ok := n.(Element)
	if !ok {
		return nil, &StructuralInvariantError{Key: n.Key(), Reason: n.Type() + " node cannot have children"}
	}
	return e, nil
}

// The functions below edit identity and edges in place. Only the engine and
// the codec call them, and only on nodes not yet part of a committed snapshot.

// BindKey sets the identity of a freshly constructed node.
func BindKey(n Node, key NodeKey) { n.base().key = key }

// SetParent sets the parent link of n.
func SetParent(n Node, parent NodeKey) { n.base().parent = parent }

// SetChildren replaces the ordered child list of e.
func SetChildren(e Element, children []NodeKey) { e.element().children = children }

// SetText sets the content of a text variant through its base.
func SetText(t Textual, content string) { t.text().Content = content }

// ElementBaseOf exposes the shared element fields of e to codecs.
func ElementBaseOf(e Element) *ElementBase { return e.element() }

// TextBaseOf exposes the shared text fields of t to codecs.
func TextBaseOf(t Textual) *TextBase { return t.text() }
