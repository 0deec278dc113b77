package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDoc returns root -> paragraph -> [text "hello", linebreak, text "world"].
func buildDoc(t *testing.T) (map[NodeKey]Node, *ParagraphNode, *TextNode) {
	t.Helper()
	root := NewRoot()
	p := NewParagraph()
	BindKey(p, NewKey())
	hello := NewText("hello")
	BindKey(hello, NewKey())
	br := NewLineBreak()
	BindKey(br, NewKey())
	world := NewText("world")
	BindKey(world, NewKey())

	SetChildren(root, []NodeKey{p.Key()})
	SetParent(p, RootKey)
	SetChildren(p, []NodeKey{hello.Key(), br.Key(), world.Key()})
	for _, n := range []Node{hello, br, world} {
		SetParent(n, p.Key())
	}
	return map[NodeKey]Node{
		RootKey:     root,
		p.Key():     p,
		hello.Key(): hello,
		br.Key():    br,
		world.Key(): world,
	}, p, hello
}

func TestNewKey_Unique(t *testing.T) {
	seen := map[NodeKey]bool{}
	for range 1000 {
		k := NewKey()
		require.False(t, seen[k], "key %s reused", k)
		require.NotEqual(t, RootKey, k)
		seen[k] = true
	}
}

func TestSnapshot_ReadPath(t *testing.T) {
	nodes, p, hello := buildDoc(t)
	snap, err := NewSnapshot(nodes, Caret(hello.Key(), 99), 3, "test")
	require.NoError(t, err)

	assert.Equal(t, uint64(3), snap.Version())
	assert.Equal(t, "test", snap.Tag())
	assert.Equal(t, 5, snap.Len())
	assert.Equal(t, []NodeKey{p.Key()}, snap.Root().Children())
	assert.Equal(t, "hello\nworld", snap.TextContent(RootKey))

	path, err := snap.Path(hello.Key())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, path)

	n, err := snap.NodeAt(path)
	require.NoError(t, err)
	assert.Equal(t, hello.Key(), n.Key())

	_, err = snap.NodeAt([]int{0, 7})
	assert.ErrorIs(t, err, ErrDanglingKey)

	_, err = snap.Get("missing")
	var dangling *DanglingKeyError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, NodeKey("missing"), dangling.Key)

	// Offsets past the end of a text node are clamped.
	sel := snap.Selection()
	require.NotNil(t, sel)
	assert.Equal(t, 5, sel.Anchor.Offset)
	assert.True(t, sel.Collapsed())
}

func TestSnapshot_SelectionOnMissingKeyIsCleared(t *testing.T) {
	nodes, _, _ := buildDoc(t)
	snap, err := NewSnapshot(nodes, Caret("gone", 0), 1, "")
	require.NoError(t, err)
	assert.Nil(t, snap.Selection())
}

func TestSnapshot_WalkSkipChildren(t *testing.T) {
	nodes, p, _ := buildDoc(t)
	snap, err := NewSnapshot(nodes, nil, 1, "")
	require.NoError(t, err)

	var visited []string
	err = snap.Walk(func(n Node, depth int) error {
		visited = append(visited, n.Type())
		if n.Key() == p.Key() {
			return ErrSkipChildren
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{TypeRoot, TypeParagraph}, visited)

	stop := errors.New("stop")
	err = snap.Walk(func(Node, int) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(nodes map[NodeKey]Node, p *ParagraphNode, hello *TextNode)
	}{
		{
			name: "missing root",
			mutate: func(nodes map[NodeKey]Node, _ *ParagraphNode, _ *TextNode) {
				delete(nodes, RootKey)
			},
		},
		{
			name: "unattached node",
			mutate: func(nodes map[NodeKey]Node, _ *ParagraphNode, _ *TextNode) {
				n := NewText("orphan")
				BindKey(n, NewKey())
				nodes[n.Key()] = n
			},
		},
		{
			name: "dangling child",
			mutate: func(nodes map[NodeKey]Node, p *ParagraphNode, _ *TextNode) {
				SetChildren(p, append(p.Children(), "nope"))
			},
		},
		{
			name: "child listed twice",
			mutate: func(nodes map[NodeKey]Node, p *ParagraphNode, hello *TextNode) {
				SetChildren(p, append(p.Children(), hello.Key()))
			},
		},
		{
			name: "parent mismatch",
			mutate: func(nodes map[NodeKey]Node, _ *ParagraphNode, hello *TextNode) {
				SetParent(hello, RootKey)
			},
		},
		{
			name: "second root under a paragraph",
			mutate: func(nodes map[NodeKey]Node, p *ParagraphNode, _ *TextNode) {
				r := &RootNode{}
				BindKey(r, NewKey())
				SetParent(r, p.Key())
				SetChildren(p, append(p.Children(), r.Key()))
				nodes[r.Key()] = r
			},
		},
		{
			name: "cycle back to paragraph",
			mutate: func(nodes map[NodeKey]Node, p *ParagraphNode, _ *TextNode) {
				q := NewQuote()
				BindKey(q, NewKey())
				SetParent(q, p.Key())
				SetChildren(q, []NodeKey{p.Key()})
				SetChildren(p, append(p.Children(), q.Key()))
				nodes[q.Key()] = q
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, p, hello := buildDoc(t)
			tt.mutate(nodes, p, hello)
			_, err := NewSnapshot(nodes, nil, 1, "")
			var structural *StructuralInvariantError
			assert.ErrorAs(t, err, &structural)
			assert.ErrorIs(t, err, ErrStructuralInvariant)
		})
	}
}

func TestClone_SharesNothingMutable(t *testing.T) {
	p := NewParagraph()
	SetChildren(p, []NodeKey{"a"})
	c := p.Clone().(*ParagraphNode)
	SetChildren(c, append(c.Children(), "b"))
	assert.Equal(t, []NodeKey{"a"}, p.Children())

	d := NewDecorator("img-1", map[string]any{"alt": "x", "size": map[string]any{"w": 1}})
	dc := d.Clone().(*DecoratorNode)
	dc.Payload["alt"] = "y"
	dc.Payload["size"].(map[string]any)["w"] = 2
	assert.Equal(t, "x", d.Payload["alt"])
	assert.Equal(t, 1, d.Payload["size"].(map[string]any)["w"])

	txt := NewText("hi")
	txt.ToggleFormat(FormatBold | FormatItalic)
	assert.True(t, txt.HasFormat(FormatBold))
	assert.False(t, txt.HasFormat(FormatCode))
	assert.Equal(t, TypeText, txt.Clone().Type())
}

func TestDiff(t *testing.T) {
	nodes, p, hello := buildDoc(t)
	prev, err := NewSnapshot(nodes, nil, 1, "")
	require.NoError(t, err)

	initial := Diff(nil, prev)
	assert.Len(t, initial.Created, 5)
	assert.False(t, initial.IsEmpty())

	assert.True(t, Diff(prev, prev).IsEmpty())

	// Rewrite hello and drop the trailing nodes of the paragraph.
	next := make(map[NodeKey]Node, len(nodes))
	for k, n := range nodes {
		next[k] = n
	}
	h := hello.Clone().(*TextNode)
	h.Content = "HELLO"
	next[h.Key()] = h
	pc := p.Clone().(*ParagraphNode)
	kids := pc.Children()
	SetChildren(pc, kids[:1])
	next[pc.Key()] = pc
	for _, k := range kids[1:] {
		delete(next, k)
	}
	snap, err := NewSnapshot(next, Caret(h.Key(), 1), 2, "")
	require.NoError(t, err)

	d := Diff(prev, snap)
	assert.Empty(t, d.Created)
	assert.ElementsMatch(t, []NodeKey{h.Key(), pc.Key()}, d.Updated)
	assert.ElementsMatch(t, kids[1:], d.Destroyed)
	assert.True(t, d.SelectionChanged)
	assert.Equal(t, uint64(1), d.FromVersion)
	assert.Equal(t, uint64(2), d.ToVersion)
}
