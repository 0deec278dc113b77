package importer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEditor(t *testing.T, plugins ...folio.Plugin) *folio.Editor {
	t.Helper()
	ed, err := folio.New(folio.WithPlugins(plugins...))
	require.NoError(t, err)
	return ed
}

// blocks returns the type and text of every root child.
func blocks(ed *folio.Editor) [][2]string {
	snap := ed.CurrentSnapshot()
	var out [][2]string
	for _, k := range snap.Children(domain.RootKey) {
		n, _ := snap.Get(k)
		out = append(out, [2]string{n.Type(), snap.TextContent(k)})
	}
	return out
}

func textNodes(t *testing.T, ed *folio.Editor, block domain.NodeKey) []*domain.TextNode {
	t.Helper()
	var out []*domain.TextNode
	snap := ed.CurrentSnapshot()
	require.NoError(t, snap.WalkFrom(block, func(n domain.Node, depth int) error {
		if tn, ok := n.(*domain.TextNode); ok {
			out = append(out, tn)
		}
		return nil
	}))
	return out
}

func TestForFile(t *testing.T) {
	cases := map[string]Kind{
		"notes.md":        KindMarkdown,
		"README.Markdown": KindMarkdown,
		"page.htm":        KindHTML,
		"report.docx":     KindDOCX,
	}
	for path, want := range cases {
		got, err := ForFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := ForFile("scan.pdf")
	assert.Error(t, err)
}

const markdownSource = `# Groceries

Buy **fresh** milk and *ripe* fruit.

> Quoted line

1. one
2. two

- [x] done
- [ ] todo
`

func TestMarkdown(t *testing.T) {
	ed := newEditor(t, nodes.ListPlugin{})
	require.NoError(t, Import(context.Background(), ed, KindMarkdown, []byte(markdownSource)))

	snap := ed.CurrentSnapshot()
	assert.Equal(t, TagImport, snap.Tag())
	assert.Equal(t, [][2]string{
		{domain.TypeHeading, "Groceries"},
		{domain.TypeParagraph, "Buy fresh milk and ripe fruit."},
		{domain.TypeQuote, "Quoted line"},
		{nodes.TypeList, "one\n\ntwo"},
		{nodes.TypeList, "done\n\ntodo"},
	}, blocks(ed))

	keys := snap.Children(domain.RootKey)
	h, _ := snap.Get(keys[0])
	assert.Equal(t, "h1", h.(*domain.HeadingNode).Tag)

	texts := textNodes(t, ed, keys[1])
	require.Len(t, texts, 5)
	assert.True(t, texts[1].HasFormat(domain.FormatBold))
	assert.Equal(t, "fresh", texts[1].Text())
	assert.True(t, texts[3].HasFormat(domain.FormatItalic))

	numbered, _ := snap.Get(keys[3])
	assert.Equal(t, nodes.ListNumber, numbered.(*nodes.ListNode).ListType)

	checks, _ := snap.Get(keys[4])
	assert.Equal(t, nodes.ListCheck, checks.(*nodes.ListNode).ListType)
	items := snap.Children(keys[4])
	first, _ := snap.Get(items[0])
	second, _ := snap.Get(items[1])
	require.NotNil(t, first.(*nodes.ListItemNode).Checked)
	assert.True(t, *first.(*nodes.ListItemNode).Checked)
	assert.False(t, *second.(*nodes.ListItemNode).Checked)
}

func TestBuilder_CheckedOnlyOnCheckLists(t *testing.T) {
	ed := newEditor(t, nodes.ListPlugin{})
	done := true
	var bullet, check domain.NodeKey
	err := ed.Update(context.Background(), func(ctx context.Context, tx *folio.Tx) error {
		b := NewBuilder(tx, true)
		l, err := b.List(domain.RootKey, nodes.ListBullet, 0)
		if err != nil {
			return err
		}
		if bullet, err = b.Item(l, &done); err != nil {
			return err
		}
		c, err := b.List(domain.RootKey, nodes.ListCheck, 0)
		if err != nil {
			return err
		}
		if check, err = b.Item(c, &done); err != nil {
			return err
		}
		if err := b.EndList(l); err != nil {
			return err
		}
		return b.EndList(c)
	})
	require.NoError(t, err)

	snap := ed.CurrentSnapshot()
	n, err := snap.Get(bullet)
	require.NoError(t, err)
	assert.Nil(t, n.(*nodes.ListItemNode).Checked)
	n, err = snap.Get(check)
	require.NoError(t, err)
	require.NotNil(t, n.(*nodes.ListItemNode).Checked)
	assert.True(t, *n.(*nodes.ListItemNode).Checked)
}

func TestMarkdown_ListsWithoutListTypes(t *testing.T) {
	ed := newEditor(t)
	require.NoError(t, Import(context.Background(), ed, KindMarkdown, []byte("- a\n- b\n")))
	assert.Equal(t, [][2]string{
		{domain.TypeParagraph, "a"},
		{domain.TypeParagraph, "b"},
	}, blocks(ed))
}

func TestImport_ReplacesDocument(t *testing.T) {
	ed := newEditor(t)
	ctx := context.Background()
	require.NoError(t, Import(ctx, ed, KindMarkdown, []byte("first")))
	require.NoError(t, Import(ctx, ed, KindMarkdown, []byte("second")))
	assert.Equal(t, [][2]string{{domain.TypeParagraph, "second"}}, blocks(ed))
	assert.Equal(t, uint64(2), ed.CurrentSnapshot().Version())
}

func TestImport_FailureKeepsDocument(t *testing.T) {
	ed := newEditor(t)
	ctx := context.Background()
	require.NoError(t, Import(ctx, ed, KindMarkdown, []byte("kept")))
	before := ed.CurrentSnapshot()

	importers["broken"] = func(b *Builder, data []byte) error {
		if _, err := b.Append(domain.RootKey, domain.NewParagraph()); err != nil {
			return err
		}
		return errors.New("truncated source")
	}
	t.Cleanup(func() { delete(importers, "broken") })

	err := Import(ctx, ed, "broken", nil)
	require.Error(t, err)
	assert.Same(t, before, ed.CurrentSnapshot())

	assert.Error(t, Import(ctx, ed, "unknown", nil))
}

const htmlSource = `<html><head><title>x</title><style>p{}</style></head><body>
<h2>Plan</h2>
<p>Ship   <strong>early</strong>,<br>ship <em>often</em>.</p>
<ol start="3"><li>three</li><li>four</li></ol>
<ul><li><input type="checkbox" checked> packed</li><li><input type="checkbox"> labelled</li></ul>
loose text
<pre>a := 1
b := 2</pre>
</body></html>`

func TestHTML(t *testing.T) {
	ed := newEditor(t, nodes.ListPlugin{})
	require.NoError(t, Import(context.Background(), ed, KindHTML, []byte(htmlSource)))

	assert.Equal(t, [][2]string{
		{domain.TypeHeading, "Plan"},
		{domain.TypeParagraph, "Ship early,\nship often."},
		{nodes.TypeList, "three\n\nfour"},
		{nodes.TypeList, "packed\n\nlabelled"},
		{domain.TypeParagraph, "loose text"},
		{domain.TypeParagraph, "a := 1\nb := 2"},
	}, blocks(ed))

	snap := ed.CurrentSnapshot()
	keys := snap.Children(domain.RootKey)
	ol, _ := snap.Get(keys[2])
	assert.Equal(t, 3, ol.(*nodes.ListNode).Start)
	items := snap.Children(keys[2])
	last, _ := snap.Get(items[1])
	assert.Equal(t, 4, last.(*nodes.ListItemNode).Value)

	checks := snap.Children(keys[3])
	packed, _ := snap.Get(checks[0])
	assert.True(t, *packed.(*nodes.ListItemNode).Checked)

	code := textNodes(t, ed, keys[5])
	require.NotEmpty(t, code)
	assert.True(t, code[0].HasFormat(domain.FormatCode))
}

func TestDOCX(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	para := w.AddParagraph()
	para.AddText("plain ")
	para.AddText("bold").Bold()
	w.AddParagraph().AddText("second")

	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)

	ed := newEditor(t)
	require.NoError(t, Import(context.Background(), ed, KindDOCX, buf.Bytes()))
	assert.Equal(t, [][2]string{
		{domain.TypeParagraph, "plain bold"},
		{domain.TypeParagraph, "second"},
	}, blocks(ed))

	keys := ed.CurrentSnapshot().Children(domain.RootKey)
	texts := textNodes(t, ed, keys[0])
	require.Len(t, texts, 2)
	assert.True(t, texts[1].HasFormat(domain.FormatBold))
}

func TestDocxHeadingLevel(t *testing.T) {
	assert.Equal(t, 0, docxHeadingLevel(&docx.Paragraph{}))
	for style, want := range map[string]int{
		"Heading1":  1,
		"heading 3": 3,
		"Title":     1,
		"Heading9":  0,
		"Normal":    0,
	} {
		p := &docx.Paragraph{Properties: &docx.ParagraphProperties{Style: &docx.Style{Val: style}}}
		assert.Equal(t, want, docxHeadingLevel(p), style)
	}
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, " a b ", collapse("\n  a \t b\n"))
}
