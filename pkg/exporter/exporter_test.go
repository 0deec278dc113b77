package exporter_test

import (
	"context"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/exporter"
	"github.com/aretw0/folio/pkg/importer"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *folio.Editor {
	t.Helper()
	ed, err := folio.New(folio.WithPlugins(nodes.Plugins()...))
	require.NoError(t, err)
	err = ed.Update(context.Background(), func(ctx context.Context, tx *folio.Tx) error {
		h, _ := tx.Create(domain.NewHeading("h2"))
		title, _ := tx.Create(domain.NewText("Plan"))
		if err := tx.Append(h, title); err != nil {
			return err
		}
		p, _ := tx.Create(domain.NewParagraph())
		plain, _ := tx.Create(domain.NewText("ship "))
		bold := domain.NewText("early ")
		bold.Format = domain.FormatBold
		bk, _ := tx.Create(bold)
		br, _ := tx.Create(domain.NewLineBreak())
		code := domain.NewText("a*b")
		code.Format = domain.FormatCode
		ck, _ := tx.Create(code)
		if err := tx.Append(p, plain, bk, br, ck); err != nil {
			return err
		}
		if err := tx.Append(domain.RootKey, h, p); err != nil {
			return err
		}
		if _, err := nodes.InsertList(tx, domain.RootKey, nodes.ListNumber, "one", "two"); err != nil {
			return err
		}
		_, err := nodes.InsertList(tx, domain.RootKey, nodes.ListCheck, "todo")
		return err
	})
	require.NoError(t, err)
	return ed
}

func TestMarkdown(t *testing.T) {
	out, err := exporter.Markdown(sample(t).CurrentSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "## Plan\n\nship **early**   \n`a*b`\n\n1. one\n2. two\n\n- [ ] todo\n", out)
}

func TestMarkdown_Escapes(t *testing.T) {
	ed, err := folio.New()
	require.NoError(t, err)
	require.NoError(t, importer.Import(context.Background(), ed, importer.KindMarkdown, []byte(`a \*literal\* star`)))
	out, err := exporter.Markdown(ed.CurrentSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "a \\*literal\\* star\n", out)
}

func TestMarkdown_Empty(t *testing.T) {
	ed, err := folio.New()
	require.NoError(t, err)
	out, err := exporter.Markdown(ed.CurrentSnapshot())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHTML(t *testing.T) {
	out, err := exporter.HTML(sample(t).CurrentSnapshot())
	require.NoError(t, err)
	assert.Equal(t,
		"<h2>Plan</h2>\n"+
			"<p>ship <strong>early </strong><br/><code>a*b</code></p>\n"+
			"<ol><li>one</li><li>two</li></ol>\n"+
			`<ul><li><input type="checkbox" disabled=""/> todo</li></ul>`+"\n",
		out)
}

func TestMarkdownRoundTrip(t *testing.T) {
	src := "# Title\n\nSome *soft* text.\n\n- a\n- b\n"
	ed, err := folio.New(folio.WithPlugins(nodes.ListPlugin{}))
	require.NoError(t, err)
	require.NoError(t, importer.Import(context.Background(), ed, importer.KindMarkdown, []byte(src)))

	out, err := exporter.Markdown(ed.CurrentSnapshot())
	require.NoError(t, err)
	assert.Equal(t, src, out)
}
