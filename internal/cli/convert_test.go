package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/folio/internal/config"
	"github.com/aretw0/folio/pkg/importer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standalone(t *testing.T) *Runtime {
	t.Helper()
	rt, err := Standalone(config.Default())
	require.NoError(t, err)
	return rt
}

func TestConvert_MarkdownThroughJSON(t *testing.T) {
	ctx := context.Background()
	rt := standalone(t)
	dir := t.TempDir()

	src := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(src, []byte("# Title\n\n1. one\n2. two\n"), 0o644))

	doc := filepath.Join(dir, "out", "notes.json")
	require.NoError(t, Convert(ctx, rt, src, doc))
	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"listType": "number"`)

	page := filepath.Join(dir, "notes.html")
	require.NoError(t, Convert(ctx, rt, doc, page))
	data, err = os.ReadFile(page)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Title</h1>\n<ol><li>one</li><li>two</li></ol>\n", string(data))

	back := filepath.Join(dir, "notes.yaml")
	require.NoError(t, Convert(ctx, rt, page, back))
	data, err = os.ReadFile(back)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tag: h1")
}

func TestConvert_UnknownFormats(t *testing.T) {
	ctx := context.Background()
	rt := standalone(t)
	dir := t.TempDir()

	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	assert.ErrorIs(t, Convert(ctx, rt, src, filepath.Join(dir, "notes.md")), importer.ErrUnknownKind)

	md := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(md, []byte("x"), 0o644))
	assert.Error(t, Convert(ctx, rt, md, filepath.Join(dir, "notes.pdf")))
	_, err := os.Stat(filepath.Join(dir, "notes.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestTypes(t *testing.T) {
	types := standalone(t).Types()
	assert.Contains(t, types, "paragraph")
	assert.Contains(t, types, "listitem")
	assert.Contains(t, types, "mention")
}
