package history_test

import (
	"context"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, ed *folio.Editor, text, tag string) {
	t.Helper()
	err := ed.Update(context.Background(), func(ctx context.Context, tx *folio.Tx) error {
		p, _ := tx.Create(domain.NewParagraph())
		k, _ := tx.Create(domain.NewText(text))
		if err := tx.Append(p, k); err != nil {
			return err
		}
		return tx.Append(domain.RootKey, p)
	}, folio.WithTag(tag))
	require.NoError(t, err)
}

func content(ed *folio.Editor) string {
	return ed.CurrentSnapshot().TextContent(domain.RootKey)
}

func TestHistory_UndoRedo(t *testing.T) {
	h := history.New()
	ed, err := folio.New(folio.WithPlugins(h))
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, h.CanUndo())
	ok, err := h.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	write(t, ed, "a", "")
	write(t, ed, "b", "")
	assert.Equal(t, "a\n\nb", content(ed))
	assert.True(t, h.CanUndo())

	ok, err = h.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", content(ed))
	assert.Equal(t, domain.TagHistory, ed.CurrentSnapshot().Tag())
	assert.True(t, h.CanRedo())

	ok, err = h.Redo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a\n\nb", content(ed))

	// Versions keep increasing across undo and redo.
	assert.Equal(t, uint64(4), ed.CurrentSnapshot().Version())

	// A new edit drops the redo stack.
	_, _ = h.Undo(ctx)
	write(t, ed, "c", "")
	assert.False(t, h.CanRedo())
	assert.Equal(t, "a\n\nc", content(ed))
}

func TestHistory_MergeTag(t *testing.T) {
	h := history.New()
	ed, err := folio.New(folio.WithPlugins(h))
	require.NoError(t, err)
	ctx := context.Background()

	write(t, ed, "a", "")
	write(t, ed, "b", domain.TagHistoryMerge)
	write(t, ed, "c", domain.TagHistoryMerge)

	ok, err := h.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, content(ed))
	assert.False(t, h.CanUndo())
}

func TestHistory_Limit(t *testing.T) {
	h := history.New(history.WithLimit(2))
	ed, err := folio.New(folio.WithPlugins(h))
	require.NoError(t, err)
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c"} {
		write(t, ed, s, "")
	}
	steps := 0
	for h.CanUndo() {
		_, err := h.Undo(ctx)
		require.NoError(t, err)
		steps++
	}
	assert.Equal(t, 2, steps)
	assert.Equal(t, "a", content(ed))
}

func TestHistory_LoadClearsAndTearDownStops(t *testing.T) {
	h := history.New()
	ed, err := folio.New(folio.WithPlugins(h))
	require.NoError(t, err)

	write(t, ed, "a", "")
	doc, err := ed.Document()
	require.NoError(t, err)
	require.NoError(t, ed.Load(context.Background(), doc))
	assert.False(t, h.CanUndo())

	require.NoError(t, ed.Close())
	write(t, ed, "b", "")
	assert.False(t, h.CanUndo())
}
