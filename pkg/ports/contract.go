package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractDocument returns root -> paragraph -> text(content).
func contractDocument(content string) *codec.Document {
	return &codec.Document{
		Version: 3,
		Root: domain.Record{
			"type": "root",
			"children": []any{
				map[string]any{
					"type":   "paragraph",
					"indent": 1,
					"children": []any{
						map[string]any{"type": "text", "text": content, "format": 1},
					},
				},
			},
		},
	}
}

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore
// implementation adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	docID := "contract-doc-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, docID, contractDocument("hello")), "Save should not return error")

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "root", loaded.Root.Type())
		assert.EqualValues(t, 3, loaded.Version)

		children, ok := loaded.Root["children"].([]any)
		require.True(t, ok, "children should decode as a list")
		require.Len(t, children, 1)
		para, ok := children[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "paragraph", para["type"])
		// JSON-based stores turn ints into float64; only check presence.
		assert.NotNil(t, para["indent"])
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, docID, contractDocument("second")))
		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err)
		para := loaded.Root["children"].([]any)[0].(map[string]any)
		text := para["children"].([]any)[0].(map[string]any)
		assert.Equal(t, "second", text["text"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, docID, contractDocument("bye")))
		require.NoError(t, store.Delete(ctx, docID), "Delete should not return error")

		_, err := store.Load(ctx, docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := docID + "-1"
		id2 := docID + "-2"
		require.NoError(t, store.Save(ctx, id1, contractDocument("one")))
		require.NoError(t, store.Save(ctx, id2, contractDocument("two")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
