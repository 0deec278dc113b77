package loam_test

import (
	"context"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/testutils"
	loamstore "github.com/aretw0/folio/pkg/adapters/loam"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoamStore_Contract(t *testing.T) {
	store, err := loamstore.Open(t.TempDir())
	require.NoError(t, err)
	ports.RunDocumentStoreContract(t, store)
}

func TestLoamStore_ExistingRepository(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	require.DirExists(t, dir)
	store := loamstore.New(repo)
	ctx := context.Background()

	ed := testutils.NewEditor(t)
	testutils.MustUpdate(t, ed, testutils.Paragraphs("one", "two"))
	doc, err := ed.Document()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "shared", doc))

	// A second store over the same repository sees the document.
	ids, err := loamstore.New(repo).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, ids)
}

func TestLoamStore_EditorRoundTrip(t *testing.T) {
	store, err := loamstore.Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ed, err := folio.New()
	require.NoError(t, err)
	require.NoError(t, ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
		p, _ := tx.Create(domain.NewParagraph())
		k, _ := tx.Create(domain.NewText("stored in loam"))
		if err := tx.Append(p, k); err != nil {
			return err
		}
		return tx.Append(domain.RootKey, p)
	}))

	doc, err := ed.Document()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "notes", doc))

	loaded, err := store.Load(ctx, "notes")
	require.NoError(t, err)

	other, err := folio.New()
	require.NoError(t, err)
	require.NoError(t, other.Load(ctx, loaded))
	assert.Equal(t, "stored in loam", other.CurrentSnapshot().TextContent(domain.RootKey))
}
