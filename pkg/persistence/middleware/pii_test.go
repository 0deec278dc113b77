package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/adapters/memory"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/aretw0/folio/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksMentionIdentity(t *testing.T) {
	ed, err := folio.New(folio.WithPlugins(nodes.MentionPlugin{}))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
		p, _ := tx.Create(domain.NewParagraph())
		if err := tx.Append(domain.RootKey, p); err != nil {
			return err
		}
		_, err := nodes.InsertMention(tx, p, "Ada Lovelace", "u-1815")
		return err
	}))
	doc, err := ed.Document()
	require.NoError(t, err)

	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	store := mw(underlying)
	require.NoError(t, store.Save(ctx, "doc", doc))

	// The caller's document is untouched.
	assert.Contains(t, mustJSON(t, doc), "u-1815")

	stored, err := store.Load(ctx, "doc")
	require.NoError(t, err)
	body := mustJSON(t, stored)
	assert.NotContains(t, body, "u-1815")
	assert.Contains(t, body, middleware.Mask)
	assert.Contains(t, body, "@Ada Lovelace")

	// Masked documents still decode.
	other, err := folio.New(folio.WithPlugins(nodes.MentionPlugin{}))
	require.NoError(t, err)
	require.NoError(t, other.Load(ctx, stored))
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_OrdersOutermostFirst(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"text"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "doc", secretDoc()))

	loaded, err := store.Load(ctx, "doc")
	require.NoError(t, err)
	assert.NotContains(t, mustJSON(t, loaded), "my-secret-sauce")
}
