package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/folio/pkg/adapters/memory"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/persistence/middleware"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretDoc() *codec.Document {
	return &codec.Document{
		Version: 7,
		Root: domain.Record{
			"type": "root",
			"children": []any{
				domain.Record{
					"type": "paragraph",
					"children": []any{
						domain.Record{"type": "text", "text": "my-secret-sauce"},
					},
				},
			},
		},
	}
}

func encrypting(t *testing.T, cfg middleware.EncryptionConfig, next ports.DocumentStore) ports.DocumentStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunDocumentStoreContract(t, encrypting(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	store := encrypting(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "doc", secretDoc()))

	raw, err := underlying.Load(ctx, "doc")
	require.NoError(t, err)
	assert.NotContains(t, raw.Root, domain.FieldChildren)
	assert.Contains(t, raw.Root, middleware.EnvelopeField)
	assert.Equal(t, uint64(7), raw.Version)

	loaded, err := store.Load(ctx, "doc")
	require.NoError(t, err)
	children := loaded.Root[domain.FieldChildren].([]any)
	require.Len(t, children, 1)
	assert.Contains(t, mustJSON(t, loaded), "my-secret-sauce")
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	require.NoError(t, encrypting(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlying).Save(ctx, "doc", secretDoc()))

	rotated := encrypting(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}}, underlying)
	_, err := rotated.Load(ctx, "doc")
	require.NoError(t, err)

	unrelated := encrypting(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	_, err = unrelated.Load(ctx, "doc")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainDocuments(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", secretDoc()))

	_, err := encrypting(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrMissingEnvelope)
}

func TestEncryptionMiddleware_KeyLength(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
}

func mustJSON(t *testing.T, doc *codec.Document) string {
	t.Helper()
	data, err := codec.Marshal(doc, codec.FormatJSON)
	require.NoError(t, err)
	return string(data)
}
