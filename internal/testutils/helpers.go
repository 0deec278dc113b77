// Package testutils holds fixtures shared by the folio test suites.
package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo creates a temporary directory and initializes a Loam
// repository in it without versioning.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, append([]loam.Option{loam.WithVersioning(false)}, opts...)...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// NewEditor builds an editor with the node plugins attached and closes it
// when the test ends.
func NewEditor(t *testing.T, opts ...folio.Option) *folio.Editor {
	t.Helper()
	ed, err := folio.New(append([]folio.Option{folio.WithPlugins(nodes.Plugins()...)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ed.Close() })
	return ed
}

// Paragraphs appends one paragraph per text to the root.
func Paragraphs(texts ...string) folio.Body {
	return func(ctx context.Context, tx *folio.Tx) error {
		for _, text := range texts {
			p, err := tx.Create(domain.NewParagraph())
			if err != nil {
				return err
			}
			if err := tx.Append(domain.RootKey, p); err != nil {
				return err
			}
			if text == "" {
				continue
			}
			k, err := tx.Create(domain.NewText(text))
			if err != nil {
				return err
			}
			if err := tx.Append(p, k); err != nil {
				return err
			}
		}
		return nil
	}
}

// MustUpdate runs body on ed and fails the test on error.
func MustUpdate(t *testing.T, ed *folio.Editor, body folio.Body, opts ...folio.UpdateOption) *folio.Snapshot {
	t.Helper()
	require.NoError(t, ed.Update(context.Background(), body, opts...))
	return ed.CurrentSnapshot()
}
