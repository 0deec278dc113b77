// Package loam stores documents in a Loam repository: one markdown file per
// document whose front matter carries the document version and whose body is
// the encoded JSON document.
package loam

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
)

const ext = ".md"

// Store implements ports.DocumentStore on a Loam repository.
type Store struct {
	repo core.Repository
}

// New wraps an initialized repository.
func New(repo core.Repository) *Store {
	return &Store{repo: repo}
}

// Open initializes a Loam repository at dir without versioning and wraps it.
func Open(dir string, opts ...loam.Option) (*Store, error) {
	opts = append([]loam.Option{loam.WithVersioning(false)}, opts...)
	repo, err := loam.Init(dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(repo), nil
}

func docID(id string) string { return id + ext }

func trimExtension(id string) string {
	return strings.TrimSuffix(id, path.Ext(id))
}

// Save writes doc under id.
func (s *Store) Save(ctx context.Context, id string, doc *codec.Document) error {
	if id == "" {
		return fmt.Errorf("document id cannot be empty")
	}
	data, err := codec.Marshal(doc, codec.FormatJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	err = s.repo.Save(ctx, core.Document{
		ID:      docID(id),
		Content: string(data),
		Metadata: core.Metadata{
			"id":      id,
			"version": doc.Version,
		},
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", id, err)
	}
	return nil
}

// Load reads the document stored under id.
func (s *Store) Load(ctx context.Context, id string) (*codec.Document, error) {
	ok, err := s.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	raw, err := s.repo.Get(ctx, docID(id))
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}
	doc, err := codec.Unmarshal([]byte(raw.Content), codec.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return doc, nil
}

// Delete removes the document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	ok, err := s.exists(ctx, id)
	if err != nil || !ok {
		return err
	}
	if err := s.repo.Delete(ctx, docID(id)); err != nil {
		return fmt.Errorf("loam delete failed for %s: %w", id, err)
	}
	return nil
}

// List returns the IDs of the stored documents.
func (s *Store) List(ctx context.Context) ([]string, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if path.Ext(d.ID) != ext {
			continue
		}
		ids = append(ids, trimExtension(path.Base(d.ID)))
	}
	return ids, nil
}

// exists answers from List: Loam does not promise a typed not-found error
// across its adapters.
func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, known := range ids {
		if known == id {
			return true, nil
		}
	}
	return false, nil
}
