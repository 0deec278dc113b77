package ports

import (
	"context"

	"github.com/aretw0/folio/pkg/codec"
)

// DocumentStore persists encoded documents by ID.
type DocumentStore interface {
	// Save persists doc under id, replacing any previous version.
	Save(ctx context.Context, id string, doc *codec.Document) error

	// Load retrieves the document stored under id.
	// Returns domain.ErrDocumentNotFound if it does not exist.
	Load(ctx context.Context, id string) (*codec.Document, error)

	// Delete removes the document stored under id.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of every stored document.
	List(ctx context.Context) ([]string, error)
}
