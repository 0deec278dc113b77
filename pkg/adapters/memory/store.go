package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
)

// Store implements ports.DocumentStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*codec.Document
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*codec.Document),
	}
}

// Save stores a deep copy of doc, so later edits by the caller do not leak in.
func (s *Store) Save(ctx context.Context, id string, doc *codec.Document) error {
	copied, err := codec.CloneDocument(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = copied
	return nil
}

// Load returns a copy of the stored document.
func (s *Store) Load(ctx context.Context, id string) (*codec.Document, error) {
	s.mu.RLock()
	doc, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return codec.CloneDocument(doc)
}

// Delete removes the document.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored document IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
