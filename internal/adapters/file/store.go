package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
)

// Store implements ports.DocumentStore on the local filesystem, one file per
// document in BasePath.
type Store struct {
	BasePath string
	Format   codec.Format
}

// New creates a Store writing JSON files. If basePath is empty, it defaults
// to ".folio/documents".
func New(basePath string) *Store {
	return NewWithFormat(basePath, codec.FormatJSON)
}

// NewWithFormat creates a Store writing documents in format f.
func NewWithFormat(basePath string, f codec.Format) *Store {
	if basePath == "" {
		basePath = filepath.Join(".folio", "documents")
	}
	if f == "" {
		f = codec.FormatJSON
	}
	return &Store{BasePath: basePath, Format: f}
}

func (s *Store) ext() string {
	if s.Format == codec.FormatYAML {
		return ".yaml"
	}
	return ".json"
}

func (s *Store) path(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("document id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return filepath.Join(s.BasePath, id+s.ext()), nil
}

// Save writes doc atomically: temp file in the same directory, fsync, rename.
func (s *Store) Save(ctx context.Context, id string, doc *codec.Document) error {
	destPath, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure document directory: %w", err)
	}

	data, err := codec.Marshal(doc, s.Format)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+id+"-*"+s.ext())
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing document for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Load reads the document stored under id.
func (s *Store) Load(ctx context.Context, id string) (*codec.Document, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	doc, err := codec.Unmarshal(data, s.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return doc, nil
}

// Delete removes the document file. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document file: %w", err)
	}
	return nil
}

// List returns the IDs of the documents in BasePath, skipping temp files.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != s.ext() || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, s.ext()))
	}
	sort.Strings(ids)
	return ids, nil
}
