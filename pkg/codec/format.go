package codec

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
	"gopkg.in/yaml.v3"
)

// Format is a textual encoding of a Document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension. Anything that is not
// .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Marshal renders doc in the given format.
func Marshal(doc *Document, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// Unmarshal parses data in the given format. Syntax errors are reported as
// MalformedDocumentError.
func Unmarshal(data []byte, f Format) (*Document, error) {
	var doc Document
	var err error
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, &domain.MalformedDocumentError{Reason: "invalid " + string(f), Err: err}
	}
	return &doc, nil
}

// Encode is EncodeSnapshot followed by Marshal.
func Encode(snap *domain.Snapshot, reg *registry.Registry, f Format) ([]byte, error) {
	doc, err := EncodeSnapshot(snap, reg)
	if err != nil {
		return nil, err
	}
	return Marshal(doc, f)
}

// Decode is Unmarshal followed by DecodeSnapshot.
func Decode(data []byte, reg *registry.Registry, f Format) (*domain.Snapshot, error) {
	doc, err := Unmarshal(data, f)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(doc, reg)
}

// CloneDocument deep-copies doc through its JSON form, so the copy has the
// shapes a freshly parsed document has.
func CloneDocument(doc *Document) (*Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to copy document: %w", err)
	}
	return Unmarshal(data, FormatJSON)
}
