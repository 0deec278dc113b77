package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/exporter"
	"github.com/aretw0/folio/pkg/importer"
)

// LoadPath fills ed from the file at path. Serialized documents (.json,
// .yaml) are loaded as they are; Markdown, HTML and DOCX files are imported.
func LoadPath(ctx context.Context, ed *folio.Editor, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return ed.LoadFile(ctx, path)
	}
	kind, err := importer.ForFile(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return importer.Import(ctx, ed, kind, data)
}

// Render produces the committed document of ed in the format the extension of
// path names.
func Render(ed *folio.Editor, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ed.Encode(codec.FormatJSON)
	case ".yaml", ".yml":
		return ed.Encode(codec.FormatYAML)
	case ".md", ".markdown":
		out, err := exporter.Markdown(ed.CurrentSnapshot())
		return []byte(out), err
	case ".html", ".htm":
		out, err := exporter.HTML(ed.CurrentSnapshot())
		return []byte(out), err
	}
	return nil, fmt.Errorf("no exporter for %q", path)
}

// Convert reads in and writes it to out, converting between the formats their
// extensions name.
func Convert(ctx context.Context, rt *Runtime, in, out string) error {
	ed, err := rt.NewEditor()
	if err != nil {
		return err
	}
	defer ed.Close()

	if err := LoadPath(ctx, ed, in); err != nil {
		return err
	}
	data, err := Render(ed, out)
	if err != nil {
		return err
	}
	if err := writeAtomic(out, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	rt.Logger.Debug("converted document", "from", in, "to", out, "version", ed.CurrentSnapshot().Version())
	return nil
}

func writeAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
