package importer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/fumiama/go-docx"
)

// DOCX reads the body paragraphs of a Word document. Heading styles become
// headings; run bold and italic become text formats.
func DOCX(b *Builder, data []byte) error {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("parse docx: %w", err)
	}
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var block domain.Node = domain.NewParagraph()
		if level := docxHeadingLevel(para); level > 0 {
			block = domain.NewHeading(headingTag(level))
		}
		k, err := b.Append(domain.RootKey, block)
		if err != nil {
			return err
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			f := runFormat(run)
			for _, rc := range run.Children {
				if t, ok := rc.(*docx.Text); ok {
					if err := b.Text(k, t.Text, f); err != nil {
						return err
					}
				}
			}
		}
		if err := b.Trim(k); err != nil {
			return err
		}
	}
	return nil
}

func runFormat(run *docx.Run) domain.TextFormat {
	var f domain.TextFormat
	if p := run.RunProperties; p != nil {
		if p.Bold != nil {
			f |= domain.FormatBold
		}
		if p.Italic != nil {
			f |= domain.FormatItalic
		}
	}
	return f
}

// docxHeadingLevel maps "Heading1", "heading 2" and "Title" styles to a level.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	rest, ok := strings.CutPrefix(style, "heading")
	if !ok || len(rest) != 1 || rest[0] < '1' || rest[0] > '6' {
		return 0
	}
	return int(rest[0] - '0')
}
