package registry

import (
	"fmt"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DecodeFields decodes rec into out, a pointer to a struct with mapstructure
// tags. Numbers are accepted in any numeric form (JSON float64, YAML int,
// json.Number) and unknown fields are ignored.
func DecodeFields(rec domain.Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create field decoder: %w", err)
	}
	return dec.Decode(map[string]any(rec))
}

type elementFields struct {
	Format    string `mapstructure:"format"`
	Indent    int    `mapstructure:"indent"`
	Direction string `mapstructure:"direction"`
}

// EncodeElement writes the shared element fields into rec.
func EncodeElement(rec domain.Record, e *domain.ElementBase) {
	rec["format"] = string(e.Format)
	rec["indent"] = e.Indent
	rec["direction"] = string(e.Direction)
}

// DecodeElement reads the shared element fields from rec. Missing fields keep
// the values already set on e.
func DecodeElement(rec domain.Record, e *domain.ElementBase) error {
	f := elementFields{Format: string(e.Format), Indent: e.Indent, Direction: string(e.Direction)}
	if err := DecodeFields(rec, &f); err != nil {
		return err
	}
	switch domain.ElementFormat(f.Format) {
	case domain.FormatNone, domain.FormatLeft, domain.FormatCenter, domain.FormatRight, domain.FormatJustify:
	default:
		return fmt.Errorf("invalid element format %q", f.Format)
	}
	switch domain.Direction(f.Direction) {
	case domain.DirectionNone, domain.DirectionLTR, domain.DirectionRTL:
	default:
		return fmt.Errorf("invalid direction %q", f.Direction)
	}
	if f.Indent < 0 {
		return fmt.Errorf("invalid indent %d", f.Indent)
	}
	e.Format = domain.ElementFormat(f.Format)
	e.Indent = f.Indent
	e.Direction = domain.Direction(f.Direction)
	return nil
}

type textFields struct {
	Text   string `mapstructure:"text"`
	Format int    `mapstructure:"format"`
	Style  string `mapstructure:"style"`
	Mode   string `mapstructure:"mode"`
	Detail int    `mapstructure:"detail"`
}

// EncodeText writes the shared text fields into rec.
func EncodeText(rec domain.Record, t *domain.TextBase) {
	rec["text"] = t.Content
	rec["format"] = int(t.Format)
	rec["style"] = t.Style
	rec["mode"] = string(t.Mode)
	rec["detail"] = int(t.Detail)
}

// DecodeText reads the shared text fields from rec. A missing or empty mode
// keeps the default set by the constructor.
func DecodeText(rec domain.Record, t *domain.TextBase) error {
	f := textFields{
		Text:   t.Content,
		Format: int(t.Format),
		Style:  t.Style,
		Mode:   string(t.Mode),
		Detail: int(t.Detail),
	}
	if err := DecodeFields(rec, &f); err != nil {
		return err
	}
	switch domain.TextMode(f.Mode) {
	case "":
		f.Mode = string(t.Mode)
		if f.Mode == "" {
			f.Mode = string(domain.ModeNormal)
		}
	case domain.ModeNormal, domain.ModeToken, domain.ModeSegmented:
	default:
		return fmt.Errorf("invalid text mode %q", f.Mode)
	}
	if f.Format < 0 || f.Detail < 0 {
		return fmt.Errorf("invalid text format bits %d/%d", f.Format, f.Detail)
	}
	t.Content = f.Text
	t.Format = domain.TextFormat(f.Format)
	t.Style = f.Style
	t.Mode = domain.TextMode(f.Mode)
	t.Detail = domain.TextDetail(f.Detail)
	return nil
}

// RecordCodec is the default codec. It handles the shared element or text
// fields and delegates variant fields to domain.FieldCodec when the node
// implements it.
type RecordCodec struct{}

func (RecordCodec) Encode(n domain.Node, rec domain.Record) error {
	switch v := n.(type) {
	case domain.Element:
		EncodeElement(rec, domain.ElementBaseOf(v))
	case domain.Textual:
		EncodeText(rec, domain.TextBaseOf(v))
	}
	if fc, ok := n.(domain.FieldCodec); ok {
		return fc.EncodeFields(rec)
	}
	return nil
}

func (RecordCodec) Decode(rec domain.Record, n domain.Node) error {
	switch v := n.(type) {
	case domain.Element:
		if err := DecodeElement(rec, domain.ElementBaseOf(v)); err != nil {
			return err
		}
	case domain.Textual:
		if err := DecodeText(rec, domain.TextBaseOf(v)); err != nil {
			return err
		}
	}
	if fc, ok := n.(domain.FieldCodec); ok {
		return fc.DecodeFields(rec)
	}
	return nil
}
