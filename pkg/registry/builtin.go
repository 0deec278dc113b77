package registry

import (
	"fmt"

	"github.com/aretw0/folio/pkg/domain"
)

func newRoot() domain.Node      { return domain.NewRoot() }
func newParagraph() domain.Node { return domain.NewParagraph() }
func newHeading() domain.Node   { return domain.NewHeading("h1") }
func newQuote() domain.Node     { return domain.NewQuote() }
func newText() domain.Node      { return domain.NewText("") }
func newLineBreak() domain.Node { return domain.NewLineBreak() }
func newDecorator() domain.Node { return domain.NewDecorator("", nil) }

// RegisterBuiltins binds the node types every editor understands.
func RegisterBuiltins(r *Registry) error {
	builtins := []Binding{
		{Tag: domain.TypeRoot, New: newRoot},
		{Tag: domain.TypeParagraph, New: newParagraph},
		{Tag: domain.TypeHeading, New: newHeading, Codec: headingCodec{}},
		{Tag: domain.TypeQuote, New: newQuote},
		{Tag: domain.TypeText, New: newText},
		{Tag: domain.TypeLineBreak, New: newLineBreak},
		{Tag: domain.TypeDecorator, New: newDecorator, Codec: decoratorCodec{}},
	}
	for _, b := range builtins {
		if err := r.Register(b.Tag, b.New, b.Codec); err != nil {
			return fmt.Errorf("failed to register %s: %w", b.Tag, err)
		}
	}
	return nil
}

type headingCodec struct{ RecordCodec }

func (c headingCodec) Encode(n domain.Node, rec domain.Record) error {
	h, ok := n.(*domain.HeadingNode)
	if !ok {
		return fmt.Errorf("heading codec got %T", n)
	}
	rec["tag"] = h.Tag
	return c.RecordCodec.Encode(n, rec)
}

func (c headingCodec) Decode(rec domain.Record, n domain.Node) error {
	h, ok := n.(*domain.HeadingNode)
	if !ok {
		return fmt.Errorf("heading codec got %T", n)
	}
	var f struct {
		Tag string `mapstructure:"tag"`
	}
	f.Tag = h.Tag
	if err := DecodeFields(rec, &f); err != nil {
		return err
	}
	switch f.Tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
	default:
		return fmt.Errorf("invalid heading tag %q", f.Tag)
	}
	h.Tag = f.Tag
	return c.RecordCodec.Decode(rec, n)
}

type decoratorCodec struct{}

func (decoratorCodec) Encode(n domain.Node, rec domain.Record) error {
	d, ok := n.(*domain.DecoratorNode)
	if !ok {
		return fmt.Errorf("decorator codec got %T", n)
	}
	rec["ref"] = d.Ref
	if len(d.Payload) > 0 {
		rec["payload"] = domain.ClonePayload(d.Payload)
	}
	return nil
}

func (decoratorCodec) Decode(rec domain.Record, n domain.Node) error {
	d, ok := n.(*domain.DecoratorNode)
	if !ok {
		return fmt.Errorf("decorator codec got %T", n)
	}
	var f struct {
		Ref     string         `mapstructure:"ref"`
		Payload map[string]any `mapstructure:"payload"`
	}
	if err := DecodeFields(rec, &f); err != nil {
		return err
	}
	if f.Ref == "" {
		return fmt.Errorf("decorator without ref")
	}
	d.Ref = f.Ref
	d.Payload = domain.ClonePayload(f.Payload)
	return nil
}
