package registry

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func otherParagraph() domain.Node { return domain.NewParagraph() }

func TestRegistry_Exclusivity(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("paragraph", newParagraph, nil))

	// Same constructor again is a no-op.
	require.NoError(t, r.Register("paragraph", newParagraph, nil))

	err := r.Register("paragraph", otherParagraph, nil)
	var dup *domain.DuplicateTypeError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "paragraph", dup.Tag)
	assert.ErrorIs(t, err, domain.ErrDuplicateType)

	// The original binding survives the rejected registration.
	b, err := r.Resolve("paragraph")
	require.NoError(t, err)
	assert.Equal(t, domain.TypeParagraph, b.New().Type())
	assert.IsType(t, RecordCodec{}, b.Codec)
}

// upperCodec is a stand-in for a custom text codec.
type upperCodec struct{ RecordCodec }

// funcCodec has a dynamic type that cannot be compared.
type funcCodec struct {
	RecordCodec
	hook func()
}

func TestRegistry_CodecMustMatch(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("paragraph", newParagraph, nil))
	require.NoError(t, r.Register("paragraph", newParagraph, RecordCodec{}))

	err := r.Register("paragraph", newParagraph, upperCodec{})
	assert.ErrorIs(t, err, domain.ErrDuplicateType)
	b, err := r.Resolve("paragraph")
	require.NoError(t, err)
	assert.IsType(t, RecordCodec{}, b.Codec)

	require.NoError(t, r.Register("quote", newQuote, funcCodec{}))
	assert.ErrorIs(t, r.Register("quote", newQuote, funcCodec{}), domain.ErrDuplicateType)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("poll")
	var unknown *domain.UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "poll", unknown.Tag)
	assert.False(t, r.Has("poll"))
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	require.NoError(t, RegisterBuiltins(r), "builtins are idempotent")

	assert.Equal(t, []string{"decorator", "heading", "linebreak", "paragraph", "quote", "root", "text"}, r.Tags())
}

func TestRecordCodec_TextFields(t *testing.T) {
	var rec domain.Record
	// JSON numbers arrive as float64.
	require.NoError(t, json.Unmarshal([]byte(`{"type":"text","text":"hi","format":3,"style":"color: red","detail":2}`), &rec))

	n := domain.NewText("")
	require.NoError(t, RecordCodec{}.Decode(rec, n))
	assert.Equal(t, "hi", n.Content)
	assert.True(t, n.HasFormat(domain.FormatBold|domain.FormatItalic))
	assert.Equal(t, domain.ModeNormal, n.Mode, "missing mode defaults to normal")
	assert.Equal(t, domain.DetailUnmergeable, n.Detail)

	out := domain.Record{}
	require.NoError(t, RecordCodec{}.Encode(n, out))
	assert.Equal(t, "hi", out["text"])
	assert.Equal(t, 3, out["format"])
	assert.Equal(t, "normal", out["mode"])
}

func TestRecordCodec_RejectsBadFields(t *testing.T) {
	tests := []struct {
		name string
		node domain.Node
		rec  domain.Record
	}{
		{"bad alignment", domain.NewParagraph(), domain.Record{"format": "diagonal"}},
		{"negative indent", domain.NewParagraph(), domain.Record{"indent": -1}},
		{"bad direction", domain.NewQuote(), domain.Record{"direction": "up"}},
		{"bad mode", domain.NewText(""), domain.Record{"mode": "sticky"}},
		{"non numeric format", domain.NewText(""), domain.Record{"format": "bold"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, RecordCodec{}.Decode(tt.rec, tt.node))
		})
	}
}

func TestHeadingAndDecoratorCodecs(t *testing.T) {
	h := domain.NewHeading("h1")
	require.NoError(t, headingCodec{}.Decode(domain.Record{"tag": "h3", "format": "center"}, h))
	assert.Equal(t, "h3", h.Tag)
	assert.Equal(t, domain.FormatCenter, h.Format)
	assert.Error(t, headingCodec{}.Decode(domain.Record{"tag": "h9"}, domain.NewHeading("h1")))

	d := domain.NewDecorator("", nil)
	require.NoError(t, decoratorCodec{}.Decode(domain.Record{"ref": "img-7", "payload": map[string]any{"w": 640}}, d))
	assert.Equal(t, "img-7", d.Ref)
	assert.Equal(t, 640, d.Payload["w"])
	assert.Error(t, decoratorCodec{}.Decode(domain.Record{}, domain.NewDecorator("", nil)))
}
